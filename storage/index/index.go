package index

import (
	"fmt"
	"iter"
	"strings"

	"github.com/forever-free1/bidindex/storage"
)

// Index 是内存记录索引的抽象接口
// 四种后端（顺序表、单链表、哈希表、二叉搜索树）都实现该接口
type Index interface {
	// Insert 写入一条记录，后端会复制该记录
	// 参数：
	//   - r: 记录
	// 返回：
	//   - error: 只有哈希索引可能拒绝（ErrKeyFormat）
	Insert(r storage.Record) error

	// All 返回全部记录的惰性序列
	// 序列可以重复遍历，遍历不会修改索引
	All() iter.Seq[storage.Record]

	// Size 返回索引中的记录数量
	Size() int

	// Close 批量释放所有节点
	Close()
}

// KeyedIndex 是支持按 ID 查找与删除的索引
type KeyedIndex interface {
	Index

	// Search 根据 ID 查找记录
	// 返回：
	//   - storage.Record: 记录
	//   - bool: 是否找到
	Search(id string) (storage.Record, bool)

	// Remove 根据 ID 删除记录
	// 返回：
	//   - bool: 当且仅当删除了一条记录时为 true
	Remove(id string) bool
}

// Sorter 是支持原地排序的索引
type Sorter interface {
	SortBySelection(f storage.Field)
	SortByQuick(f storage.Field)
}

// Type 定义索引类型
type Type int

const (
	// TypeSequence 顺序表，支持排序，不支持按键查找与删除
	TypeSequence Type = iota
	// TypeList 单链表
	TypeList
	// TypeHash 链式哈希表
	TypeHash
	// TypeTree 非平衡二叉搜索树
	TypeTree
)

func (t Type) String() string {
	switch t {
	case TypeSequence:
		return "sequence"
	case TypeList:
		return "list"
	case TypeHash:
		return "hash"
	case TypeTree:
		return "tree"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType 将名称解析为索引类型
// 同时接受 "vector"、"linkedlist"、"hashtable"、"bst" 等别名
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sequence", "seq", "vector":
		return TypeSequence, nil
	case "list", "linkedlist":
		return TypeList, nil
	case "hash", "hashtable":
		return TypeHash, nil
	case "tree", "bst":
		return TypeTree, nil
	default:
		return TypeSequence, fmt.Errorf("unknown index type %q", name)
	}
}

// Options 构造索引的配置
type Options struct {
	// TableSize 哈希表桶数量，仅哈希索引使用
	TableSize int
}

// Option 定义配置函数
type Option func(*Options)

// WithTableSize 设置哈希表桶数量
func WithTableSize(size int) Option {
	return func(o *Options) {
		o.TableSize = size
	}
}

// New 根据类型创建索引实例
// 参数：
//   - typ: 索引类型
//   - opts: 配置选项
//
// 返回：
//   - Index: 索引实例
//   - error: 未知类型
func New(typ Type, opts ...Option) (Index, error) {
	options := &Options{TableSize: DefaultTableSize}
	for _, opt := range opts {
		opt(options)
	}

	switch typ {
	case TypeSequence:
		return NewSequenceIndex(), nil
	case TypeList:
		return NewListIndex(), nil
	case TypeHash:
		return NewHashIndex(options.TableSize), nil
	case TypeTree:
		return NewTreeIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index type %v", typ)
	}
}
