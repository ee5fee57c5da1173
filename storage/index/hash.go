package index

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/forever-free1/bidindex/storage"
)

// DefaultTableSize 默认的桶数量
const DefaultTableSize = 179

// chainNode 桶内冲突链的节点
// 链头即桶的“主槽位”，移除链头时下一个节点自动提升为主槽位
type chainNode struct {
	record storage.Record
	next   *chainNode
}

// HashIndex 是固定容量、链地址法解决冲突的哈希表
// 每个桶要么为空（nil），要么是一条非空的有序链
type HashIndex struct {
	buckets   []*chainNode
	tableSize int
	size      int
}

// NewHashIndex 创建哈希表
// 参数：
//   - tableSize: 桶数量，小于等于 0 时使用 DefaultTableSize
//
// 返回：
//   - *HashIndex: 哈希表指针
func NewHashIndex(tableSize int) *HashIndex {
	if tableSize <= 0 {
		tableSize = DefaultTableSize
	}
	return &HashIndex{
		buckets:   make([]*chainNode, tableSize),
		tableSize: tableSize,
	}
}

// TableSize 返回桶数量
func (h *HashIndex) TableSize() int {
	return h.tableSize
}

// Bucket 计算 ID 所在的桶
// 参数：
//   - id: 记录 ID，必须是十进制非负整数
//
// 返回：
//   - int: 桶下标 = id mod tableSize
//   - error: ID 格式错误时返回包装后的 storage.ErrKeyFormat
func (h *HashIndex) Bucket(id string) (int, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", storage.ErrKeyFormat, id)
	}
	return int(n % uint64(h.tableSize)), nil
}

// Insert 写入记录
// 空桶直接成为单节点链，否则追加到链尾
func (h *HashIndex) Insert(r storage.Record) error {
	b, err := h.Bucket(r.ID)
	if err != nil {
		return err
	}

	node := &chainNode{record: r}
	if h.buckets[b] == nil {
		h.buckets[b] = node
	} else {
		last := h.buckets[b]
		for last.next != nil {
			last = last.next
		}
		last.next = node
	}
	h.size++
	return nil
}

// Search 在主槽位与冲突链中查找记录
// ID 格式错误视为不存在
func (h *HashIndex) Search(id string) (storage.Record, bool) {
	b, err := h.Bucket(id)
	if err != nil {
		return storage.Record{}, false
	}
	for cur := h.buckets[b]; cur != nil; cur = cur.next {
		if cur.record.ID == id {
			return cur.record, true
		}
	}
	return storage.Record{}, false
}

// Remove 只摘除 ID 匹配的那个节点，同桶的其他记录保持不变
// 摘除链头时下一个节点提升为主槽位，链为空时桶恢复为空
func (h *HashIndex) Remove(id string) bool {
	b, err := h.Bucket(id)
	if err != nil {
		return false
	}

	var prev *chainNode
	for cur := h.buckets[b]; cur != nil; prev, cur = cur, cur.next {
		if cur.record.ID != id {
			continue
		}
		if prev == nil {
			h.buckets[b] = cur.next
		} else {
			prev.next = cur.next
		}
		cur.next = nil
		h.size--
		return true
	}
	return false
}

// All 依桶下标 0..tableSize-1 遍历，桶内按链顺序
func (h *HashIndex) All() iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		for _, head := range h.buckets {
			for cur := head; cur != nil; cur = cur.next {
				if !yield(cur.record) {
					return
				}
			}
		}
	}
}

// Buckets 只遍历非空桶，产出桶下标与桶内记录
func (h *HashIndex) Buckets() iter.Seq2[int, []storage.Record] {
	return func(yield func(int, []storage.Record) bool) {
		for b, head := range h.buckets {
			if head == nil {
				continue
			}
			var chain []storage.Record
			for cur := head; cur != nil; cur = cur.next {
				chain = append(chain, cur.record)
			}
			if !yield(b, chain) {
				return
			}
		}
	}
}

// Size 返回记录数量
func (h *HashIndex) Size() int {
	return h.size
}

// Close 清空所有桶
func (h *HashIndex) Close() {
	for b := range h.buckets {
		h.buckets[b] = nil
	}
	h.size = 0
}

var _ KeyedIndex = (*HashIndex)(nil)
