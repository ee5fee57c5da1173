package index

import (
	"iter"

	"github.com/forever-free1/bidindex/storage"
)

// listNode 单链表节点，每个节点只被一条边（head 或前驱的 next）持有
type listNode struct {
	record storage.Record
	next   *listNode
}

// ListIndex 是带头尾指针的单链表
// 头尾插入 O(1)，按 ID 查找与删除 O(n)。
// 不变式：head == nil ⟺ tail == nil ⟺ size == 0
type ListIndex struct {
	head *listNode
	tail *listNode
	size int
}

// NewListIndex 创建一个空链表
func NewListIndex() *ListIndex {
	return &ListIndex{}
}

// Append 在尾部追加记录
// 链表为空时新节点同时成为头节点
func (l *ListIndex) Append(r storage.Record) {
	node := &listNode{record: r}
	if l.head == nil {
		l.head = node
	} else {
		l.tail.next = node
	}
	l.tail = node
	l.size++
}

// Prepend 在头部插入记录
// 链表为空时新节点同时成为尾节点
func (l *ListIndex) Prepend(r storage.Record) {
	node := &listNode{record: r, next: l.head}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.size++
}

// Insert 等价于 Append
func (l *ListIndex) Insert(r storage.Record) error {
	l.Append(r)
	return nil
}

// Search 从头节点线性查找
func (l *ListIndex) Search(id string) (storage.Record, bool) {
	for cur := l.head; cur != nil; cur = cur.next {
		if cur.record.ID == id {
			return cur.record, true
		}
	}
	return storage.Record{}, false
}

// Remove 删除第一条 ID 匹配的记录
// 参数：
//   - id: 记录 ID
//
// 返回：
//   - bool: 是否删除成功；空链表直接返回 false
func (l *ListIndex) Remove(id string) bool {
	if l.head == nil {
		return false
	}

	if l.head.record.ID == id {
		removed := l.head
		l.head = removed.next
		removed.next = nil
		if l.head == nil {
			l.tail = nil
		}
		l.size--
		return true
	}

	prev := l.head
	for cur := prev.next; cur != nil; prev, cur = cur, cur.next {
		if cur.record.ID != id {
			continue
		}
		prev.next = cur.next
		if cur == l.tail {
			l.tail = prev
		}
		cur.next = nil
		l.size--
		return true
	}
	return false
}

// All 从头到尾遍历
func (l *ListIndex) All() iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		for cur := l.head; cur != nil; cur = cur.next {
			if !yield(cur.record) {
				return
			}
		}
	}
}

// Size 返回节点数量，O(1)
func (l *ListIndex) Size() int {
	return l.size
}

// IsEmpty 判断链表是否处于空状态
func (l *ListIndex) IsEmpty() bool {
	return l.head == nil && l.tail == nil && l.size == 0
}

// Close 逐个断开节点
func (l *ListIndex) Close() {
	for cur := l.head; cur != nil; {
		next := cur.next
		cur.next = nil
		cur = next
	}
	l.head, l.tail, l.size = nil, nil, 0
}

var _ KeyedIndex = (*ListIndex)(nil)
