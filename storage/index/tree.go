package index

import (
	"iter"

	"github.com/forever-free1/bidindex/storage"
)

// treeNode 二叉搜索树节点
type treeNode struct {
	record storage.Record
	left   *treeNode
	right  *treeNode
}

// TreeIndex 是按 ID 字典序组织的非平衡二叉搜索树
//
// 比较是逐字节的字符串比较而不是数值比较，因此 "10" < "2"。
// 重复 ID 会插入到右子树，树不负责去重。
// 形状不变式：左子孙 ID ≤ 节点 ID ≤ 右子孙 ID。
type TreeIndex struct {
	root *treeNode
	size int
}

// NewTreeIndex 创建一棵空树
func NewTreeIndex() *TreeIndex {
	return &TreeIndex{}
}

// Insert 写入记录，O(h)
func (t *TreeIndex) Insert(r storage.Record) error {
	if t.root == nil {
		t.root = &treeNode{record: r}
	} else {
		addNode(t.root, r)
	}
	t.size++
	return nil
}

// addNode 递归地找到第一个空子节点位置
// 节点 ID 大于新 ID 时向左，否则（包括相等）向右
func addNode(n *treeNode, r storage.Record) {
	if n.record.ID > r.ID {
		if n.left == nil {
			n.left = &treeNode{record: r}
			return
		}
		addNode(n.left, r)
		return
	}
	if n.right == nil {
		n.right = &treeNode{record: r}
		return
	}
	addNode(n.right, r)
}

// Search 从根节点迭代下降查找
func (t *TreeIndex) Search(id string) (storage.Record, bool) {
	cur := t.root
	for cur != nil {
		switch {
		case cur.record.ID == id:
			return cur.record, true
		case cur.record.ID > id:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return storage.Record{}, false
}

// Remove 删除一个 ID 匹配的节点
// 返回：
//   - bool: 是否删除了节点；子树为空时为无操作
func (t *TreeIndex) Remove(id string) bool {
	var removed bool
	t.root, removed = removeNode(t.root, id)
	if removed {
		t.size--
	}
	return removed
}

// removeNode 在以 n 为根的子树中删除 id，返回新的子树根
// 三种情况：
//  1. 叶子节点：直接摘除
//  2. 只有一个子节点：用子节点顶替
//  3. 两个子节点：把中序后继的记录复制到当前节点，再从右子树中摘除后继原节点
func removeNode(n *treeNode, id string) (*treeNode, bool) {
	if n == nil {
		return nil, false
	}

	var removed bool
	switch {
	case n.record.ID > id:
		n.left, removed = removeNode(n.left, id)
		return n, removed
	case n.record.ID < id:
		n.right, removed = removeNode(n.right, id)
		return n, removed
	}

	switch {
	case n.left == nil && n.right == nil:
		return nil, true
	case n.right == nil:
		child := n.left
		n.left = nil
		return child, true
	case n.left == nil:
		child := n.right
		n.right = nil
		return child, true
	}

	var successor storage.Record
	n.right, successor = removeMin(n.right)
	n.record = successor
	return n, true
}

// removeMin 摘除子树中最左的节点（中序后继），返回新的子树根与被摘除的记录
// 按位置而不是按 ID 删除，重复 ID 时也只会摘除后继本身
func removeMin(n *treeNode) (*treeNode, storage.Record) {
	if n.left == nil {
		child := n.right
		n.right = nil
		return child, n.record
	}
	var r storage.Record
	n.left, r = removeMin(n.left)
	return n, r
}

// InOrder 中序遍历（左、根、右），按 ID 字典序升序产出
func (t *TreeIndex) InOrder() iter.Seq[storage.Record] {
	return func(yield func(storage.Record) bool) {
		inOrder(t.root, yield)
	}
}

// inOrder 递归遍历，yield 返回 false 时整棵树停止遍历
func inOrder(n *treeNode, yield func(storage.Record) bool) bool {
	if n == nil {
		return true
	}
	return inOrder(n.left, yield) && yield(n.record) && inOrder(n.right, yield)
}

// All 等价于 InOrder
func (t *TreeIndex) All() iter.Seq[storage.Record] {
	return t.InOrder()
}

// Size 返回节点数量
func (t *TreeIndex) Size() int {
	return t.size
}

// Height 返回树高，空树为 0
func (t *TreeIndex) Height() int {
	return height(t.root)
}

func height(n *treeNode) int {
	if n == nil {
		return 0
	}
	return 1 + max(height(n.left), height(n.right))
}

// Min 返回 ID 最小的记录
func (t *TreeIndex) Min() (storage.Record, bool) {
	if t.root == nil {
		return storage.Record{}, false
	}
	cur := t.root
	for cur.left != nil {
		cur = cur.left
	}
	return cur.record, true
}

// Max 返回 ID 最大的记录
func (t *TreeIndex) Max() (storage.Record, bool) {
	if t.root == nil {
		return storage.Record{}, false
	}
	cur := t.root
	for cur.right != nil {
		cur = cur.right
	}
	return cur.record, true
}

// Close 释放整棵树
func (t *TreeIndex) Close() {
	t.root = nil
	t.size = 0
}

var _ KeyedIndex = (*TreeIndex)(nil)
