package index

import (
	art "github.com/plar/go-adaptive-radix-tree"
)

// IDDirectory 是基于自适应基数树（Adaptive Radix Tree）的 ID 集合
// 会话用它在所有后端之上保证 ID 唯一，并支持按前缀列出 ID。
// 只保存 ID，不保存记录本身，记录仍由后端独占。
type IDDirectory struct {
	tree art.Tree
}

// NewIDDirectory 创建一个空的 ID 集合
func NewIDDirectory() *IDDirectory {
	return &IDDirectory{
		tree: art.New(),
	}
}

// Add 添加 ID
// 返回：
//   - bool: ID 原本不存在时为 true
func (d *IDDirectory) Add(id string) bool {
	_, updated := d.tree.Insert(art.Key(id), struct{}{})
	return !updated
}

// Contains 判断 ID 是否存在
func (d *IDDirectory) Contains(id string) bool {
	_, found := d.tree.Search(art.Key(id))
	return found
}

// Delete 删除 ID
// 返回：
//   - bool: 是否删除成功
func (d *IDDirectory) Delete(id string) bool {
	_, deleted := d.tree.Delete(art.Key(id))
	return deleted
}

// WithPrefix 按字典序返回所有以 prefix 开头的 ID
func (d *IDDirectory) WithPrefix(prefix string) []string {
	var ids []string
	collect := func(node art.Node) bool {
		if node.Kind() == art.Leaf {
			ids = append(ids, string(node.Key()))
		}
		return true
	}
	if prefix == "" {
		d.tree.ForEach(collect, art.TraverseLeaf)
	} else {
		d.tree.ForEachPrefix(art.Key(prefix), collect)
	}
	return ids
}

// Size 返回 ID 数量
func (d *IDDirectory) Size() int {
	return d.tree.Size()
}

// Reset 清空集合
func (d *IDDirectory) Reset() {
	d.tree = art.New()
}
