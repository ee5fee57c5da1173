package storage

// Engine 是记录存储会话的抽象接口
// 由持有唯一后端的会话实现，HTTP 层与命令行只依赖该接口
type Engine interface {
	// Insert 写入一条记录
	// 参数：
	//   - r: 记录
	// 返回：
	//   - error: ID 重复返回 ErrDuplicateID，哈希后端 ID 非数字返回 ErrKeyFormat
	Insert(r Record) error

	// Search 根据 ID 精确查找记录
	// 参数：
	//   - id: 记录 ID
	// 返回：
	//   - Record: 记录
	//   - error: 不存在返回 ErrKeyNotFound
	Search(id string) (Record, error)

	// Remove 根据 ID 删除记录
	// 参数：
	//   - id: 记录 ID
	// 返回：
	//   - bool: 是否删除了记录
	//   - error: 后端不支持删除时返回 ErrUnsupported
	Remove(id string) (bool, error)

	// All 按后端定义的顺序返回全部记录
	All() []Record

	// Size 返回记录数量
	Size() int

	// Close 释放后端持有的全部节点
	Close() error
}
