package index

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter 是记录 ID 的布隆过滤器，并发安全
// 用于在访问后端之前快速判断一个 ID 是否一定不存在。
// 布隆过滤器不支持删除，删除记录后该 ID 仍可能被判定为“可能存在”，
// 调用方需要再向权威数据源确认。
type BloomFilter struct {
	filter *bloom.BloomFilter
	n      uint
	fp     float64
	mu     sync.RWMutex
}

// NewBloomFilter 创建一个新的布隆过滤器
// 参数：
//   - n: 预期存储的 ID 数量
//   - fp: 期望的误判率
//
// 返回：
//   - *BloomFilter: 布隆过滤器指针
func NewBloomFilter(n uint, fp float64) *BloomFilter {
	return &BloomFilter{
		filter: bloom.NewWithEstimates(n, fp),
		n:      n,
		fp:     fp,
	}
}

// Add 添加一个 ID
func (bf *BloomFilter) Add(id string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.filter.AddString(id)
}

// MayContain 测试一个 ID 是否可能存在
// 返回：
//   - bool: true 表示可能存在，false 表示一定不存在
func (bf *BloomFilter) MayContain(id string) bool {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.TestString(id)
}

// Reset 清空过滤器，保持原有容量参数
func (bf *BloomFilter) Reset() {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	bf.filter = bloom.NewWithEstimates(bf.n, bf.fp)
}

// K 返回哈希函数数量
func (bf *BloomFilter) K() uint {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.K()
}

// Cap 返回位数组容量
func (bf *BloomFilter) Cap() uint {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.filter.Cap()
}
