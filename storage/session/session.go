package session

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/forever-free1/bidindex/storage"
	"github.com/forever-free1/bidindex/storage/index"
	"github.com/forever-free1/bidindex/watch"
)

// SortAlgorithm 选择顺序表的排序算法
type SortAlgorithm int

const (
	SortSelection SortAlgorithm = iota
	SortQuick
)

func (a SortAlgorithm) String() string {
	if a == SortQuick {
		return "quick"
	}
	return "selection"
}

// ParseSortAlgorithm 解析算法名，空字符串为快速排序
func ParseSortAlgorithm(name string) (SortAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "quick", "quicksort":
		return SortQuick, nil
	case "selection", "select":
		return SortSelection, nil
	default:
		return SortQuick, fmt.Errorf("unknown sort algorithm %q", name)
	}
}

// Bucket 是哈希后端中一个非空桶的快照
type Bucket struct {
	Index   int
	Records []storage.Record
}

// Session 持有唯一的一个后端，以及后端之上的 ID 目录与布隆过滤器
// 所有操作都经过读写锁，HTTP 层可以并发调用
type Session struct {
	mu      sync.RWMutex
	typ     index.Type
	idx     index.Index
	ids     *index.IDDirectory // 权威的 ID 集合，保证所有后端上的 ID 唯一
	bloom   *index.BloomFilter // ID 的快速否定判断
	hub     *watch.Hub
	logger  hclog.Logger
	metrics *metrics
	reg     *prometheus.Registry
}

// Open 创建一个会话
// 参数：
//   - opts: 配置选项
//
// 返回：
//   - *Session: 会话指针
//   - error: 后端类型未知或指标注册失败
func Open(opts ...Option) (*Session, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	idx, err := index.New(options.Backend, index.WithTableSize(options.TableSize))
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	reg := options.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m, err := newMetrics(reg, options.Backend.String())
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	s := &Session{
		typ:     options.Backend,
		idx:     idx,
		ids:     index.NewIDDirectory(),
		bloom:   index.NewBloomFilter(options.BloomExpected, options.BloomFP),
		hub:     options.Hub,
		logger:  logger.Named("session"),
		metrics: m,
		reg:     reg,
	}
	m.setSize(0)
	s.logger.Debug("session opened", "backend", s.typ, "table_size", options.TableSize,
		"bloom_k", s.bloom.K(), "bloom_bits", s.bloom.Cap())
	return s, nil
}

// Backend 返回后端类型
func (s *Session) Backend() index.Type {
	return s.typ
}

// Insert 写入一条记录（顺序表与链表追加到末尾）
// 返回：
//   - error: ID 已存在返回 ErrDuplicateID；哈希后端 ID 非数字返回 ErrKeyFormat
func (s *Session) Insert(r storage.Record) error {
	defer s.metrics.observe("insert", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDuplicate(r.ID); err != nil {
		return err
	}
	if err := s.idx.Insert(r); err != nil {
		return err
	}
	s.inserted(r)
	return nil
}

// Prepend 把记录插入到链表头部，只有链表后端支持
func (s *Session) Prepend(r storage.Record) error {
	defer s.metrics.observe("prepend", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.idx.(*index.ListIndex)
	if !ok {
		return fmt.Errorf("%w: prepend on %s backend", storage.ErrUnsupported, s.typ)
	}
	if err := s.checkDuplicate(r.ID); err != nil {
		return err
	}
	list.Prepend(r)
	s.inserted(r)
	return nil
}

// checkDuplicate 先查布隆过滤器，可能存在时再查 ID 目录确认
func (s *Session) checkDuplicate(id string) error {
	if s.bloom.MayContain(id) && s.ids.Contains(id) {
		return fmt.Errorf("%w: %q", storage.ErrDuplicateID, id)
	}
	return nil
}

// inserted 在后端写入成功后更新 ID 目录、过滤器、指标并发布事件，调用方需持有写锁
func (s *Session) inserted(r storage.Record) {
	s.ids.Add(r.ID)
	s.bloom.Add(r.ID)
	s.metrics.setSize(s.idx.Size())
	if s.hub != nil {
		s.hub.NotifyInsert(r)
	}
}

// Search 根据 ID 查找记录
// 布隆过滤器判定不存在时直接返回，不访问后端；顺序表退化为线性扫描
func (s *Session) Search(id string) (storage.Record, error) {
	defer s.metrics.observe("search", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.bloom.MayContain(id) {
		return storage.Record{}, storage.ErrKeyNotFound
	}
	if r, ok := s.lookup(id); ok {
		return r, nil
	}
	return storage.Record{}, storage.ErrKeyNotFound
}

func (s *Session) lookup(id string) (storage.Record, bool) {
	if keyed, ok := s.idx.(index.KeyedIndex); ok {
		return keyed.Search(id)
	}
	for r := range s.idx.All() {
		if r.ID == id {
			return r, true
		}
	}
	return storage.Record{}, false
}

// Remove 根据 ID 删除记录
// 返回：
//   - bool: 是否删除了记录，ID 不存在时为 false
//   - error: 顺序表后端返回 ErrUnsupported
func (s *Session) Remove(id string) (bool, error) {
	defer s.metrics.observe("remove", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	keyed, ok := s.idx.(index.KeyedIndex)
	if !ok {
		return false, fmt.Errorf("%w: remove on %s backend", storage.ErrUnsupported, s.typ)
	}

	prev, found := keyed.Search(id)
	if !found || !keyed.Remove(id) {
		return false, nil
	}

	// 布隆过滤器不支持删除，由 ID 目录做最终确认
	s.ids.Delete(id)
	s.metrics.setSize(s.idx.Size())
	if s.hub != nil {
		s.hub.NotifyRemove(prev)
	}
	return true, nil
}

// All 按后端定义的顺序返回全部记录的副本
func (s *Session) All() []storage.Record {
	defer s.metrics.observe("all", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(s.idx.All())
}

// Size 返回记录数量
func (s *Session) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.Size()
}

// Sort 对顺序表原地排序，其他后端返回 ErrUnsupported
func (s *Session) Sort(field storage.Field, algo SortAlgorithm) error {
	defer s.metrics.observe("sort_"+algo.String(), time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	sorter, ok := s.idx.(index.Sorter)
	if !ok {
		return fmt.Errorf("%w: sort on %s backend", storage.ErrUnsupported, s.typ)
	}
	switch algo {
	case SortSelection:
		sorter.SortBySelection(field)
	default:
		sorter.SortByQuick(field)
	}
	s.logger.Debug("sorted", "field", field, "algo", algo, "size", s.idx.Size())
	return nil
}

// Buckets 返回哈希后端所有非空桶的快照
// 返回：
//   - []Bucket: 按桶下标升序
//   - bool: 后端不是哈希表时为 false
func (s *Session) Buckets() ([]Bucket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.idx.(*index.HashIndex)
	if !ok {
		return nil, false
	}
	var out []Bucket
	for b, chain := range h.Buckets() {
		out = append(out, Bucket{Index: b, Records: chain})
	}
	return out, true
}

// TreeSummary 是树后端的形状摘要
type TreeSummary struct {
	Size   int
	Height int
	Min    storage.Record
	Max    storage.Record
}

// TreeStats 返回树后端的高度与最小、最大 ID
// 返回：
//   - TreeSummary: 空树时 Min/Max 为零值
//   - bool: 后端不是二叉搜索树时为 false
func (s *Session) TreeStats() (TreeSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.idx.(*index.TreeIndex)
	if !ok {
		return TreeSummary{}, false
	}
	sum := TreeSummary{Size: t.Size(), Height: t.Height()}
	sum.Min, _ = t.Min()
	sum.Max, _ = t.Max()
	return sum, true
}

// IDsWithPrefix 按字典序返回所有以 prefix 开头的 ID
func (s *Session) IDsWithPrefix(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids.WithPrefix(prefix)
}

// Gatherer 返回会话使用的指标注册表
func (s *Session) Gatherer() prometheus.Gatherer {
	return s.reg
}

// Close 释放后端的全部节点并清空 ID 目录与过滤器，之后会话仍可继续写入
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.idx.Size()
	s.idx.Close()
	s.ids.Reset()
	s.bloom.Reset()
	s.metrics.setSize(0)
	s.logger.Debug("session closed", "released", n)
	return nil
}

var _ storage.Engine = (*Session)(nil)
