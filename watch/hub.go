package watch

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	art "github.com/plar/go-adaptive-radix-tree"

	"github.com/forever-free1/bidindex/storage"
)

// ==================== 事件定义 ====================

// EventType 定义事件类型
type EventType string

const (
	EventInsert EventType = "insert"
	EventRemove EventType = "remove"
)

// Event 表示一次记录变更
type Event struct {
	Type   EventType      `json:"type"`
	ID     string         `json:"id"`
	Record storage.Record `json:"record"` // insert 为写入的记录，remove 为被删除前的记录
}

// JSON 将事件编码为一行 JSON，用于 SSE 推送
func (e *Event) JSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(data), nil
}

// ==================== Watcher 定义 ====================

// Watcher 是一个订阅者
// 只接收 ID 以 Prefix 开头的事件，Prefix 为空表示订阅全部
type Watcher struct {
	Ch     chan *Event
	Prefix string

	closed  bool
	dropped atomic.Uint64
}

func newWatcher(prefix string, bufferSize int) *Watcher {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Watcher{
		Ch:     make(chan *Event, bufferSize),
		Prefix: prefix,
	}
}

func (w *Watcher) close() {
	if !w.closed {
		close(w.Ch)
		w.closed = true
	}
}

// ==================== Hub 定义 ====================

// Hub 事件通知中心
// 带前缀的 watcher 挂在 ART 树上，按事件 ID 的每个前缀查找；
// 空前缀的 watcher 单独保存，匹配所有事件。
type Hub struct {
	mu         sync.RWMutex
	prefixTree art.Tree
	catchAll   []*Watcher
	count      int
	dropped    atomic.Uint64
}

// NewHub 创建新的通知中心
func NewHub() *Hub {
	return &Hub{
		prefixTree: art.New(),
	}
}

// Watch 注册一个新的 Watcher
//
// 参数：
//   - prefix: 关注的 ID 前缀，为空表示关注全部
//   - bufferSize: 事件通道的缓冲区大小，通道满时新事件会被丢弃
//
// 返回：
//   - *Watcher: 注册的 Watcher 实例
func (h *Hub) Watch(prefix string, bufferSize int) *Watcher {
	w := newWatcher(prefix, bufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if prefix == "" {
		h.catchAll = append(h.catchAll, w)
	} else {
		var list []*Watcher
		if val, found := h.prefixTree.Search(art.Key(prefix)); found {
			list = val.([]*Watcher)
		}
		h.prefixTree.Insert(art.Key(prefix), append(list, w))
	}
	h.count++
	return w
}

// Unregister 取消注册并关闭 Watcher 的通道，重复调用是无操作
func (h *Hub) Unregister(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if w.closed {
		return
	}

	if w.Prefix == "" {
		h.catchAll = removeWatcher(h.catchAll, w)
	} else if val, found := h.prefixTree.Search(art.Key(w.Prefix)); found {
		list := removeWatcher(val.([]*Watcher), w)
		if len(list) > 0 {
			h.prefixTree.Insert(art.Key(w.Prefix), list)
		} else {
			h.prefixTree.Delete(art.Key(w.Prefix))
		}
	}

	w.close()
	h.count--
}

// ==================== 事件通知 ====================

// NotifyInsert 通知记录写入
func (h *Hub) NotifyInsert(r storage.Record) {
	h.notify(&Event{Type: EventInsert, ID: r.ID, Record: r})
}

// NotifyRemove 通知记录删除
func (h *Hub) NotifyRemove(r storage.Record) {
	h.notify(&Event{Type: EventRemove, ID: r.ID, Record: r})
}

// notify 非阻塞地投递事件，通道已满的 watcher 会丢失该事件
func (h *Hub) notify(e *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, w := range h.matching(e.ID) {
		select {
		case w.Ch <- e:
		default:
			w.dropped.Add(1)
			h.dropped.Add(1)
		}
	}
}

// FindWatchers 返回所有会收到该 ID 事件的 watcher
func (h *Hub) FindWatchers(id string) []*Watcher {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.matching(id)
}

// matching 依次查找 id[:1] .. id[:len(id)]，调用方需持有锁
func (h *Hub) matching(id string) []*Watcher {
	result := make([]*Watcher, 0, len(h.catchAll))
	result = append(result, h.catchAll...)
	for i := 1; i <= len(id); i++ {
		if val, found := h.prefixTree.Search(art.Key(id[:i])); found {
			result = append(result, val.([]*Watcher)...)
		}
	}
	return result
}

// ==================== 工具方法 ====================

// Count 返回当前注册的 watcher 数量
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Dropped 返回因通道已满而丢弃的事件总数
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Dropped 返回该 watcher 丢失的事件数
func (w *Watcher) Dropped() uint64 {
	return w.dropped.Load()
}

// Close 关闭所有 watcher
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, w := range h.catchAll {
		w.close()
	}
	h.prefixTree.ForEach(func(node art.Node) bool {
		for _, w := range node.Value().([]*Watcher) {
			w.close()
		}
		return true
	}, art.TraverseLeaf)

	h.catchAll = nil
	h.prefixTree = art.New()
	h.count = 0
}

func (h *Hub) String() string {
	return fmt.Sprintf("Hub{watchers: %d}", h.Count())
}

func removeWatcher(list []*Watcher, w *Watcher) []*Watcher {
	for i, x := range list {
		if x == w {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
