package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forever-free1/bidindex/storage"
)

func TestHub_PrefixRouting(t *testing.T) {
	h := NewHub()
	all := h.Watch("", 4)
	p981 := h.Watch("981", 4)
	p98 := h.Watch("98", 4)
	other := h.Watch("12", 4)
	require.Equal(t, 4, h.Count())

	assert.ElementsMatch(t, []*Watcher{all, p98, p981}, h.FindWatchers("98109"))
	assert.ElementsMatch(t, []*Watcher{all}, h.FindWatchers("7"))

	h.NotifyInsert(storage.Record{ID: "98109", Title: "Chair"})

	for _, w := range []*Watcher{all, p98, p981} {
		select {
		case e := <-w.Ch:
			assert.Equal(t, EventInsert, e.Type)
			assert.Equal(t, "98109", e.ID)
			assert.Equal(t, "Chair", e.Record.Title)
		default:
			t.Fatalf("watcher %q got no event", w.Prefix)
		}
	}
	assert.Empty(t, other.Ch)
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	h := NewHub()
	a := h.Watch("1", 1)
	b := h.Watch("1", 1)

	h.Unregister(a)
	_, open := <-a.Ch
	assert.False(t, open)
	assert.Equal(t, 1, h.Count())
	assert.Equal(t, []*Watcher{b}, h.FindWatchers("1"))

	// 重复取消注册是无操作
	h.Unregister(a)
	assert.Equal(t, 1, h.Count())

	h.Unregister(b)
	assert.Empty(t, h.FindWatchers("1"))
	assert.Equal(t, 0, h.Count())
}

func TestHub_FullChannelDropsEvent(t *testing.T) {
	h := NewHub()
	w := h.Watch("", 1)

	h.NotifyInsert(storage.Record{ID: "1"})
	h.NotifyRemove(storage.Record{ID: "1"})

	e := <-w.Ch
	assert.Equal(t, EventInsert, e.Type)
	assert.Equal(t, uint64(1), w.Dropped())
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	a := h.Watch("", 1)
	b := h.Watch("5", 1)
	h.Close()

	for _, w := range []*Watcher{a, b} {
		_, open := <-w.Ch
		assert.False(t, open)
	}
	assert.Equal(t, 0, h.Count())
	h.Unregister(a)
	assert.Equal(t, 0, h.Count())
}

func TestEvent_JSON(t *testing.T) {
	e := &Event{Type: EventRemove, ID: "7", Record: storage.Record{ID: "7", Title: "Desk", Amount: 2.5}}
	s, err := e.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"remove","id":"7","record":{"id":"7","title":"Desk","fund":"","amount":2.5}}`, s)
}
