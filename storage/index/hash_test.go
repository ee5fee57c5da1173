package index

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forever-free1/bidindex/storage"
)

func TestHash_BucketDeterminism(t *testing.T) {
	h := NewHashIndex(DefaultTableSize)
	b, err := h.Bucket("98109")
	require.NoError(t, err)
	assert.Equal(t, 17, b)

	// 17、196 与 98109 落在同一个桶
	for _, id := range []string{"17", "196"} {
		b, err := h.Bucket(id)
		require.NoError(t, err)
		assert.Equal(t, 17, b)
	}
}

func TestHash_DefaultTableSize(t *testing.T) {
	assert.Equal(t, DefaultTableSize, NewHashIndex(0).TableSize())
	assert.Equal(t, DefaultTableSize, NewHashIndex(-3).TableSize())
	assert.Equal(t, 7, NewHashIndex(7).TableSize())
}

func TestHash_RejectsNonNumericKeys(t *testing.T) {
	h := NewHashIndex(DefaultTableSize)
	for _, id := range []string{"abc", "", "-5", "12x", "1.5"} {
		err := h.Insert(bid(id, "bad"))
		require.Error(t, err, "id %q", id)
		assert.True(t, errors.Is(err, storage.ErrKeyFormat))

		_, ok := h.Search(id)
		assert.False(t, ok)
		assert.False(t, h.Remove(id))
	}
	assert.Equal(t, 0, h.Size())
	assert.Empty(t, ids(h))
}

func TestHash_ChainingKeepsSiblingsSearchable(t *testing.T) {
	h := NewHashIndex(DefaultTableSize)
	require.NoError(t, h.Insert(bid("98109", "first")))
	require.NoError(t, h.Insert(bid("17", "second")))
	require.NoError(t, h.Insert(bid("196", "third")))

	for _, id := range []string{"98109", "17", "196"} {
		_, ok := h.Search(id)
		assert.True(t, ok, "id %s", id)
	}
	assert.Equal(t, []string{"98109", "17", "196"}, ids(h))
}

func TestHash_RemovePreservesSiblings(t *testing.T) {
	cases := []struct {
		name   string
		remove string
		left   []string
	}{
		{"primary slot promotes first chain entry", "98109", []string{"17", "196"}},
		{"middle of chain", "17", []string{"98109", "196"}},
		{"end of chain", "196", []string{"98109", "17"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewHashIndex(DefaultTableSize)
			require.NoError(t, h.Insert(bid("5", "other bucket")))
			for _, id := range []string{"98109", "17", "196"} {
				require.NoError(t, h.Insert(bid(id, id)))
			}

			require.True(t, h.Remove(c.remove))
			_, ok := h.Search(c.remove)
			assert.False(t, ok)
			for _, id := range c.left {
				_, ok := h.Search(id)
				assert.True(t, ok, "sibling %s lost", id)
			}
			assert.Equal(t, append([]string{"5"}, c.left...), ids(h))
			assert.Equal(t, 3, h.Size())
		})
	}
}

func TestHash_BucketBecomesEmpty(t *testing.T) {
	h := NewHashIndex(DefaultTableSize)
	require.NoError(t, h.Insert(bid("98109", "a")))
	require.NoError(t, h.Insert(bid("17", "b")))

	require.True(t, h.Remove("98109"))
	require.True(t, h.Remove("17"))
	assert.Nil(t, h.buckets[17])

	// 空桶可以再次写入
	require.NoError(t, h.Insert(bid("196", "c")))
	r, ok := h.Search("196")
	require.True(t, ok)
	assert.Equal(t, "c", r.Title)
}

func TestHash_Buckets(t *testing.T) {
	h := NewHashIndex(10)
	for _, id := range []string{"3", "13", "7", "23"} {
		require.NoError(t, h.Insert(bid(id, id)))
	}

	got := map[int][]string{}
	var order []int
	for b, chain := range h.Buckets() {
		order = append(order, b)
		for _, r := range chain {
			got[b] = append(got[b], r.ID)
		}
	}
	assert.Equal(t, []int{3, 7}, order)
	assert.Equal(t, []string{"3", "13", "23"}, got[3])
	assert.Equal(t, []string{"7"}, got[7])
}
