package index

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/btree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBSTShape 校验左子孙 ≤ 节点 ≤ 右子孙
func assertBSTShape(t *testing.T, n *treeNode, lo, hi *string) {
	t.Helper()
	if n == nil {
		return
	}
	if lo != nil {
		require.GreaterOrEqual(t, n.record.ID, *lo)
	}
	if hi != nil {
		require.LessOrEqual(t, n.record.ID, *hi)
	}
	assertBSTShape(t, n.left, lo, &n.record.ID)
	assertBSTShape(t, n.right, &n.record.ID, hi)
}

func TestTree_LexicographicOrder(t *testing.T) {
	tr := NewTreeIndex()
	for _, id := range []string{"10", "2", "1"} {
		require.NoError(t, tr.Insert(bid(id, id)))
	}
	assert.Equal(t, []string{"1", "10", "2"}, ids(tr))
}

func TestTree_DuplicatesGoRight(t *testing.T) {
	tr := NewTreeIndex()
	require.NoError(t, tr.Insert(bid("5", "first")))
	require.NoError(t, tr.Insert(bid("5", "second")))

	assert.Equal(t, 2, tr.Size())
	assert.Nil(t, tr.root.left)
	require.NotNil(t, tr.root.right)
	assert.Equal(t, "second", tr.root.right.record.Title)
	assert.Equal(t, []string{"5", "5"}, ids(tr))

	assert.True(t, tr.Remove("5"))
	assert.True(t, tr.Remove("5"))
	assert.False(t, tr.Remove("5"))
	assert.Equal(t, 0, tr.Size())
}

func TestTree_RemoveCases(t *testing.T) {
	build := func() *TreeIndex {
		//         50
		//       /    \
		//     30      70
		//    /  \    /
		//   20  40  60
		//            \
		//            65
		tr := NewTreeIndex()
		for _, id := range []string{"50", "30", "70", "20", "40", "60", "65"} {
			require.NoError(t, tr.Insert(bid(id, "t"+id)))
		}
		return tr
	}

	t.Run("leaf", func(t *testing.T) {
		tr := build()
		require.True(t, tr.Remove("20"))
		assert.Nil(t, tr.root.left.left)
		assert.Equal(t, []string{"30", "40", "50", "60", "65", "70"}, ids(tr))
	})

	t.Run("one child", func(t *testing.T) {
		tr := build()
		require.True(t, tr.Remove("70"))
		assert.Equal(t, "60", tr.root.right.record.ID)
		assert.Equal(t, []string{"20", "30", "40", "50", "60", "65"}, ids(tr))
	})

	t.Run("two children", func(t *testing.T) {
		tr := build()
		require.True(t, tr.Remove("30"))
		assert.Equal(t, "40", tr.root.left.record.ID)
		assert.Equal(t, "t40", tr.root.left.record.Title)
		assert.Equal(t, []string{"20", "40", "50", "60", "65", "70"}, ids(tr))
	})

	t.Run("root with successor having right child", func(t *testing.T) {
		tr := build()
		require.True(t, tr.Remove("50"))
		assert.Equal(t, "60", tr.root.record.ID)
		assert.Equal(t, "65", tr.root.right.left.record.ID)
		assert.Equal(t, []string{"20", "30", "40", "60", "65", "70"}, ids(tr))
		assert.Equal(t, 6, tr.Size())
	})

	t.Run("missing", func(t *testing.T) {
		tr := build()
		assert.False(t, tr.Remove("55"))
		assert.Equal(t, 7, tr.Size())
	})

	t.Run("empty tree", func(t *testing.T) {
		assert.False(t, NewTreeIndex().Remove("1"))
	})
}

func TestTree_TwoChildrenWithDuplicateSuccessor(t *testing.T) {
	tr := NewTreeIndex()
	require.NoError(t, tr.Insert(bid("5", "a")))
	require.NoError(t, tr.Insert(bid("3", "b")))
	require.NoError(t, tr.Insert(bid("5", "c")))
	require.NoError(t, tr.Insert(bid("7", "d")))

	require.True(t, tr.Remove("5"))
	var titles []string
	for r := range tr.All() {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"b", "c", "d"}, titles)
}

func TestTree_MatchesOrderedOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := NewTreeIndex()
	oracle := btree.NewOrderedG[string](4)

	for i := 0; i < 2000; i++ {
		id := strconv.Itoa(rng.Intn(100000))
		if oracle.Has(id) {
			continue
		}
		oracle.ReplaceOrInsert(id)
		require.NoError(t, tr.Insert(bid(id, id)))
	}
	for i := 0; i < 800; i++ {
		id := strconv.Itoa(rng.Intn(100000))
		_, had := oracle.Delete(id)
		assert.Equal(t, had, tr.Remove(id), "remove %s", id)
	}

	var want []string
	oracle.Ascend(func(id string) bool {
		want = append(want, id)
		return true
	})
	assert.Equal(t, want, ids(tr))
	assert.Equal(t, oracle.Len(), tr.Size())
	assertBSTShape(t, tr.root, nil, nil)

	if minID, ok := oracle.Min(); ok {
		r, found := tr.Min()
		require.True(t, found)
		assert.Equal(t, minID, r.ID)
	}
	if maxID, ok := oracle.Max(); ok {
		r, found := tr.Max()
		require.True(t, found)
		assert.Equal(t, maxID, r.ID)
	}
}

func TestTree_HeightAndSearch(t *testing.T) {
	tr := NewTreeIndex()
	assert.Equal(t, 0, tr.Height())
	_, ok := tr.Min()
	assert.False(t, ok)

	// 有序插入退化为链表
	for _, id := range []string{"1", "2", "3", "4"} {
		require.NoError(t, tr.Insert(bid(id, id)))
	}
	assert.Equal(t, 4, tr.Height())

	r, ok := tr.Search("3")
	require.True(t, ok)
	assert.Equal(t, "3", r.Title)
	_, ok = tr.Search("33")
	assert.False(t, ok)

	tr.Close()
	assert.Equal(t, 0, tr.Size())
	assert.Equal(t, 0, tr.Height())
}
