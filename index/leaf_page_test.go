package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njoroge/tembo/storage/disk"
)

func newTestLeaf(t *testing.T, pageId disk.PageID, maxSize int) *leafPage[int64] {
	t.Helper()
	leaf := leafView(make([]byte, disk.PAGE_SIZE), Int64Codec)
	leaf.init(pageId, disk.INVALID_PAGE_ID, maxSize)
	return leaf
}

func leafKeys(p *leafPage[int64]) []int64 {
	keys := []int64{}
	for i := range p.getSize() {
		keys = append(keys, p.keyAt(i))
	}
	return keys
}

func TestLeafPage(t *testing.T) {
	cmp := OrderedComparator[int64]()

	t.Run("insert keeps keys sorted", func(t *testing.T) {
		leaf := newTestLeaf(t, 1, 10)

		for _, k := range []int64{5, 1, 9, 3} {
			leaf.insert(k, RID{PageId: 7, Slot: uint32(k)}, cmp)
		}

		assert.Equal(t, []int64{1, 3, 5, 9}, leafKeys(leaf))

		rid, found := leaf.lookup(3, cmp)
		assert.True(t, found)
		assert.Equal(t, RID{PageId: 7, Slot: 3}, rid)
	})

	t.Run("inserting a duplicate leaves the page untouched", func(t *testing.T) {
		leaf := newTestLeaf(t, 1, 10)

		assert.Equal(t, 1, leaf.insert(4, RID{Slot: 1}, cmp))
		assert.Equal(t, 1, leaf.insert(4, RID{Slot: 2}, cmp))

		rid, _ := leaf.lookup(4, cmp)
		assert.Equal(t, uint32(1), rid.Slot)
	})

	t.Run("keyIndex is a lower bound", func(t *testing.T) {
		leaf := newTestLeaf(t, 1, 10)
		for _, k := range []int64{10, 20, 30} {
			leaf.insert(k, RID{}, cmp)
		}

		assert.Equal(t, 0, leaf.keyIndex(5, cmp))
		assert.Equal(t, 1, leaf.keyIndex(15, cmp))
		assert.Equal(t, 1, leaf.keyIndex(20, cmp))
		assert.Equal(t, 3, leaf.keyIndex(35, cmp))
	})

	t.Run("removing an absent key is a no-op", func(t *testing.T) {
		leaf := newTestLeaf(t, 1, 10)
		leaf.insert(1, RID{}, cmp)

		assert.Equal(t, 1, leaf.removeRecord(2, cmp))
		assert.Equal(t, 0, leaf.removeRecord(1, cmp))
	})

	t.Run("moveHalfTo keeps the larger half", func(t *testing.T) {
		leaf := newTestLeaf(t, 1, 5)
		for k := int64(1); k <= 5; k++ {
			leaf.insert(k, RID{}, cmp)
		}

		sibling := newTestLeaf(t, 2, 5)
		leaf.moveHalfTo(sibling)

		assert.Equal(t, []int64{1, 2, 3}, leafKeys(leaf))
		assert.Equal(t, []int64{4, 5}, leafKeys(sibling))
	})

	t.Run("moveAllTo appends and inherits the next pointer", func(t *testing.T) {
		left := newTestLeaf(t, 1, 10)
		right := newTestLeaf(t, 2, 10)
		right.setNext(9)

		left.insert(1, RID{}, cmp)
		right.insert(2, RID{}, cmp)
		right.insert(3, RID{}, cmp)

		right.moveAllTo(left)

		assert.Equal(t, []int64{1, 2, 3}, leafKeys(left))
		assert.Equal(t, disk.PageID(9), left.next())
		assert.Equal(t, 0, right.getSize())
	})

	t.Run("sibling rotation primitives", func(t *testing.T) {
		left := newTestLeaf(t, 1, 10)
		right := newTestLeaf(t, 2, 10)

		for _, k := range []int64{1, 2} {
			left.insert(k, RID{}, cmp)
		}
		for _, k := range []int64{5, 6} {
			right.insert(k, RID{}, cmp)
		}

		right.moveFirstToEndOf(left)
		assert.Equal(t, []int64{1, 2, 5}, leafKeys(left))
		assert.Equal(t, []int64{6}, leafKeys(right))

		left.moveLastToFrontOf(right)
		assert.Equal(t, []int64{1, 2}, leafKeys(left))
		assert.Equal(t, []int64{5, 6}, leafKeys(right))
	})
}
