package index

import (
	"cmp"

	"github.com/pkg/errors"

	"github.com/njoroge/tembo/buffer"
	"github.com/njoroge/tembo/storage/disk"
	"github.com/njoroge/tembo/util"
)

// IndexIterator walks the leaf chain in ascending key order. It holds no
// pin or latch between calls; every operation fetches its leaf, reads under
// a read latch and lets go again, so an iterator can be kept around
// indefinitely without starving the pool.
type IndexIterator[K cmp.Ordered] struct {
	bpm    *buffer.BufferpoolManager
	codec  KeyCodec[K]
	pageId disk.PageID
	pos    int
}

func (it *IndexIterator[K]) IsEnd() bool {
	return it.pageId == disk.INVALID_PAGE_ID
}

func (it *IndexIterator[K]) Equal(other *IndexIterator[K]) bool {
	return it.pageId == other.pageId && it.pos == other.pos
}

// Next returns the entry at the current position and advances, following
// the leaf chain across page boundaries. A concurrent writer may delete the
// leaf under the position; the iterator then terminates with an error.
func (it *IndexIterator[K]) Next() (K, RID, error) {
	var none K
	if it.IsEnd() {
		return none, RID{}, errors.New("iterator is exhausted")
	}

	frame := it.bpm.FetchPage(it.pageId)
	if frame == nil {
		return none, RID{}, util.NewBufferpoolExhaustedError()
	}
	frame.RLatch()

	leaf := leafView(frame.Data(), it.codec)
	if !leaf.isLeafPage() || it.pos >= leaf.getSize() {
		pageId := frame.PageId()
		frame.RUnlatch()
		it.bpm.UnpinPage(pageId, false)
		it.pageId = disk.INVALID_PAGE_ID
		it.pos = 0
		return none, RID{}, errors.New("iterator position no longer exists")
	}

	key, rid := leaf.item(it.pos)
	it.pos += 1
	if it.pos >= leaf.getSize() {
		it.pageId = leaf.next()
		it.pos = 0
	}

	frame.RUnlatch()
	it.bpm.UnpinPage(frame.PageId(), false)

	return key, rid, nil
}

// Begin positions an iterator at the smallest key.
func (b *BPlusTree[K]) Begin() (*IndexIterator[K], error) {
	b.rootMu.RLock()
	if b.rootPageId == disk.INVALID_PAGE_ID {
		b.rootMu.RUnlock()
		return b.End(), nil
	}

	frame, err := b.findLeafRead(nil)
	if err != nil {
		return nil, err
	}

	it := &IndexIterator[K]{bpm: b.bpm, codec: b.codec, pageId: frame.PageId()}
	frame.RUnlatch()
	b.bpm.UnpinPage(frame.PageId(), false)

	return it, nil
}

// BeginFrom positions an iterator at the first key >= key.
func (b *BPlusTree[K]) BeginFrom(key K) (*IndexIterator[K], error) {
	b.rootMu.RLock()
	if b.rootPageId == disk.INVALID_PAGE_ID {
		b.rootMu.RUnlock()
		return b.End(), nil
	}

	frame, err := b.findLeafRead(&key)
	if err != nil {
		return nil, err
	}

	leaf := leafView(frame.Data(), b.codec)
	it := &IndexIterator[K]{bpm: b.bpm, codec: b.codec, pageId: frame.PageId()}
	it.pos = leaf.keyIndex(key, b.cmp)
	if it.pos >= leaf.getSize() {
		it.pageId = leaf.next()
		it.pos = 0
	}

	frame.RUnlatch()
	b.bpm.UnpinPage(frame.PageId(), false)

	return it, nil
}

func (b *BPlusTree[K]) End() *IndexIterator[K] {
	return &IndexIterator[K]{bpm: b.bpm, codec: b.codec, pageId: disk.INVALID_PAGE_ID}
}
