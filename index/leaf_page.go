package index

import (
	"cmp"

	"github.com/njoroge/tembo/storage/disk"
)

// leafPage views a frame as a leaf node: (key, RID) pairs in ascending key
// order plus a next pointer chaining leaves left to right.
type leafPage[K cmp.Ordered] struct {
	nodePage
	codec KeyCodec[K]
}

func leafView[K cmp.Ordered](data []byte, codec KeyCodec[K]) *leafPage[K] {
	return &leafPage[K]{nodePage{data}, codec}
}

func (p *leafPage[K]) init(pageId, parentId disk.PageID, maxSize int) {
	p.setPageType(LEAF_PAGE)
	p.setSize(0)
	p.setMaxSize(maxSize)
	p.setPageId(pageId)
	p.setParent(parentId)
	p.setNext(disk.INVALID_PAGE_ID)
}

func (p *leafPage[K]) next() disk.PageID {
	return disk.PageID(p.int32At(offNext))
}

func (p *leafPage[K]) setNext(id disk.PageID) {
	p.putInt32(offNext, int32(id))
}

func (p *leafPage[K]) entrySize() int {
	return p.codec.Size + ridSize
}

func (p *leafPage[K]) entryOff(idx int) int {
	return leafHeaderSize + idx*p.entrySize()
}

func (p *leafPage[K]) keyAt(idx int) K {
	return p.codec.Get(p.data[p.entryOff(idx):])
}

func (p *leafPage[K]) ridAt(idx int) RID {
	return getRid(p.data[p.entryOff(idx)+p.codec.Size:])
}

func (p *leafPage[K]) item(idx int) (K, RID) {
	return p.keyAt(idx), p.ridAt(idx)
}

func (p *leafPage[K]) setEntry(idx int, key K, rid RID) {
	off := p.entryOff(idx)
	p.codec.Put(p.data[off:], key)
	putRid(p.data[off+p.codec.Size:], rid)
}

// keyIndex returns the first position whose key is >= key.
func (p *leafPage[K]) keyIndex(key K, cmp Comparator[K]) int {
	left := 0
	right := p.getSize() - 1

	for left <= right {
		mid := left + (right-left)/2
		if cmp(p.keyAt(mid), key) < 0 {
			left = mid + 1
		} else {
			right = mid - 1
		}
	}

	return left
}

func (p *leafPage[K]) lookup(key K, cmp Comparator[K]) (RID, bool) {
	idx := p.keyIndex(key, cmp)
	if idx < p.getSize() && cmp(p.keyAt(idx), key) == 0 {
		return p.ridAt(idx), true
	}

	return RID{}, false
}

// insert places (key, rid) at the key's sorted position and returns the new
// size. A duplicate key leaves the page untouched.
func (p *leafPage[K]) insert(key K, rid RID, cmp Comparator[K]) int {
	idx := p.keyIndex(key, cmp)
	if idx < p.getSize() && cmp(p.keyAt(idx), key) == 0 {
		return p.getSize()
	}

	p.shiftRightFrom(idx)
	p.setEntry(idx, key, rid)
	p.increaseSize(1)

	return p.getSize()
}

// removeRecord deletes the key's entry if present and returns the new size.
func (p *leafPage[K]) removeRecord(key K, cmp Comparator[K]) int {
	idx := p.keyIndex(key, cmp)
	if idx >= p.getSize() || cmp(p.keyAt(idx), key) != 0 {
		return p.getSize()
	}

	copy(p.data[p.entryOff(idx):], p.data[p.entryOff(idx+1):p.entryOff(p.getSize())])
	p.increaseSize(-1)

	return p.getSize()
}

// moveHalfTo transfers the upper half of the entries to an empty recipient.
// This page keeps the larger half when the count is odd.
func (p *leafPage[K]) moveHalfTo(dst *leafPage[K]) {
	size := p.getSize()
	split := (size + 1) / 2
	moved := size - split

	copy(dst.data[dst.entryOff(0):], p.data[p.entryOff(split):p.entryOff(size)])
	dst.setSize(moved)
	p.setSize(split)
}

// moveAllTo appends every entry to the recipient, which also inherits this
// page's next pointer. The caller unlinks and deletes this page.
func (p *leafPage[K]) moveAllTo(dst *leafPage[K]) {
	size := p.getSize()
	n := dst.getSize()

	copy(dst.data[dst.entryOff(n):], p.data[p.entryOff(0):p.entryOff(size)])
	dst.increaseSize(size)
	dst.setNext(p.next())
	p.setSize(0)
}

func (p *leafPage[K]) moveFirstToEndOf(dst *leafPage[K]) {
	n := dst.getSize()
	copy(dst.data[dst.entryOff(n):dst.entryOff(n+1)], p.data[p.entryOff(0):p.entryOff(1)])
	dst.increaseSize(1)

	copy(p.data[p.entryOff(0):], p.data[p.entryOff(1):p.entryOff(p.getSize())])
	p.increaseSize(-1)
}

func (p *leafPage[K]) moveLastToFrontOf(dst *leafPage[K]) {
	last := p.getSize() - 1

	dst.shiftRightFrom(0)
	copy(dst.data[dst.entryOff(0):dst.entryOff(1)], p.data[p.entryOff(last):p.entryOff(last+1)])
	dst.increaseSize(1)
	p.increaseSize(-1)
}

// shiftRightFrom opens a one-entry hole at idx. copy handles the overlap
// like memmove.
func (p *leafPage[K]) shiftRightFrom(idx int) {
	size := p.getSize()
	copy(p.data[p.entryOff(idx+1):p.entryOff(size+1)], p.data[p.entryOff(idx):p.entryOff(size)])
}
