package index

import (
	"cmp"
	"fmt"

	"github.com/njoroge/tembo/buffer"
	"github.com/njoroge/tembo/storage/disk"
)

// internalPage views a frame as an internal node: (key, child page id) pairs
// where slot 0 carries the leftmost child behind a sentinel key that is
// never consulted. A node of size n holds n pointers and n-1 live keys.
type internalPage[K cmp.Ordered] struct {
	nodePage
	codec KeyCodec[K]
}

func internalView[K cmp.Ordered](data []byte, codec KeyCodec[K]) *internalPage[K] {
	return &internalPage[K]{nodePage{data}, codec}
}

func (p *internalPage[K]) init(pageId, parentId disk.PageID, maxSize int) {
	p.setPageType(INTERNAL_PAGE)
	p.setSize(0)
	p.setMaxSize(maxSize)
	p.setPageId(pageId)
	p.setParent(parentId)
}

func (p *internalPage[K]) entrySize() int {
	return p.codec.Size + 4
}

func (p *internalPage[K]) entryOff(idx int) int {
	return headerSize + idx*p.entrySize()
}

func (p *internalPage[K]) keyAt(idx int) K {
	return p.codec.Get(p.data[p.entryOff(idx):])
}

func (p *internalPage[K]) setKeyAt(idx int, key K) {
	p.codec.Put(p.data[p.entryOff(idx):], key)
}

func (p *internalPage[K]) childAt(idx int) disk.PageID {
	return disk.PageID(p.int32At(p.entryOff(idx) + p.codec.Size))
}

func (p *internalPage[K]) setChildAt(idx int, id disk.PageID) {
	p.putInt32(p.entryOff(idx)+p.codec.Size, int32(id))
}

// valueIndex returns the position of the given child pointer, or -1.
func (p *internalPage[K]) valueIndex(child disk.PageID) int {
	for idx := 0; idx < p.getSize(); idx++ {
		if p.childAt(idx) == child {
			return idx
		}
	}

	return -1
}

// lookup returns the child to descend into for key. Scanning starts at 1,
// the slot 0 key is a sentinel.
func (p *internalPage[K]) lookup(key K, cmp Comparator[K]) disk.PageID {
	for idx := 1; idx < p.getSize(); idx++ {
		if cmp(key, p.keyAt(idx)) < 0 {
			return p.childAt(idx - 1)
		}
	}

	return p.childAt(p.getSize() - 1)
}

// insertNodeAfter places (key, child) immediately after the entry holding
// oldChild and returns the new size. The caller guarantees headroom: the
// physical page always fits one entry past maxSize so a full node can
// accept the entry that triggers its split.
func (p *internalPage[K]) insertNodeAfter(oldChild disk.PageID, key K, child disk.PageID) int {
	idx := p.valueIndex(oldChild)
	if idx < 0 {
		panic(fmt.Sprintf("page %d is not a child of page %d", oldChild, p.pageId()))
	}

	p.shiftRightFrom(idx + 1)
	p.setKeyAt(idx+1, key)
	p.setChildAt(idx+1, child)
	p.increaseSize(1)

	return p.getSize()
}

// populateNewRoot seeds a fresh root with its two children after the old
// root split.
func (p *internalPage[K]) populateNewRoot(oldChild disk.PageID, key K, newChild disk.PageID) {
	p.setChildAt(0, oldChild)
	p.setKeyAt(1, key)
	p.setChildAt(1, newChild)
	p.setSize(2)
}

// moveHalfTo transfers the upper half of the entries to an empty recipient,
// re-parenting every moved child. The recipient's slot 0 key is the
// separator the caller pushes up before it becomes a sentinel.
func (p *internalPage[K]) moveHalfTo(dst *internalPage[K], bpm *buffer.BufferpoolManager) error {
	size := p.getSize()
	split := (size + 1) / 2
	moved := size - split

	copy(dst.data[dst.entryOff(0):], p.data[p.entryOff(split):p.entryOff(size)])
	dst.setSize(moved)
	p.setSize(split)

	for idx := 0; idx < moved; idx++ {
		if err := adoptChild(bpm, dst.childAt(idx), dst.pageId()); err != nil {
			return err
		}
	}

	return nil
}

// moveAllTo appends the parent separator paired with this node's leftmost
// child, then the remaining entries, re-parenting each child. The caller
// removes this node afterwards.
func (p *internalPage[K]) moveAllTo(dst *internalPage[K], middleKey K, bpm *buffer.BufferpoolManager) error {
	size := p.getSize()
	n := dst.getSize()

	dst.setKeyAt(n, middleKey)
	dst.setChildAt(n, p.childAt(0))
	copy(dst.data[dst.entryOff(n+1):], p.data[p.entryOff(1):p.entryOff(size)])
	dst.increaseSize(size)
	p.setSize(0)

	for idx := n; idx < n+size; idx++ {
		if err := adoptChild(bpm, dst.childAt(idx), dst.pageId()); err != nil {
			return err
		}
	}

	return nil
}

// moveFirstToEndOf appends (middleKey, leftmost child) to the recipient and
// shifts this node left. The caller replaces the parent separator with the
// key now sitting in this node's sentinel slot.
func (p *internalPage[K]) moveFirstToEndOf(dst *internalPage[K], middleKey K, bpm *buffer.BufferpoolManager) error {
	n := dst.getSize()
	moved := p.childAt(0)

	dst.setKeyAt(n, middleKey)
	dst.setChildAt(n, moved)
	dst.increaseSize(1)

	copy(p.data[p.entryOff(0):], p.data[p.entryOff(1):p.entryOff(p.getSize())])
	p.increaseSize(-1)

	return adoptChild(bpm, moved, dst.pageId())
}

// moveLastToFrontOf prepends this node's last child to the recipient; the
// demoted parent separator becomes the recipient's first live key.
func (p *internalPage[K]) moveLastToFrontOf(dst *internalPage[K], middleKey K, bpm *buffer.BufferpoolManager) error {
	last := p.getSize() - 1
	moved := p.childAt(last)

	dst.shiftRightFrom(0)
	dst.setChildAt(0, moved)
	dst.setKeyAt(1, middleKey)
	dst.increaseSize(1)
	p.increaseSize(-1)

	return adoptChild(bpm, moved, dst.pageId())
}

// remove deletes the entry at idx, compacting the tail. Only entries up to
// size-1 are touched.
func (p *internalPage[K]) remove(idx int) int {
	size := p.getSize()
	copy(p.data[p.entryOff(idx):], p.data[p.entryOff(idx+1):p.entryOff(size)])
	p.increaseSize(-1)

	return p.getSize()
}

func (p *internalPage[K]) shiftRightFrom(idx int) {
	size := p.getSize()
	copy(p.data[p.entryOff(idx+1):p.entryOff(size+1)], p.data[p.entryOff(idx):p.entryOff(size)])
}
