package index

import (
	"encoding/binary"

	"github.com/njoroge/tembo/buffer"
	"github.com/njoroge/tembo/storage/disk"
	"github.com/njoroge/tembo/util"
)

// Node header layout, shared by leaf and internal pages:
//
//	[0:4]    page type
//	[4:8]    size
//	[8:12]   max size
//	[12:16]  this page id
//	[16:20]  parent page id
//	[20:24]  next page id (leaf only)
//
// Entries follow the header back to back, keys and values both fixed width.
const (
	offPageType = 0
	offSize     = 4
	offMaxSize  = 8
	offPageId   = 12
	offParent   = 16
	headerSize  = 20

	offNext        = 20
	leafHeaderSize = 24
)

// nodePage interprets a frame's bytes through the shared header. It is a
// view, not a copy; mutations land in the frame directly.
type nodePage struct {
	data []byte
}

func (p nodePage) pageType() PAGE_TYPE {
	return PAGE_TYPE(p.int32At(offPageType))
}

func (p nodePage) setPageType(t PAGE_TYPE) {
	p.putInt32(offPageType, int32(t))
}

func (p nodePage) isLeafPage() bool {
	return p.pageType() == LEAF_PAGE
}

func (p nodePage) getSize() int {
	return int(p.int32At(offSize))
}

func (p nodePage) setSize(n int) {
	p.putInt32(offSize, int32(n))
}

func (p nodePage) increaseSize(delta int) {
	p.setSize(p.getSize() + delta)
}

func (p nodePage) maxSize() int {
	return int(p.int32At(offMaxSize))
}

func (p nodePage) setMaxSize(n int) {
	p.putInt32(offMaxSize, int32(n))
}

// minSize is the occupancy floor for non-root nodes. Internal sizes count
// pointers, one more than keys, hence the rounding difference.
func (p nodePage) minSize() int {
	if p.isLeafPage() {
		return p.maxSize() / 2
	}
	return (p.maxSize() + 1) / 2
}

func (p nodePage) pageId() disk.PageID {
	return disk.PageID(p.int32At(offPageId))
}

func (p nodePage) setPageId(id disk.PageID) {
	p.putInt32(offPageId, int32(id))
}

func (p nodePage) parent() disk.PageID {
	return disk.PageID(p.int32At(offParent))
}

func (p nodePage) setParent(id disk.PageID) {
	p.putInt32(offParent, int32(id))
}

func (p nodePage) int32At(off int) int32 {
	return int32(binary.LittleEndian.Uint32(p.data[off : off+4]))
}

func (p nodePage) putInt32(off int, v int32) {
	binary.LittleEndian.PutUint32(p.data[off:off+4], uint32(v))
}

// adoptChild re-parents a moved child page through the bufferpool, so the
// change survives eviction.
func adoptChild(bpm *buffer.BufferpoolManager, childId, parentId disk.PageID) error {
	frame := bpm.FetchPage(childId)
	if frame == nil {
		return util.NewBufferpoolExhaustedError()
	}

	nodePage{frame.Data()}.setParent(parentId)
	bpm.UnpinPage(childId, true)

	return nil
}
