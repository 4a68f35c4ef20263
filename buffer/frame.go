package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/njoroge/tembo/storage/disk"
)

type FrameID = int

const INVALID_FRAME_ID FrameID = -1

// Frame is one slot of the buffer pool: a page-sized byte buffer plus the
// metadata the pool needs to manage it. The latch protects the bytes, the
// pin count protects the frame from eviction; both are driven by callers,
// the pool itself only takes its own mutex.
type Frame struct {
	latch  sync.RWMutex
	id     FrameID
	data   []byte
	pins   atomic.Int32
	dirty  bool
	pageId disk.PageID
}

func (f *Frame) Data() []byte {
	return f.data
}

func (f *Frame) PageId() disk.PageID {
	return f.pageId
}

func (f *Frame) PinCount() int32 {
	return f.pins.Load()
}

func (f *Frame) RLatch()   { f.latch.RLock() }
func (f *Frame) RUnlatch() { f.latch.RUnlock() }
func (f *Frame) WLatch()   { f.latch.Lock() }
func (f *Frame) WUnlatch() { f.latch.Unlock() }

func (f *Frame) pin() {
	f.pins.Add(1)
}

func (f *Frame) unpin() int32 {
	return f.pins.Add(-1)
}

// reset zeroes the buffer in place; views handed out while the frame was
// pinned keep their slice identity, a reallocation would silently detach
// them.
func (f *Frame) reset() {
	f.dirty = false
	f.pins.Store(0)
	f.pageId = disk.INVALID_PAGE_ID
	for i := range f.data {
		f.data[i] = 0
	}
}
