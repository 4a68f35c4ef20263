package buffer

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/njoroge/tembo/storage/disk"
)

func NewBufferpoolManager(size int, replacer *lruReplacer, diskScheduler *disk.DiskScheduler) *BufferpoolManager {
	frames := make([]*Frame, size)
	freeFrames := make([]FrameID, size)

	for i := range size {
		frames[i] = &Frame{
			id:     i,
			data:   make([]byte, disk.PAGE_SIZE),
			pageId: disk.INVALID_PAGE_ID,
		}
		freeFrames[i] = i
	}

	return &BufferpoolManager{
		frames:        frames,
		pageTable:     make(map[disk.PageID]FrameID),
		freeFrames:    freeFrames,
		replacer:      replacer,
		diskScheduler: diskScheduler,
		log:           logrus.WithField("component", "bufferpool"),
	}
}

// FetchPage pins the frame holding pageId, reading it from disk if it is not
// cached. Returns nil when every frame is pinned and nothing can be evicted.
func (b *BufferpoolManager) FetchPage(pageId disk.PageID) *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.pageTable[pageId]; ok {
		frame := b.frames[id]
		frame.pin()
		b.replacer.pin(frame.id)
		return frame
	}

	frame := b.getVictim()
	if frame == nil {
		return nil
	}

	b.pageTable[pageId] = frame.id
	frame.reset()
	frame.pin()
	frame.pageId = pageId
	b.replacer.pin(frame.id)

	resp := <-b.diskScheduler.Schedule(disk.NewRequest(pageId, nil, false))
	copy(frame.data, resp.Data)

	return frame
}

// UnpinPage drops one pin. The dirty flag is sticky: once any caller unpins
// dirty the frame stays dirty until flushed, concurrent pinners may disagree
// and the union wins.
func (b *BufferpoolManager) UnpinPage(pageId disk.PageID, dirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	frame := b.frames[id]
	if frame.pins.Load() <= 0 {
		return false
	}

	frame.dirty = frame.dirty || dirty
	if frame.unpin() == 0 {
		b.replacer.unpin(frame.id)
	}

	return true
}

// NewPage allocates a fresh page id and pins a zeroed frame for it. The
// victim is secured before the id is allocated, so a dirty victim may be
// flushed even though the allocation could in principle fail; allocation
// here cannot.
func (b *BufferpoolManager) NewPage() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame := b.getVictim()
	if frame == nil {
		return nil
	}

	pageId := b.diskScheduler.AllocatePage()
	b.pageTable[pageId] = frame.id
	frame.reset()
	frame.pin()
	frame.pageId = pageId
	b.replacer.pin(frame.id)

	return frame
}

func (b *BufferpoolManager) FlushPage(pageId disk.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	frame := b.frames[id]
	<-b.diskScheduler.Schedule(disk.NewRequest(pageId, frame.data, true))
	frame.dirty = false

	return true
}

func (b *BufferpoolManager) FlushAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, frame := range b.frames {
		if frame.pageId == disk.INVALID_PAGE_ID {
			continue
		}

		<-b.diskScheduler.Schedule(disk.NewRequest(frame.pageId, frame.data, true))
		frame.dirty = false
	}
}

// DeletePage drops pageId from the pool and deallocates it. Deleting a page
// that isn't cached is a no-op that succeeds; deleting a pinned page fails.
func (b *BufferpoolManager) DeletePage(pageId disk.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pageTable[pageId]
	if !ok {
		return true
	}

	frame := b.frames[id]
	if frame.pins.Load() > 0 {
		return false
	}

	if frame.dirty {
		<-b.diskScheduler.Schedule(disk.NewRequest(pageId, frame.data, true))
	}

	delete(b.pageTable, pageId)
	frame.reset()
	b.replacer.pin(frame.id)
	b.freeFrames = append(b.freeFrames, frame.id)
	b.diskScheduler.DeallocatePage(pageId)

	return true
}

// getVictim secures an unpinned frame, preferring the free list over
// eviction. A dirty evictee is written back under its old page id before the
// frame is handed over. Callers hold b.mu.
func (b *BufferpoolManager) getVictim() *Frame {
	if len(b.freeFrames) > 0 {
		id := b.freeFrames[0]
		b.freeFrames = b.freeFrames[1:]
		return b.frames[id]
	}

	id, ok := b.replacer.victim()
	if !ok {
		return nil
	}

	frame := b.frames[id]
	if frame.dirty {
		b.log.WithField("pageId", frame.pageId).Debug("flushing dirty victim")
		<-b.diskScheduler.Schedule(disk.NewRequest(frame.pageId, frame.data, true))
	}
	delete(b.pageTable, frame.pageId)

	return frame
}

type BufferpoolManager struct {
	mu            sync.Mutex
	frames        []*Frame
	pageTable     map[disk.PageID]FrameID
	freeFrames    []FrameID
	replacer      *lruReplacer
	diskScheduler *disk.DiskScheduler
	log           *logrus.Entry
}
