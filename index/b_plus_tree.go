package index

import (
	"cmp"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/njoroge/tembo/buffer"
	"github.com/njoroge/tembo/storage/disk"
	"github.com/njoroge/tembo/util"
)

type opMode int

const (
	modeGet opMode = iota
	modeInsert
	modeRemove
)

// headerPage is the index metadata persisted at HEADER_PAGE_ID. A zero
// RootPageId marks a fresh file: page 0 is the header itself, so no tree
// ever roots there.
type headerPage struct {
	RootPageId      int32
	LeafMaxSize     int32
	InternalMaxSize int32
}

type BPlusTree[K cmp.Ordered] struct {
	bpm             *buffer.BufferpoolManager
	indexName       string
	cmp             Comparator[K]
	codec           KeyCodec[K]
	leafMaxSize     int
	internalMaxSize int

	// rootMu guards rootPageId and doubles as the root's parent latch
	// during crabbing.
	rootMu     sync.RWMutex
	rootPageId disk.PageID
	log        *logrus.Entry
}

func NewBPlusTree[K cmp.Ordered](name string, bpm *buffer.BufferpoolManager, cmp Comparator[K], codec KeyCodec[K], leafMaxSize, internalMaxSize int) (*BPlusTree[K], error) {
	b := &BPlusTree[K]{
		bpm:        bpm,
		indexName:  name,
		cmp:        cmp,
		codec:      codec,
		rootPageId: disk.INVALID_PAGE_ID,
		log:        logrus.WithField("component", "index").WithField("index", name),
	}

	frame := bpm.FetchPage(HEADER_PAGE_ID)
	if frame == nil {
		return nil, util.NewBufferpoolExhaustedError()
	}
	header, err := util.ToStruct[headerPage](frame.Data())
	bpm.UnpinPage(HEADER_PAGE_ID, false)

	if err != nil || header.RootPageId == 0 {
		header = headerPage{
			RootPageId:      int32(disk.INVALID_PAGE_ID),
			LeafMaxSize:     int32(leafMaxSize),
			InternalMaxSize: int32(internalMaxSize),
		}
	}

	b.rootPageId = disk.PageID(header.RootPageId)
	b.leafMaxSize = int(header.LeafMaxSize)
	b.internalMaxSize = int(header.InternalMaxSize)

	// the physical page must fit one entry beyond max size, overflow is
	// staged in that headroom while a split is in progress
	leafCapacity := (disk.PAGE_SIZE - leafHeaderSize) / (codec.Size + ridSize)
	internalCapacity := (disk.PAGE_SIZE - headerSize) / (codec.Size + 4)
	if b.leafMaxSize < 2 || b.leafMaxSize >= leafCapacity {
		b.leafMaxSize = leafCapacity - 1
	}
	if b.internalMaxSize < 3 || b.internalMaxSize >= internalCapacity {
		b.internalMaxSize = internalCapacity - 1
	}

	if err := b.writeHeader(); err != nil {
		return nil, err
	}

	return b, nil
}

// GetValue looks key up and reports whether it is present.
func (b *BPlusTree[K]) GetValue(key K) (RID, bool, error) {
	b.rootMu.RLock()
	if b.rootPageId == disk.INVALID_PAGE_ID {
		b.rootMu.RUnlock()
		return RID{}, false, nil
	}

	frame, err := b.findLeafRead(&key)
	if err != nil {
		return RID{}, false, err
	}

	leaf := leafView(frame.Data(), b.codec)
	rid, found := leaf.lookup(key, b.cmp)

	frame.RUnlatch()
	b.bpm.UnpinPage(frame.PageId(), false)

	return rid, found, nil
}

// Insert adds (key, rid) and returns false if the key already exists.
func (b *BPlusTree[K]) Insert(key K, rid RID) (bool, error) {
	ctx := &latchContext{}
	b.rootMu.Lock()
	ctx.rootLocked = true

	if b.rootPageId == disk.INVALID_PAGE_ID {
		err := b.startNewTree(key, rid)
		b.rootMu.Unlock()
		return err == nil, err
	}

	leafFrame, err := b.findLeafWrite(key, modeInsert, ctx)
	if err != nil {
		b.release(ctx, false)
		return false, err
	}

	leaf := leafView(leafFrame.Data(), b.codec)
	oldSize := leaf.getSize()
	newSize := leaf.insert(key, rid, b.cmp)

	if newSize == oldSize {
		// duplicate
		leafFrame.WUnlatch()
		b.bpm.UnpinPage(leafFrame.PageId(), false)
		b.release(ctx, false)
		return false, nil
	}

	if newSize < b.leafMaxSize {
		leafFrame.WUnlatch()
		b.bpm.UnpinPage(leafFrame.PageId(), true)
		b.release(ctx, false)
		return true, nil
	}

	err = b.splitLeaf(leafFrame, ctx)
	leafFrame.WUnlatch()
	b.bpm.UnpinPage(leafFrame.PageId(), true)
	b.release(ctx, false)

	return err == nil, err
}

// Remove deletes key and returns false if it was absent.
func (b *BPlusTree[K]) Remove(key K) (bool, error) {
	ctx := &latchContext{}
	b.rootMu.Lock()
	ctx.rootLocked = true

	if b.rootPageId == disk.INVALID_PAGE_ID {
		b.rootMu.Unlock()
		return false, nil
	}

	leafFrame, err := b.findLeafWrite(key, modeRemove, ctx)
	if err != nil {
		b.release(ctx, false)
		return false, err
	}

	leaf := leafView(leafFrame.Data(), b.codec)
	oldSize := leaf.getSize()
	newSize := leaf.removeRecord(key, b.cmp)

	if newSize == oldSize {
		leafFrame.WUnlatch()
		b.bpm.UnpinPage(leafFrame.PageId(), false)
		b.release(ctx, false)
		return false, nil
	}

	leafIsRoot := len(ctx.frames) == 0 && ctx.rootLocked
	if leafIsRoot && newSize == 0 {
		pageId := leafFrame.PageId()
		b.rootPageId = disk.INVALID_PAGE_ID
		if err := b.writeHeader(); err != nil {
			leafFrame.WUnlatch()
			b.bpm.UnpinPage(pageId, true)
			b.release(ctx, false)
			return true, err
		}
		leafFrame.WUnlatch()
		b.bpm.UnpinPage(pageId, true)
		b.bpm.DeletePage(pageId)
		b.release(ctx, false)
		b.log.Debug("tree is empty")
		return true, nil
	}

	if newSize >= leaf.minSize() || len(ctx.frames) == 0 {
		// the root is exempt from min occupancy; a non-root leaf with no
		// retained parent proved safe on the way down and cannot underflow
		leafFrame.WUnlatch()
		b.bpm.UnpinPage(leafFrame.PageId(), true)
		b.release(ctx, false)
		return true, nil
	}

	err = b.coalesceOrRedistribute(leafFrame, ctx)
	b.release(ctx, false)

	return true, err
}

func (b *BPlusTree[K]) startNewTree(key K, rid RID) error {
	frame := b.bpm.NewPage()
	if frame == nil {
		return util.NewBufferpoolExhaustedError()
	}

	leaf := leafView(frame.Data(), b.codec)
	leaf.init(frame.PageId(), disk.INVALID_PAGE_ID, b.leafMaxSize)
	leaf.insert(key, rid, b.cmp)

	b.rootPageId = frame.PageId()
	err := b.writeHeader()
	b.bpm.UnpinPage(frame.PageId(), true)

	return err
}

// splitLeaf carves the upper half of a full leaf into a new sibling, links
// it into the leaf chain and pushes the sibling's first key to the parent.
// The caller keeps ownership of leafFrame.
func (b *BPlusTree[K]) splitLeaf(leafFrame *buffer.Frame, ctx *latchContext) error {
	leaf := leafView(leafFrame.Data(), b.codec)

	newFrame := b.bpm.NewPage()
	if newFrame == nil {
		return util.NewBufferpoolExhaustedError()
	}

	newLeaf := leafView(newFrame.Data(), b.codec)
	newLeaf.init(newFrame.PageId(), leaf.parent(), b.leafMaxSize)
	leaf.moveHalfTo(newLeaf)
	newLeaf.setNext(leaf.next())
	leaf.setNext(newLeaf.pageId())

	b.log.WithField("pageId", leaf.pageId()).Debug("split leaf")

	err := b.insertIntoParent(leafFrame, newLeaf.keyAt(0), newFrame, ctx)
	b.bpm.UnpinPage(newFrame.PageId(), true)

	return err
}

// insertIntoParent records that left split into (left, key, right). Both
// frames stay owned by the caller; ancestors come from the retained latch
// chain. Recursion climbs while ancestors overflow in turn.
func (b *BPlusTree[K]) insertIntoParent(leftFrame *buffer.Frame, key K, rightFrame *buffer.Frame, ctx *latchContext) error {
	left := nodePage{leftFrame.Data()}
	right := nodePage{rightFrame.Data()}

	if len(ctx.frames) == 0 {
		// left is the root: a split reaching here kept the whole chain
		// latched, root pointer included
		if !ctx.rootLocked {
			panic("root pointer latch not held while growing the tree")
		}

		rootFrame := b.bpm.NewPage()
		if rootFrame == nil {
			return util.NewBufferpoolExhaustedError()
		}

		root := internalView(rootFrame.Data(), b.codec)
		root.init(rootFrame.PageId(), disk.INVALID_PAGE_ID, b.internalMaxSize)
		root.populateNewRoot(left.pageId(), key, right.pageId())
		left.setParent(root.pageId())
		right.setParent(root.pageId())

		b.rootPageId = root.pageId()
		err := b.writeHeader()
		b.bpm.UnpinPage(rootFrame.PageId(), true)
		b.log.WithField("rootPageId", b.rootPageId).Debug("root grew")

		return err
	}

	parentFrame := ctx.pop()
	parent := internalView(parentFrame.Data(), b.codec)

	if parent.getSize() < b.internalMaxSize {
		parent.insertNodeAfter(left.pageId(), key, right.pageId())
		right.setParent(parent.pageId())
		parentFrame.WUnlatch()
		b.bpm.UnpinPage(parentFrame.PageId(), true)
		return nil
	}

	// the parent is full: stage the entry in its headroom slot, then split
	parent.insertNodeAfter(left.pageId(), key, right.pageId())
	right.setParent(parent.pageId())

	sibFrame := b.bpm.NewPage()
	if sibFrame == nil {
		parentFrame.WUnlatch()
		b.bpm.UnpinPage(parentFrame.PageId(), true)
		return util.NewBufferpoolExhaustedError()
	}

	sib := internalView(sibFrame.Data(), b.codec)
	sib.init(sibFrame.PageId(), disk.INVALID_PAGE_ID, b.internalMaxSize)

	err := parent.moveHalfTo(sib, b.bpm)
	if err == nil {
		err = b.insertIntoParent(parentFrame, sib.keyAt(0), sibFrame, ctx)
	}

	parentFrame.WUnlatch()
	b.bpm.UnpinPage(parentFrame.PageId(), true)
	b.bpm.UnpinPage(sibFrame.PageId(), true)

	return err
}

// coalesceOrRedistribute cures an underfull, non-root node by borrowing
// from or merging with an adjacent sibling. It consumes frame: latch and
// pin are released on every path.
func (b *BPlusTree[K]) coalesceOrRedistribute(frame *buffer.Frame, ctx *latchContext) error {
	parentFrame := ctx.pop()
	parent := internalView(parentFrame.Data(), b.codec)
	parentIsRoot := len(ctx.frames) == 0 && ctx.rootLocked

	idx := parent.valueIndex(frame.PageId())
	if idx < 0 {
		panic("underfull node is not a child of its retained parent")
	}

	// prefer the left sibling; only the leftmost child takes its right one
	sibIdx := idx - 1
	if idx == 0 {
		sibIdx = 1
	}
	sibFrame := b.bpm.FetchPage(parent.childAt(sibIdx))
	if sibFrame == nil {
		frame.WUnlatch()
		b.bpm.UnpinPage(frame.PageId(), true)
		parentFrame.WUnlatch()
		b.bpm.UnpinPage(parentFrame.PageId(), true)
		return util.NewBufferpoolExhaustedError()
	}
	sibFrame.WLatch()

	var merged bool
	var removeIdx int
	var deadPageId disk.PageID

	if (nodePage{frame.Data()}).isLeafPage() {
		merged, removeIdx, deadPageId = b.fixLeaf(frame, sibFrame, parent, idx)
	} else {
		var err error
		merged, removeIdx, deadPageId, err = b.fixInternal(frame, sibFrame, parent, idx)
		if err != nil {
			sibFrame.WUnlatch()
			b.bpm.UnpinPage(sibFrame.PageId(), true)
			frame.WUnlatch()
			b.bpm.UnpinPage(frame.PageId(), true)
			parentFrame.WUnlatch()
			b.bpm.UnpinPage(parentFrame.PageId(), true)
			return err
		}
	}

	sibFrame.WUnlatch()
	b.bpm.UnpinPage(sibFrame.PageId(), true)
	frame.WUnlatch()
	b.bpm.UnpinPage(frame.PageId(), true)

	if !merged {
		parentFrame.WUnlatch()
		b.bpm.UnpinPage(parentFrame.PageId(), true)
		return nil
	}

	parent.remove(removeIdx)
	b.bpm.DeletePage(deadPageId)
	b.log.WithField("pageId", deadPageId).Debug("coalesced page")

	if parentIsRoot {
		if parent.getSize() == 1 {
			return b.adjustRoot(parentFrame)
		}
		parentFrame.WUnlatch()
		b.bpm.UnpinPage(parentFrame.PageId(), true)
		return nil
	}

	if parent.getSize() < parent.minSize() && len(ctx.frames) > 0 {
		return b.coalesceOrRedistribute(parentFrame, ctx)
	}

	parentFrame.WUnlatch()
	b.bpm.UnpinPage(parentFrame.PageId(), true)
	return nil
}

// fixLeaf rebalances an underfull leaf against its sibling. It reports
// whether the two pages merged, and if so which parent entry to drop and
// which page died.
func (b *BPlusTree[K]) fixLeaf(frame, sibFrame *buffer.Frame, parent *internalPage[K], idx int) (bool, int, disk.PageID) {
	leaf := leafView(frame.Data(), b.codec)
	sib := leafView(sibFrame.Data(), b.codec)

	if leaf.getSize()+sib.getSize() > b.leafMaxSize {
		// redistribute one entry across the boundary
		if idx == 0 {
			sib.moveFirstToEndOf(leaf)
			parent.setKeyAt(1, sib.keyAt(0))
		} else {
			sib.moveLastToFrontOf(leaf)
			parent.setKeyAt(idx, leaf.keyAt(0))
		}
		return false, 0, disk.INVALID_PAGE_ID
	}

	// merge the right page into the left one
	if idx == 0 {
		sib.moveAllTo(leaf)
		return true, 1, sib.pageId()
	}
	leaf.moveAllTo(sib)
	return true, idx, leaf.pageId()
}

// fixInternal is the internal-node counterpart of fixLeaf; the parent
// separator between the two nodes is demoted on merge and rotated on
// redistribute.
func (b *BPlusTree[K]) fixInternal(frame, sibFrame *buffer.Frame, parent *internalPage[K], idx int) (bool, int, disk.PageID, error) {
	node := internalView(frame.Data(), b.codec)
	sib := internalView(sibFrame.Data(), b.codec)

	if node.getSize()+sib.getSize() > b.internalMaxSize {
		if idx == 0 {
			middleKey := parent.keyAt(1)
			if err := sib.moveFirstToEndOf(node, middleKey, b.bpm); err != nil {
				return false, 0, disk.INVALID_PAGE_ID, err
			}
			parent.setKeyAt(1, sib.keyAt(0))
		} else {
			middleKey := parent.keyAt(idx)
			borrowed := sib.keyAt(sib.getSize() - 1)
			if err := sib.moveLastToFrontOf(node, middleKey, b.bpm); err != nil {
				return false, 0, disk.INVALID_PAGE_ID, err
			}
			parent.setKeyAt(idx, borrowed)
		}
		return false, 0, disk.INVALID_PAGE_ID, nil
	}

	if idx == 0 {
		if err := sib.moveAllTo(node, parent.keyAt(1), b.bpm); err != nil {
			return false, 0, disk.INVALID_PAGE_ID, err
		}
		return true, 1, sib.pageId(), nil
	}
	if err := node.moveAllTo(sib, parent.keyAt(idx), b.bpm); err != nil {
		return false, 0, disk.INVALID_PAGE_ID, err
	}
	return true, idx, node.pageId(), nil
}

// adjustRoot replaces an internal root left with a single child pointer by
// that child. Consumes rootFrame.
func (b *BPlusTree[K]) adjustRoot(rootFrame *buffer.Frame) error {
	root := internalView(rootFrame.Data(), b.codec)
	newRootId := root.childAt(0)

	if err := adoptChild(b.bpm, newRootId, disk.INVALID_PAGE_ID); err != nil {
		rootFrame.WUnlatch()
		b.bpm.UnpinPage(rootFrame.PageId(), true)
		return err
	}

	oldRootId := rootFrame.PageId()
	b.rootPageId = newRootId
	err := b.writeHeader()

	rootFrame.WUnlatch()
	b.bpm.UnpinPage(oldRootId, true)
	b.bpm.DeletePage(oldRootId)
	b.log.WithField("rootPageId", newRootId).Debug("root collapsed")

	return err
}

// findLeafRead descends to the leaf for key (or the leftmost leaf when key
// is nil) with read-latch coupling. The caller holds rootMu.RLock and a
// valid root; on return the leaf is read-latched and pinned, everything
// else is released.
func (b *BPlusTree[K]) findLeafRead(key *K) (*buffer.Frame, error) {
	frame := b.bpm.FetchPage(b.rootPageId)
	if frame == nil {
		b.rootMu.RUnlock()
		return nil, util.NewBufferpoolExhaustedError()
	}
	frame.RLatch()
	b.rootMu.RUnlock()

	for {
		node := nodePage{frame.Data()}
		if node.isLeafPage() {
			return frame, nil
		}

		inner := internalView(frame.Data(), b.codec)
		childId := inner.childAt(0)
		if key != nil {
			childId = inner.lookup(*key, b.cmp)
		}

		child := b.bpm.FetchPage(childId)
		if child == nil {
			frame.RUnlatch()
			b.bpm.UnpinPage(frame.PageId(), false)
			return nil, util.NewBufferpoolExhaustedError()
		}

		child.RLatch()
		frame.RUnlatch()
		b.bpm.UnpinPage(frame.PageId(), false)
		frame = child
	}
}

// findLeafWrite descends to the leaf for key with write-latch coupling,
// retaining latched ancestors in ctx until a node proves safe for the
// operation. The returned leaf is write-latched and pinned.
func (b *BPlusTree[K]) findLeafWrite(key K, mode opMode, ctx *latchContext) (*buffer.Frame, error) {
	frame := b.bpm.FetchPage(b.rootPageId)
	if frame == nil {
		return nil, util.NewBufferpoolExhaustedError()
	}
	frame.WLatch()

	if b.isSafe(frame.Data(), mode, true) {
		b.rootMu.Unlock()
		ctx.rootLocked = false
	}

	for {
		node := nodePage{frame.Data()}
		if node.isLeafPage() {
			return frame, nil
		}

		inner := internalView(frame.Data(), b.codec)
		child := b.bpm.FetchPage(inner.lookup(key, b.cmp))
		if child == nil {
			frame.WUnlatch()
			b.bpm.UnpinPage(frame.PageId(), false)
			return nil, util.NewBufferpoolExhaustedError()
		}

		child.WLatch()
		ctx.frames = append(ctx.frames, frame)
		if b.isSafe(child.Data(), mode, false) {
			b.release(ctx, false)
		}
		frame = child
	}
}

// isSafe reports whether the node can absorb the operation without the
// change escaping to its ancestors.
func (b *BPlusTree[K]) isSafe(data []byte, mode opMode, isRoot bool) bool {
	node := nodePage{data}

	if mode == modeInsert {
		if node.isLeafPage() {
			return node.getSize() < node.maxSize()-1
		}
		return node.getSize() < node.maxSize()
	}

	if isRoot {
		if node.isLeafPage() {
			return node.getSize() > 1
		}
		return node.getSize() > 2
	}
	return node.getSize() > node.minSize()
}

func (b *BPlusTree[K]) writeHeader() error {
	frame := b.bpm.FetchPage(HEADER_PAGE_ID)
	if frame == nil {
		return util.NewBufferpoolExhaustedError()
	}

	frame.WLatch()
	data, err := util.ToByteSlice(headerPage{
		RootPageId:      int32(b.rootPageId),
		LeafMaxSize:     int32(b.leafMaxSize),
		InternalMaxSize: int32(b.internalMaxSize),
	})
	if err == nil {
		copy(frame.Data(), data)
	}
	frame.WUnlatch()
	b.bpm.UnpinPage(HEADER_PAGE_ID, true)

	return err
}

// latchContext is the chain of write-latched ancestors an operation still
// holds, root side first, plus whether the root pointer lock is still ours.
type latchContext struct {
	rootLocked bool
	frames     []*buffer.Frame
}

func (ctx *latchContext) pop() *buffer.Frame {
	n := len(ctx.frames)
	if n == 0 {
		panic("no ancestor latch held")
	}

	frame := ctx.frames[n-1]
	ctx.frames = ctx.frames[:n-1]
	return frame
}

// release drops every retained ancestor latch and pin, and the root pointer
// lock if still held.
func (b *BPlusTree[K]) release(ctx *latchContext, dirty bool) {
	for _, frame := range ctx.frames {
		frame.WUnlatch()
		b.bpm.UnpinPage(frame.PageId(), dirty)
	}
	ctx.frames = ctx.frames[:0]

	if ctx.rootLocked {
		b.rootMu.Unlock()
		ctx.rootLocked = false
	}
}
