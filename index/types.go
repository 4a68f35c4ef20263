package index

import (
	"cmp"
	"encoding/binary"

	"github.com/njoroge/tembo/storage/disk"
)

type PAGE_TYPE = int32

const (
	INVALID_PAGE PAGE_TYPE = iota
	INTERNAL_PAGE
	LEAF_PAGE
)

// HEADER_PAGE_ID holds the index metadata; the disk manager never allocates
// it to anyone else.
const HEADER_PAGE_ID disk.PageID = 0

// RID locates a record: the page holding it and the slot within that page.
// The tree treats it as an opaque 8-byte value.
type RID struct {
	PageId disk.PageID
	Slot   uint32
}

const ridSize = 8

func putRid(buf []byte, rid RID) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(rid.PageId))
	binary.LittleEndian.PutUint32(buf[4:8], rid.Slot)
}

func getRid(buf []byte) RID {
	return RID{
		PageId: disk.PageID(binary.LittleEndian.Uint32(buf[0:4])),
		Slot:   binary.LittleEndian.Uint32(buf[4:8]),
	}
}

// Comparator is a total order over keys: negative, zero or positive.
type Comparator[K any] func(a, b K) int

// KeyCodec reads and writes fixed-width keys in place. Node pages are byte
// ranges inside frames, so keys must serialize to a known width with no
// per-entry allocation.
type KeyCodec[K any] struct {
	Size int
	Put  func(buf []byte, key K)
	Get  func(buf []byte) K
}

func OrderedComparator[K cmp.Ordered]() Comparator[K] {
	return cmp.Compare[K]
}

var Int32Codec = KeyCodec[int32]{
	Size: 4,
	Put:  func(buf []byte, key int32) { binary.LittleEndian.PutUint32(buf, uint32(key)) },
	Get:  func(buf []byte) int32 { return int32(binary.LittleEndian.Uint32(buf)) },
}

var Int64Codec = KeyCodec[int64]{
	Size: 8,
	Put:  func(buf []byte, key int64) { binary.LittleEndian.PutUint64(buf, uint64(key)) },
	Get:  func(buf []byte) int64 { return int64(binary.LittleEndian.Uint64(buf)) },
}

var Uint64Codec = KeyCodec[uint64]{
	Size: 8,
	Put:  binary.LittleEndian.PutUint64,
	Get:  binary.LittleEndian.Uint64,
}
