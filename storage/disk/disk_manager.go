package disk

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type PageID int32

const (
	PAGE_SIZE = 4096

	INVALID_PAGE_ID PageID = -1
)

// diskManager stores pages in the db file at offset pageId * PAGE_SIZE, so
// a page lands in the same place across restarts. The file grows by
// doubling when a page id falls outside it.
func NewManager(file *os.File) *diskManager {
	var fileSize int64
	if info, err := file.Stat(); err == nil {
		fileSize = info.Size()
	}

	return &diskManager{
		dbFile:      file,
		fileSize:    fileSize,
		nextPageId:  PageID(max(1, fileSize/PAGE_SIZE)),
		freePageIds: []PageID{},
		log:         logrus.WithField("component", "disk"),
	}
}

// AllocatePage hands out a page id, reusing deallocated ids before minting
// fresh ones. Page id 0 is never handed out, it is reserved for callers'
// metadata. A reopened file starts minting past its last capacity, ids in
// the gap are simply never reused.
func (dm *diskManager) AllocatePage() PageID {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if n := len(dm.freePageIds); n > 0 {
		pageId := dm.freePageIds[n-1]
		dm.freePageIds = dm.freePageIds[:n-1]
		return pageId
	}

	pageId := dm.nextPageId
	dm.nextPageId += 1
	return pageId
}

func (dm *diskManager) DeallocatePage(pageId PageID) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.freePageIds = append(dm.freePageIds, pageId)
}

func (dm *diskManager) WritePage(pageId PageID, data []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.ensureCapacity(pageId); err != nil {
		return err
	}

	if _, err := dm.dbFile.WriteAt(data, int64(pageId)*PAGE_SIZE); err != nil {
		return errors.Wrapf(err, "writing page %d", pageId)
	}

	return nil
}

// ReadPage returns the page's stored bytes; a page that was never written
// reads as zeroes.
func (dm *diskManager) ReadPage(pageId PageID) ([]byte, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.ensureCapacity(pageId); err != nil {
		return nil, err
	}

	buf := make([]byte, PAGE_SIZE)
	if _, err := dm.dbFile.ReadAt(buf, int64(pageId)*PAGE_SIZE); err != nil {
		return nil, errors.Wrapf(err, "reading page %d", pageId)
	}

	return buf, nil
}

func (dm *diskManager) ensureCapacity(pageId PageID) error {
	needed := (int64(pageId) + 1) * PAGE_SIZE
	if needed <= dm.fileSize {
		return nil
	}

	newSize := max(dm.fileSize, PAGE_SIZE)
	for newSize < needed {
		newSize *= 2
	}
	if err := os.Truncate(dm.dbFile.Name(), newSize); err != nil {
		return errors.Wrap(err, "resizing db file")
	}
	dm.fileSize = newSize
	dm.log.WithField("pages", newSize/PAGE_SIZE).Debug("grew db file")

	return nil
}

type diskManager struct {
	mu          sync.Mutex
	dbFile      *os.File
	fileSize    int64
	freePageIds []PageID
	nextPageId  PageID
	log         *logrus.Entry
}
