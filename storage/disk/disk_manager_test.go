package disk

import (
	"fmt"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiskManager(t *testing.T) {
	t.Run("allocated page ids are distinct and never zero", func(t *testing.T) {
		dm := NewManager(CreateDbFile(t))

		seen := map[PageID]bool{}
		for range 10 {
			pageId := dm.AllocatePage()
			assert.NotEqual(t, PageID(0), pageId)
			assert.False(t, seen[pageId])
			seen[pageId] = true
		}
	})

	t.Run("deallocated page ids are recycled", func(t *testing.T) {
		dm := NewManager(CreateDbFile(t))

		pageId := dm.AllocatePage()
		dm.DeallocatePage(pageId)

		assert.Equal(t, pageId, dm.AllocatePage())
	})

	t.Run("reading and writing a page round trips", func(t *testing.T) {
		dm := NewManager(CreateDbFile(t))

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("hello world"))

		assert.NoError(t, dm.WritePage(1, buf))

		res, err := dm.ReadPage(1)
		assert.NoError(t, err)
		assert.Equal(t, buf, res)
	})

	t.Run("reading an unwritten page yields zeroes", func(t *testing.T) {
		dm := NewManager(CreateDbFile(t))

		res, err := dm.ReadPage(3)
		assert.NoError(t, err)
		assert.Equal(t, make([]byte, PAGE_SIZE), res)
	})

	t.Run("the db file grows to cover written pages", func(t *testing.T) {
		file := CreateDbFile(t)
		dm := NewManager(file)

		buf := make([]byte, PAGE_SIZE)
		assert.NoError(t, dm.WritePage(5, buf))

		fileInfo, err := os.Stat(file.Name())
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, fileInfo.Size(), int64(6*PAGE_SIZE))
	})

	t.Run("pages keep their offsets across a reopen", func(t *testing.T) {
		file := CreateDbFile(t)
		dm := NewManager(file)

		buf := make([]byte, PAGE_SIZE)
		copy(buf, []byte("durable"))
		pageId := dm.AllocatePage()
		assert.NoError(t, dm.WritePage(pageId, buf))
		assert.NoError(t, file.Close())

		reopened, err := os.OpenFile(file.Name(), os.O_RDWR, 0644)
		assert.NoError(t, err)
		t.Cleanup(func() {
			_ = reopened.Close()
		})

		dm = NewManager(reopened)
		res, err := dm.ReadPage(pageId)
		assert.NoError(t, err)
		assert.Equal(t, buf, res)

		// fresh ids never collide with pages written before the reopen
		assert.Greater(t, dm.AllocatePage(), pageId)
	})
}

func CreateDbFile(t *testing.T) *os.File {
	t.Helper()
	dbFile := path.Join(t.TempDir(), "test.db")

	file, err := os.OpenFile(dbFile, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		panic(fmt.Sprintf("failed creating db file\n%v", err))
	}
	t.Cleanup(func() {
		_ = os.Remove(file.Name())
	})

	_ = os.Truncate(file.Name(), PAGE_SIZE)
	return file
}
