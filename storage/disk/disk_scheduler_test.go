package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiskScheduler(t *testing.T) {
	t.Run("schedules reads and writes", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		ds := NewScheduler(NewManager(dbFile))

		data := make([]byte, PAGE_SIZE)
		copy(data, []byte("scheduled"))

		resp := <-ds.Schedule(NewRequest(1, data, true))
		assert.True(t, resp.Success)

		resp = <-ds.Schedule(NewRequest(1, nil, false))
		assert.True(t, resp.Success)
		assert.Equal(t, data, resp.Data)
	})

	t.Run("requests for the same page are applied in order", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		ds := NewScheduler(NewManager(dbFile))

		chans := make([]<-chan DiskResp, 0, 10)
		var last []byte
		for i := range 10 {
			data := make([]byte, PAGE_SIZE)
			data[0] = byte(i)
			chans = append(chans, ds.Schedule(NewRequest(2, data, true)))
			last = data
		}
		for _, ch := range chans {
			assert.True(t, (<-ch).Success)
		}

		resp := <-ds.Schedule(NewRequest(2, nil, false))
		assert.True(t, resp.Success)
		assert.Equal(t, last, resp.Data)
	})

	t.Run("passes page allocation through to the manager", func(t *testing.T) {
		dbFile := CreateDbFile(t)
		ds := NewScheduler(NewManager(dbFile))

		pageId := ds.AllocatePage()
		ds.DeallocatePage(pageId)
		assert.Equal(t, pageId, ds.AllocatePage())
	})
}
