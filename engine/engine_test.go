package engine

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/njoroge/tembo/config"
	"github.com/njoroge/tembo/index"
)

func TestEngine(t *testing.T) {
	t.Run("opens a fresh database and serves an index", func(t *testing.T) {
		cfg := config.Default()
		cfg.DBFile = path.Join(t.TempDir(), "tembo.db")
		cfg.PoolSize = 16

		eng, err := Open(cfg)
		assert.NoError(t, err)
		t.Cleanup(func() {
			_ = eng.Close()
		})

		bplus, err := index.NewBPlusTree[int64]("accounts", eng.Bufferpool(),
			index.OrderedComparator[int64](), index.Int64Codec, cfg.LeafMaxSize, cfg.InternalMaxSize)
		assert.NoError(t, err)

		for k := int64(1); k <= 100; k++ {
			inserted, err := bplus.Insert(k, index.RID{Slot: uint32(k)})
			assert.NoError(t, err)
			assert.True(t, inserted)
		}

		val, found, err := bplus.GetValue(42)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint32(42), val.Slot)
	})

	t.Run("data survives a close and reopen", func(t *testing.T) {
		cfg := config.Default()
		cfg.DBFile = path.Join(t.TempDir(), "tembo.db")
		cfg.PoolSize = 16

		eng, err := Open(cfg)
		assert.NoError(t, err)

		bplus, err := index.NewBPlusTree[int64]("accounts", eng.Bufferpool(),
			index.OrderedComparator[int64](), index.Int64Codec, 0, 0)
		assert.NoError(t, err)
		for k := int64(1); k <= 50; k++ {
			_, err := bplus.Insert(k, index.RID{Slot: uint32(k)})
			assert.NoError(t, err)
		}
		assert.NoError(t, eng.Close())

		eng, err = Open(cfg)
		assert.NoError(t, err)
		t.Cleanup(func() {
			_ = eng.Close()
		})

		reopened, err := index.NewBPlusTree[int64]("accounts", eng.Bufferpool(),
			index.OrderedComparator[int64](), index.Int64Codec, 0, 0)
		assert.NoError(t, err)

		val, found, err := reopened.GetValue(25)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint32(25), val.Slot)
	})
}
