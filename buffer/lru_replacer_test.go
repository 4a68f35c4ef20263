package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLruReplacer(t *testing.T) {
	t.Run("victims come out in unpin order", func(t *testing.T) {
		replacer := NewLruReplacer(5)

		replacer.unpin(1)
		replacer.unpin(2)
		replacer.unpin(3)
		assert.Equal(t, 3, replacer.size())

		for _, want := range []FrameID{1, 2, 3} {
			got, ok := replacer.victim()
			assert.True(t, ok)
			assert.Equal(t, want, got)
		}

		_, ok := replacer.victim()
		assert.False(t, ok)
	})

	t.Run("unpinning an eligible frame keeps its position", func(t *testing.T) {
		replacer := NewLruReplacer(5)

		replacer.unpin(1)
		replacer.unpin(2)
		replacer.unpin(1)

		got, ok := replacer.victim()
		assert.True(t, ok)
		assert.Equal(t, 1, got)
	})

	t.Run("pinning removes a frame from the eligible set", func(t *testing.T) {
		replacer := NewLruReplacer(5)

		replacer.unpin(1)
		replacer.unpin(2)
		replacer.pin(1)
		assert.Equal(t, 1, replacer.size())

		got, ok := replacer.victim()
		assert.True(t, ok)
		assert.Equal(t, 2, got)
	})

	t.Run("pinning an absent frame is a no-op", func(t *testing.T) {
		replacer := NewLruReplacer(5)

		replacer.unpin(1)
		replacer.pin(42)
		assert.Equal(t, 1, replacer.size())
	})

	t.Run("the eligible set is capped at capacity", func(t *testing.T) {
		replacer := NewLruReplacer(2)

		replacer.unpin(1)
		replacer.unpin(2)
		replacer.unpin(3)

		assert.Equal(t, 2, replacer.size())
	})
}
