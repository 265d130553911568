package buffer

import (
	"testing"

	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	t.Run("new frames are free", func(t *testing.T) {
		frames := newFrameTable(3)

		for i, f := range frames {
			assert.Equal(t, i, f.id)
			assert.True(t, f.isFree())
			assert.Equal(t, disk.INVALID_PAGE_ID, f.pageId)
			assert.Zero(t, f.pins)
		}
	})

	t.Run("install pins and references", func(t *testing.T) {
		frames := newFrameTable(1)
		frames[0].dirty = true

		frames[0].install(4, "A")

		assert.Equal(t, pageKey{fileName: "A", pageId: 4}, frames[0].key())
		assert.Equal(t, 1, frames[0].pins)
		assert.True(t, frames[0].referenced)
		assert.False(t, frames[0].dirty)
		assert.False(t, frames[0].isEvictable())
	})

	t.Run("unpin keeps the dirty flag sticky", func(t *testing.T) {
		frames := newFrameTable(1)
		f := &frames[0]
		f.install(1, "A")
		f.pin()

		require.NoError(t, f.unpin(true))
		require.NoError(t, f.unpin(false))

		assert.True(t, f.dirty)
		assert.True(t, f.isEvictable())
	})

	t.Run("unpin at zero fails and changes nothing", func(t *testing.T) {
		frames := newFrameTable(1)
		f := &frames[0]
		f.install(1, "A")
		require.NoError(t, f.unpin(false))

		err := f.unpin(true)

		assert.Equal(t, util.KindNotPinned, util.KindOf(err))
		assert.Zero(t, f.pins)
		assert.False(t, f.dirty)
	})

	t.Run("free slots are found from the lowest index", func(t *testing.T) {
		frames := newFrameTable(3)
		frames[0].install(1, "A")

		slot, ok := frames.findFreeSlot()
		assert.True(t, ok)
		assert.Equal(t, 1, slot)

		frames[1].install(2, "A")
		frames[2].install(3, "A")
		slot, ok = frames.findFreeSlot()
		assert.False(t, ok)
		assert.Equal(t, INVALID_FRAME_ID, slot)

		frames[1].reset()
		slot, ok = frames.findFreeSlot()
		assert.True(t, ok)
		assert.Equal(t, 1, slot)
	})
}

func TestPageTable(t *testing.T) {
	t.Run("maps keys to frames", func(t *testing.T) {
		pt := newPageTable(2)
		pt.insert(pageKey{fileName: "A", pageId: 1}, 0)
		pt.insert(pageKey{fileName: "B", pageId: 1}, 1)

		slot, ok := pt.lookup("A", 1)
		assert.True(t, ok)
		assert.Equal(t, 0, slot)

		slot, ok = pt.lookup("B", 1)
		assert.True(t, ok)
		assert.Equal(t, 1, slot)

		pt.remove(pageKey{fileName: "A", pageId: 1})
		_, ok = pt.lookup("A", 1)
		assert.False(t, ok)
	})

	t.Run("duplicate insert panics", func(t *testing.T) {
		pt := newPageTable(2)
		key := pageKey{fileName: "A", pageId: 1}
		pt.insert(key, 0)

		assert.Panics(t, func() {
			pt.insert(key, 1)
		})
		slot, _ := pt.lookup("A", 1)
		assert.Equal(t, 0, slot)
	})

	t.Run("keys print file and page", func(t *testing.T) {
		assert.Equal(t, "[file A, page 3]", pageKey{fileName: "A", pageId: 3}.String())
	})
}
