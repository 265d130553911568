package buffer

import (
	"testing"

	"github.com/jobala/pagecache/storage/disk"
	"github.com/jobala/pagecache/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageGuard(t *testing.T) {
	t.Run("drop unpins once", func(t *testing.T) {
		bufferMgr := newManager(t, 2, CreateDiskStore(t, "A", 1))

		guard, err := bufferMgr.FetchPage(1, "A")
		require.NoError(t, err)
		assert.Equal(t, int64(1), guard.PageId())
		assert.Equal(t, 1, bufferMgr.frames[0].pins)

		require.NoError(t, guard.Drop())
		require.NoError(t, guard.Drop())
		assert.Zero(t, bufferMgr.frames[0].pins)
	})

	t.Run("mutable access marks the page dirty", func(t *testing.T) {
		store := CreateDiskStore(t, "A", 0)
		bufferMgr := newManager(t, 1, store)

		guard, err := bufferMgr.NewPageGuarded(1, "A")
		require.NoError(t, err)
		copy(guard.GetDataMut(), []byte("guarded"))
		require.NoError(t, guard.Drop())
		assert.True(t, bufferMgr.frames[0].dirty)

		require.NoError(t, bufferMgr.FlushAllPages())
		res := make([]byte, disk.PAGE_SIZE)
		require.NoError(t, store.ReadPage(guard.PageId(), "A", res))
		assert.Equal(t, "guarded", string(res[:7]))
	})

	t.Run("read access leaves the page clean", func(t *testing.T) {
		bufferMgr := newManager(t, 1, CreateDiskStore(t, "A", 1))

		guard, err := bufferMgr.FetchPage(1, "A")
		require.NoError(t, err)
		assert.Len(t, guard.GetData(), disk.PAGE_SIZE)
		require.NoError(t, guard.Drop())

		assert.False(t, bufferMgr.frames[0].dirty)
	})

	t.Run("a full pool is an error", func(t *testing.T) {
		bufferMgr := newManager(t, 1, CreateDiskStore(t, "A", 2))

		guard, err := bufferMgr.FetchPage(1, "A")
		require.NoError(t, err)
		defer guard.Drop()

		_, err = bufferMgr.FetchPage(2, "A")
		assert.ErrorIs(t, err, util.ErrPoolExhausted)

		_, err = bufferMgr.NewPageGuarded(1, "A")
		assert.ErrorIs(t, err, util.ErrPoolExhausted)
	})

	t.Run("a dropped guard hands out no data", func(t *testing.T) {
		bufferMgr := newManager(t, 1, CreateDiskStore(t, "A", 1))

		guard, err := bufferMgr.FetchPage(1, "A")
		require.NoError(t, err)
		require.NoError(t, guard.Drop())

		assert.Nil(t, guard.GetData())
		assert.Nil(t, guard.GetDataMut())
		require.NoError(t, guard.Drop())
		assert.False(t, bufferMgr.frames[0].dirty)
	})

	t.Run("dropping a nil guard is a no-op", func(t *testing.T) {
		var guard *PageGuard
		assert.NoError(t, guard.Drop())
	})
}
