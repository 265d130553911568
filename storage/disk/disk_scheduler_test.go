package disk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskScheduler(t *testing.T) {
	t.Run("schedule is non blocking", func(t *testing.T) {
		ds, pageId := createScheduler(t)

		data := make([]byte, PAGE_SIZE)
		copy(data, []byte("hello world"))

		start := time.Now()
		respCh := ds.Schedule(NewWriteRequest(pageId, "test.db", data))
		elapsed := time.Since(start)

		assert.Less(t, elapsed, time.Millisecond)
		assert.NoError(t, (<-respCh).Err)
	})

	t.Run("can schedule read and write requests", func(t *testing.T) {
		ds, pageId := createScheduler(t)

		data := make([]byte, PAGE_SIZE)
		copy(data, []byte("hello world"))
		res := make([]byte, PAGE_SIZE)

		writeCh := ds.Schedule(NewWriteRequest(pageId, "test.db", data))
		readCh := ds.Schedule(NewReadRequest(pageId, "test.db", res))

		// requests run in the order they were scheduled
		assert.NoError(t, (<-writeCh).Err)
		resp := <-readCh
		assert.NoError(t, resp.Err)
		assert.Equal(t, pageId, resp.PageId)
		assert.Equal(t, data, res)
	})

	t.Run("serves the page store interface", func(t *testing.T) {
		ds, _ := createScheduler(t)

		first, err := ds.AllocatePages(2, "test.db")
		require.NoError(t, err)
		assert.Equal(t, int64(2), first)

		data := make([]byte, PAGE_SIZE)
		data[0] = 7
		require.NoError(t, ds.WritePage(first+1, "test.db", data))

		res := make([]byte, PAGE_SIZE)
		require.NoError(t, ds.ReadPage(first+1, "test.db", res))
		assert.Equal(t, data, res)

		require.NoError(t, ds.DeallocatePages(first, 2, "test.db"))
		assert.ErrorIs(t, ds.ReadPage(first, "test.db", res), ErrInvalidPage)
	})

	t.Run("concurrent callers all get answers", func(t *testing.T) {
		ds, _ := createScheduler(t)

		var wg sync.WaitGroup
		ids := make([]int64, 20)
		for i := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := ds.AllocatePages(1, "test.db")
				assert.NoError(t, err)
				ids[i] = id
			}()
		}
		wg.Wait()

		seen := map[int64]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "page %d handed out twice", id)
			seen[id] = true
		}
	})

	t.Run("closed scheduler rejects requests", func(t *testing.T) {
		ds, pageId := createScheduler(t)
		ds.Close()
		ds.Close()

		err := ds.ReadPage(pageId, "test.db", make([]byte, PAGE_SIZE))
		assert.ErrorIs(t, err, ErrSchedulerClosed)
	})
}

// createScheduler returns a scheduler over a fresh file holding one page.
func createScheduler(t *testing.T) (*DiskScheduler, int64) {
	t.Helper()

	dm, _ := CreateManager(t, Options{})
	require.NoError(t, dm.CreateFile("test.db"))
	pageId, err := dm.AllocatePages(1, "test.db")
	require.NoError(t, err)

	ds := NewScheduler(dm)
	t.Cleanup(ds.Close)
	return ds, pageId
}
