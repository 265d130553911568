package buffer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	t.Run("hit rate of an idle pool is zero", func(t *testing.T) {
		var stats Stats
		assert.Zero(t, stats.Snapshot().HitRate())
	})

	t.Run("counts pool events", func(t *testing.T) {
		bufferMgr := newManager(t, 1, CreateDiskStore(t, "A", 2))

		pinOk(t, bufferMgr, 1, "A")
		pinOk(t, bufferMgr, 1, "A")
		_, ok, err := bufferMgr.Pin(2, "A", false)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, bufferMgr.Unpin(1, "A", true))
		require.NoError(t, bufferMgr.Unpin(1, "A", false))
		pinOk(t, bufferMgr, 2, "A")

		snap := bufferMgr.Stats().Snapshot()
		assert.Equal(t, StatsSnapshot{Hits: 1, Misses: 3, Evictions: 1, WriteBacks: 1, Exhausted: 1}, snap)
		assert.InDelta(t, 0.25, snap.HitRate(), 1e-9)
	})

	t.Run("logs a group", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		var stats Stats
		stats.hits.Add(3)
		stats.misses.Add(1)
		stats.LogStats(logger)

		out := buf.String()
		assert.Contains(t, out, "buffer pool stats")
		assert.Contains(t, out, "buffer_pool.hits=3")
		assert.Contains(t, out, "buffer_pool.hit_rate=0.75")
	})

	t.Run("eviction logs name the frame", func(t *testing.T) {
		var buf bytes.Buffer
		bufferMgr := newManager(t, 2, CreateDiskStore(t, "A", 3))
		bufferMgr.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

		pinOk(t, bufferMgr, 1, "A")
		pinOk(t, bufferMgr, 2, "A")
		require.NoError(t, bufferMgr.Unpin(2, "A", true))
		pinOk(t, bufferMgr, 3, "A")

		out := buf.String()
		assert.Contains(t, out, "msg=\"wrote back page\" file=A page=2 frame=1")
		assert.Contains(t, out, "msg=\"evicted page\" file=A page=2 frame=1")
	})
}
