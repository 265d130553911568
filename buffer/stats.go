package buffer

import (
	"log/slog"
	"sync/atomic"
)

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Evictions:  s.evictions.Load(),
		WriteBacks: s.writeBacks.Load(),
		Exhausted:  s.exhausted.Load(),
	}
}

func (s StatsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s StatsSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("hits", s.Hits),
		slog.Uint64("misses", s.Misses),
		slog.Float64("hit_rate", s.HitRate()),
		slog.Uint64("evictions", s.Evictions),
		slog.Uint64("write_backs", s.WriteBacks),
		slog.Uint64("exhausted", s.Exhausted),
	)
}

func (s *Stats) LogStats(logger *slog.Logger) {
	logger.Info("buffer pool stats", slog.Any("buffer_pool", s.Snapshot()))
}

// Stats counts cache events. Counters are atomic so they can be read
// without taking the manager's lock.
type Stats struct {
	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	writeBacks atomic.Uint64
	exhausted  atomic.Uint64
}

type StatsSnapshot struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Exhausted  uint64
}
