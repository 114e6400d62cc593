package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"intake-platform/internal/store"
)

const statsCacheKey = "intake:stats"

// DefaultStatsTTL keeps the dashboard stats slightly stale instead of
// re-aggregating on every request.
const DefaultStatsTTL = 30 * time.Second

// StatsCache is a read-through redis cache for the stats aggregate. All redis
// failures are soft: a broken cache degrades to direct store queries.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &StatsCache{rdb: rdb, ttl: ttl, log: log}
}

func (c *StatsCache) Get(ctx context.Context) (store.Stats, bool) {
	raw, err := c.rdb.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("stats cache read failed", "err", err)
		}
		return store.Stats{}, false
	}
	var stats store.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.log.Warn("stats cache decode failed", "err", err)
		return store.Stats{}, false
	}
	return stats, true
}

func (c *StatsCache) Set(ctx context.Context, stats store.Stats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		c.log.Warn("stats cache encode failed", "err", err)
		return
	}
	if err := c.rdb.Set(ctx, statsCacheKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn("stats cache write failed", "err", err)
	}
}
