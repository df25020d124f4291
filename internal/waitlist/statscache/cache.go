// Package statscache is a read-through Redis cache in front of the waitlist
// stats query. The dashboard polls stats far more often than the counts
// change, so a short TTL keeps the database quiet without making the numbers
// visibly stale.
package statscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/common/metrics"
	"eldercare-waitlist/internal/models"
)

const statsKey = "waitlist:stats"

// StatsSource computes the live numbers on a cache miss.
type StatsSource interface {
	Stats(ctx context.Context) (*models.WaitlistStats, error)
}

// Store is the slice of the Redis API the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Cache struct {
	store  Store
	source StatsSource
	ttl    time.Duration
	logger logger.Logger
}

func New(store Store, source StatsSource, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{
		store:  store,
		source: source,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "stats-cache"}),
	}
}

// Stats returns the cached aggregate when fresh, otherwise recomputes from
// the source and refills the cache. Redis failures degrade to a direct read;
// the cache never turns a working database into an error.
func (c *Cache) Stats(ctx context.Context) (*models.WaitlistStats, error) {
	cached, err := c.store.Get(ctx, statsKey)
	switch {
	case err == nil:
		var stats models.WaitlistStats
		if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
			metrics.StatsCacheHits.WithLabelValues("hit").Inc()
			return &stats, nil
		}
		// Corrupt payloads fall through to a recompute that overwrites them.
		c.logger.Warn("discarding unreadable cached stats", map[string]interface{}{"key": statsKey})
	case err == redis.Nil:
		// plain miss
	default:
		metrics.StatsCacheHits.WithLabelValues("error").Inc()
		c.logger.Warn("stats cache read failed", map[string]interface{}{"error": err.Error()})
	}

	metrics.StatsCacheHits.WithLabelValues("miss").Inc()
	stats, err := c.source.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(stats); jsonErr == nil {
		if setErr := c.store.Set(ctx, statsKey, payload, c.ttl); setErr != nil {
			c.logger.Warn("stats cache write failed", map[string]interface{}{"error": setErr.Error()})
		}
	}
	return stats, nil
}

// Invalidate drops the cached aggregate so the next read recomputes it.
// Called after admin deletes, where a stale total is most noticeable.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.store.Del(ctx, statsKey); err != nil {
		c.logger.Warn("stats cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
}
