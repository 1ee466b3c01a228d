package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roamsim/storefront-api/pkg/logger"
	"github.com/roamsim/storefront-api/pkg/metrics"
)

// Loader produces a fresh value for a cache key.
type Loader func(ctx context.Context) (interface{}, error)

type entry struct {
	value     interface{}
	fetchedAt time.Time
}

// SWRCache is a stale-while-revalidate cache. Values younger than the
// fresh TTL are served directly; values older than fresh but inside the
// stale window are served immediately while one refresh runs in the
// background. Concurrent requests during revalidation may each kick a
// refresh; the duplicate work is accepted rather than serialized.
type SWRCache struct {
	name    string
	store   *gocache.Cache
	fresh   time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewSWRCache(name string, fresh, stale, cleanup time.Duration, log *logger.Logger, m *metrics.Metrics) *SWRCache {
	return &SWRCache{
		name:    name,
		store:   gocache.New(stale, cleanup),
		fresh:   fresh,
		logger:  log,
		metrics: m,
	}
}

// GetOrLoad returns the cached value for key, loading it synchronously on
// a miss. The second return reports whether the value was served stale.
func (c *SWRCache) GetOrLoad(ctx context.Context, key string, load Loader) (interface{}, bool, error) {
	if raw, ok := c.store.Get(key); ok {
		e := raw.(entry)
		age := time.Since(e.fetchedAt)
		if age < c.fresh {
			c.metrics.CacheHits.WithLabelValues(c.name).Inc()
			return e.value, false, nil
		}

		c.metrics.CacheStale.WithLabelValues(c.name).Inc()
		go c.refresh(key, load)
		return e.value, true, nil
	}

	c.metrics.CacheMisses.WithLabelValues(c.name).Inc()
	value, err := load(ctx)
	if err != nil {
		return nil, false, err
	}
	c.store.SetDefault(key, entry{value: value, fetchedAt: time.Now()})
	return value, false, nil
}

// refresh runs outside the request; it gets its own deadline.
func (c *SWRCache) refresh(key string, load Loader) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	value, err := load(ctx)
	if err != nil {
		c.logger.Debug("background revalidation failed", "cache", c.name, "key", key, "error", err.Error())
		return
	}
	c.store.SetDefault(key, entry{value: value, fetchedAt: time.Now()})
}

// Flush drops every cached value.
func (c *SWRCache) Flush() {
	c.store.Flush()
}
