package source

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"siteinsight/internal/reconcile"
)

const cacheKey = "siteinsight:events"

// Loader produces a Result; *Chain implements it.
type Loader interface {
	Load(ctx context.Context) Result
}

// Cached keeps the last successful Result of a Loader for TTL. Failed
// loads are not cached so the next request retries the chain.
type Cached struct {
	loader Loader
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger

	mu sync.Mutex
}

func NewCached(loader Loader, cache Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{loader: loader, cache: cache, ttl: ttl, logger: logger}
}

// Load returns the cached Result, refreshing it when expired.
func (c *Cached) Load(ctx context.Context) Result {
	if r, ok := c.get(ctx); ok {
		return r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another caller may have refreshed while we waited.
	if r, ok := c.get(ctx); ok {
		return r
	}
	cacheTotal.WithLabelValues("miss").Inc()

	r := c.loader.Load(ctx)
	if !r.NoData() {
		if err := c.cache.Set(ctx, cacheKey, r, c.ttl); err != nil {
			c.logger.Warn("event cache write failed", zap.Error(err))
		}
	}
	return r
}

// Fetch returns the events of Load, or ErrNoData when every source failed.
func (c *Cached) Fetch(ctx context.Context) ([]reconcile.RawEvent, error) {
	r := c.Load(ctx)
	if r.NoData() {
		return r.Events, ErrNoData
	}
	return r.Events, nil
}

// Invalidate drops the cached list so the next Load refetches.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.cache.Delete(ctx, cacheKey)
}

func (c *Cached) get(ctx context.Context) (Result, bool) {
	r, ok, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		c.logger.Warn("event cache read failed", zap.Error(err))
		return Result{}, false
	}
	if ok {
		cacheTotal.WithLabelValues("hit").Inc()
	}
	return r, ok
}
