package source

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pharmadash/internal/models"
)

// Cache keeps the record sets of recently used periods.
type Cache interface {
	Get(ctx context.Context, period string) ([]models.Record, bool)
	Set(ctx context.Context, period string, rows []models.Record)
	Invalidate(ctx context.Context, period string)
}

type memEntry struct {
	rows      []models.Record
	fetchedAt time.Time
}

// MemoryCache is a process-local TTL cache.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, period string) ([]models.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[period]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	return e.rows, true
}

func (c *MemoryCache) Set(_ context.Context, period string, rows []models.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[period] = memEntry{rows: rows, fetchedAt: c.now()}
	// drop expired entries while holding the lock anyway
	for k, e := range c.entries {
		if c.now().Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) Invalidate(_ context.Context, period string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, period)
}

// Cached serves record sets from a Cache and collapses concurrent misses for
// the same period into one upstream request.
type Cached struct {
	Source
	cache Cache
	group singleflight.Group
}

func NewCached(src Source, cache Cache) *Cached {
	return &Cached{Source: src, cache: cache}
}

// Records serves period from the cache or joins the upstream fetch in
// flight for it. The fetch is detached from ctx so that a caller giving up
// only returns early for that caller.
func (c *Cached) Records(ctx context.Context, period string) ([]models.Record, error) {
	if rows, ok := c.cache.Get(ctx, period); ok {
		logger.Debugf("cache hit %s", period)
		return rows, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(period, func() (interface{}, error) {
		rows, err := c.Source.Records(fetchCtx, period)
		if err != nil {
			return nil, err
		}
		c.cache.Set(fetchCtx, period, rows)
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		logger.Debugf("cache miss %s (shared=%v)", period, res.Shared)
		return res.Val.([]models.Record), nil
	}
}

// Refresh drops the cached set of period so the next read goes upstream.
func (c *Cached) Refresh(ctx context.Context, period string) {
	c.cache.Invalidate(ctx, period)
}

// Warm prefetches periods with at most parallel requests in flight. Failed
// periods are logged and skipped; the count of warmed periods is returned.
func (c *Cached) Warm(ctx context.Context, periods []string, parallel int) int {
	if parallel <= 0 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	var mu sync.Mutex
	warmed := 0
	for _, p := range periods {
		g.Go(func() error {
			rows, err := c.Records(gctx, p)
			if err != nil {
				logger.Warnf("warm %s: %v", p, err)
				return nil
			}
			mu.Lock()
			warmed++
			mu.Unlock()
			logger.Infof("warmed %s: %d rows", p, len(rows))
			return nil
		})
	}
	_ = g.Wait()
	return warmed
}
