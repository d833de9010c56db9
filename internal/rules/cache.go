package rules

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL matches the remote document's observed rotation cadence.
const DefaultTTL = time.Hour

// Fetcher produces a fresh rule document.
type Fetcher interface {
	Fetch(ctx context.Context) (Rules, error)
}

// Cache serves one rule document for a fixed TTL. Concurrent callers during
// a refresh share a single in-flight fetch and receive the same value or the
// same error. A failed refresh is not cached: the next caller retries.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	cached    Rules
	fetchedAt time.Time
	valid     bool
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source. Tests use this to drive expiry.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCache(fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached rules, refreshing first if the TTL has elapsed.
func (c *Cache) Get(ctx context.Context) (Rules, error) {
	if r, ok := c.fresh(); ok {
		return r, nil
	}

	v, err, _ := c.group.Do("rules", func() (any, error) {
		// A concurrent flight may have refreshed while this caller
		// waited on the group lock.
		if r, ok := c.fresh(); ok {
			return r, nil
		}
		r, err := c.fetcher.Fetch(ctx)
		if err != nil {
			return Rules{}, err
		}
		c.mu.Lock()
		c.cached = r
		c.fetchedAt = c.now()
		c.valid = true
		c.mu.Unlock()
		return r, nil
	})
	if err != nil {
		return Rules{}, err
	}
	return v.(Rules), nil
}

func (c *Cache) fresh() (Rules, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.now().Sub(c.fetchedAt) >= c.ttl {
		return Rules{}, false
	}
	return c.cached, true
}
