// Package cache memoizes source query results for a bounded time.
//
// Entries are keyed by query name plus parameters, expire after a TTL, and
// can be dropped explicitly. Concurrent misses for the same key share one
// fetch.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"card-market-lab/internal/observability"
)

// DefaultTTL matches the dashboard refresh cadence.
const DefaultTTL = 10 * time.Minute

type entry struct {
	query   string
	value   any
	expires time.Time
}

// QueryCache is safe for concurrent use.
type QueryCache struct {
	ttl     time.Duration
	now     func() time.Time
	metrics *observability.Metrics

	mu         sync.Mutex
	entries    map[string]entry
	generation uint64 // bumped on every invalidation

	group singleflight.Group
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) { c.now = now }
}

// WithMetrics records hits, misses and size.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

// New creates a cache whose entries live for ttl. A ttl of zero disables
// memoization; concurrent identical fetches are still coalesced.
func New(ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key for a query and its parameters.
func Key(query string, params ...any) string {
	if len(params) == 0 {
		return query
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	return query + "(" + strings.Join(parts, ",") + ")"
}

// Fetch returns the cached result for (query, params) or calls fetch and
// caches a successful result. Errors are never cached.
func Fetch[T any](ctx context.Context, c *QueryCache, query string, params []any, fetch func(context.Context) (T, error)) (T, error) {
	key := Key(query, params...)

	if v, ok := c.lookup(key); ok {
		c.metrics.RecordCacheLookup(query, true)
		return v.(T), nil
	}
	c.metrics.RecordCacheLookup(query, false)

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, query, res, gen)
		return res, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *QueryCache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		c.metrics.SetCacheEntries(len(c.entries))
		return nil, false
	}
	return e.value, true
}

// store keeps value unless the cache was invalidated after the fetch began.
func (c *QueryCache) store(key, query string, value any, gen uint64) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	c.entries[key] = entry{query: query, value: value, expires: c.now().Add(c.ttl)}
	c.metrics.SetCacheEntries(len(c.entries))
}

// Invalidate drops every cached result of the named query.
func (c *QueryCache) Invalidate(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if e.query == query {
			delete(c.entries, k)
		}
	}
	c.generation++
	c.metrics.RecordCacheInvalidation()
	c.metrics.SetCacheEntries(len(c.entries))
}

// Purge drops everything.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.generation++
	c.metrics.RecordCacheInvalidation()
	c.metrics.SetCacheEntries(0)
}

// Len returns the number of live entries, evicting expired ones.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.metrics.SetCacheEntries(len(c.entries))
	return len(c.entries)
}
