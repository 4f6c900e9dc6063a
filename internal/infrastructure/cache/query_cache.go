package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// QueryCache is a read-through cache for query results. Concurrent loads of
// the same key are collapsed, and a load that overlaps an invalidation is
// returned to its caller but not stored.
type QueryCache struct {
	entries *expirable.LRU[string, any]
	group   singleflight.Group
	record  func(hit bool)

	mu         sync.Mutex
	generation uint64
}

// NewQueryCache creates a QueryCache holding up to size results for ttl.
// record, when set, is told about every hit and miss.
func NewQueryCache(size int, ttl time.Duration, record func(hit bool)) *QueryCache {
	if record == nil {
		record = func(bool) {}
	}
	return &QueryCache{
		entries: expirable.NewLRU[string, any](size, nil, ttl),
		record:  record,
	}
}

// Fetch returns the cached value for key or loads it.
func Fetch[V any](ctx context.Context, c *QueryCache, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, ok := c.entries.Get(key); ok {
		if typed, ok := v.(V); ok {
			c.record(true)
			return typed, nil
		}
	}
	c.record(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		gen := c.currentGeneration()
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if gen == c.generation {
			c.entries.Add(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (c *QueryCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	return c.entries.Len()
}

func (c *QueryCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
