// Package cache provides a small TTL cache with single-flight loading.
// It is the coordination point for feed fetches: concurrent requests for
// the same key share one outstanding load, and completed loads are served
// from memory until their TTL expires.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache. Values are treated as immutable once
// stored; callers must not mutate them.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group
}

func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		if ok {
			c.Delete(key)
		}
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete removes key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries, including any that have expired but
// not yet been evicted.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load runs loader under single-flight for key: concurrent callers with the
// same key share one invocation and receive the same result. The result is
// not stored; callers decide whether a result is cacheable via Set.
func (c *Cache[V]) Load(key string, loader func() (V, error)) (V, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return loader()
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}
