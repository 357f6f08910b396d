// Package ttlcache memoizes per-key results for a fixed time window.
//
// Entries are never evicted on expiry: a stale entry is simply overwritten by
// the next Put. Only Clear drops entries, which the owning worker does on
// activation and deactivation.
package ttlcache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	at  time.Time
	val V
}

// Cache is safe for concurrent use. Reads never block writers.
type Cache[K comparable, V any] struct {
	ttl time.Duration
	m   sync.Map // K -> entry[V]
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{ttl: ttl}
}

func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the stored value and its timestamp regardless of age.
func (c *Cache[K, V]) Get(key K) (V, time.Time, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		var zero V
		return zero, time.Time{}, false
	}
	e := v.(entry[V])
	return e.val, e.at, true
}

// Fresh returns the value if it was stored less than TTL before now.
func (c *Cache[K, V]) Fresh(key K, now time.Time) (V, bool) {
	val, at, ok := c.Get(key)
	if !ok || now.Sub(at) >= c.ttl {
		var zero V
		return zero, false
	}
	return val, true
}

func (c *Cache[K, V]) Put(key K, val V, at time.Time) {
	c.m.Store(key, entry[V]{at: at, val: val})
}

func (c *Cache[K, V]) Clear() {
	c.m.Clear()
}

func (c *Cache[K, V]) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
