package service

import "time"

// CachedValue holds one value with a TTL. Besides expiring on time, the
// entry can be marked stale to force a refetch on the next cycle. Not safe
// for concurrent use; callers own it from a single goroutine.
type CachedValue[T any] struct {
	value    *T
	storedAt time.Time
	ttl      time.Duration
	stale    bool
}

func NewCachedValue[T any](ttl time.Duration) *CachedValue[T] {
	return &CachedValue[T]{ttl: ttl}
}

// Get returns the cached value when it is present, fresh and not marked
// stale.
func (c *CachedValue[T]) Get(now time.Time) (*T, bool) {
	if c.value == nil || c.stale {
		return nil, false
	}
	if now.Sub(c.storedAt) >= c.ttl {
		return nil, false
	}
	return c.value, true
}

func (c *CachedValue[T]) Put(value *T, now time.Time) {
	c.value = value
	c.storedAt = now
	c.stale = false
}

// MarkStale keeps the value around but forces the next Get to miss. Used
// when an external signal says the value is outdated before its TTL runs
// out.
func (c *CachedValue[T]) MarkStale() {
	c.stale = true
}

func (c *CachedValue[T]) Invalidate() {
	c.value = nil
	c.stale = false
}
