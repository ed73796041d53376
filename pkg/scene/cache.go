package scene

import "sync/atomic"

// Cache holds the most recent completed scene result. It is a single-slot
// mailbox: the scheduler is the only writer, the decision loop reads it on
// every tick without locking.
type Cache struct {
	latest atomic.Pointer[Result]
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Put replaces the cached result if the new one is strictly newer.
// A late-arriving stale result is dropped rather than rolling the cache back.
func (c *Cache) Put(r *Result) {
	if r == nil {
		return
	}
	for {
		cur := c.latest.Load()
		if cur != nil && !r.FetchedAt.After(cur.FetchedAt) {
			return
		}
		if c.latest.CompareAndSwap(cur, r) {
			return
		}
	}
}

// Latest returns the cached result, or nil if no query has ever completed.
// The returned value is immutable; callers must not modify it.
func (c *Cache) Latest() *Result {
	return c.latest.Load()
}
