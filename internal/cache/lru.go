package cache

import (
	"sync"
	"time"
)

// Stats counts cache outcomes since creation.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// entry is a node of the recency ring. The ring's sentinel sits between the
// most recent entry (sentinel.next) and the least recent one (sentinel.prev).
type entry[T any] struct {
	key        string
	value      T
	expires    time.Time
	prev, next *entry[T]
}

// LRUCache keeps at most capacity entries, each valid for ttl after its last
// write. Reads refresh recency but not expiry.
type LRUCache[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	byKey    map[string]*entry[T]
	ring     entry[T]
	stats    Stats
	now      func() time.Time
}

func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	c := &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		byKey:    make(map[string]*entry[T], capacity),
		now:      time.Now,
	}
	c.ring.prev, c.ring.next = &c.ring, &c.ring
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byKey[key]
	switch {
	case !ok:
		c.stats.Misses++
		var zero T
		return zero, false
	case c.now().After(e.expires):
		c.drop(e)
		c.stats.Expired++
		c.stats.Misses++
		var zero T
		return zero, false
	}
	c.stats.Hits++
	c.unlink(e)
	c.pushFront(e)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if e, ok := c.byKey[key]; ok {
		e.value, e.expires = value, expires
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &entry[T]{key: key, value: value, expires: expires}
	c.byKey[key] = e
	c.pushFront(e)
	for len(c.byKey) > c.capacity {
		c.drop(c.ring.prev)
		c.stats.Evictions++
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.byKey[key]; ok {
		c.drop(e)
	}
}

// CleanExpired removes expired entries and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for e := c.ring.prev; e != &c.ring; {
		older := e.prev
		if now.After(e.expires) {
			c.drop(e)
			n++
		}
		e = older
	}
	c.stats.Expired += uint64(n)
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *LRUCache[T]) pushFront(e *entry[T]) {
	e.prev, e.next = &c.ring, c.ring.next
	c.ring.next.prev = e
	c.ring.next = e
}

func (c *LRUCache[T]) unlink(e *entry[T]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (c *LRUCache[T]) drop(e *entry[T]) {
	c.unlink(e)
	delete(c.byKey, e.key)
}

var (
	_ Cache[int] = (*LRUCache[int])(nil)
	_ Cleaner    = (*LRUCache[int])(nil)
)
