// Package services implements the ledger operations behind the HTTP API and
// the admin CLI. Every write that touches more than one table runs inside a
// single storage unit of work.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mywallet/internal/cache"
	"mywallet/internal/core"
	"mywallet/internal/storage"
)

type options struct {
	now func() time.Time
	loc *time.Location
}

// Option customises a service.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the time zone used for calendar periods.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BalanceCache holds the current balance per user for the read path. A nil
// *BalanceCache disables caching.
//
// Only reads fill the cache, and only when no write invalidated the user
// while the read was in flight: every invalidation bumps the user's
// generation, and fill drops values read under an older one.
type BalanceCache struct {
	lru *cache.LRUCache[core.Balance]

	mu  sync.Mutex
	gen map[string]uint64
}

func NewBalanceCache(size int, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		lru: cache.NewLRUCache[core.Balance](size, ttl),
		gen: make(map[string]uint64),
	}
}

// Cleaner exposes the underlying cache for a cache.Manager.
func (c *BalanceCache) Cleaner() cache.Cleaner {
	return c.lru
}

func (c *BalanceCache) Size() int {
	if c == nil {
		return 0
	}
	return c.lru.Size()
}

func (c *BalanceCache) Stats() cache.Stats {
	if c == nil {
		return cache.Stats{}
	}
	return c.lru.Stats()
}

// lookup returns the cached balance, or the generation a read must present
// to fill.
func (c *BalanceCache) lookup(userID string) (core.Balance, uint64, bool) {
	if c == nil {
		return core.Balance{}, 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.lru.Get(userID); ok {
		return b, 0, true
	}
	return core.Balance{}, c.gen[userID], false
}

func (c *BalanceCache) fill(b core.Balance, gen uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[b.UserID] != gen {
		return
	}
	c.lru.Set(b.UserID, b)
}

// invalidate must run after the write has committed.
func (c *BalanceCache) invalidate(userID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[userID]++
	c.lru.Delete(userID)
}

// classify passes core errors through and wraps anything else as a
// persistence failure carrying message.
func classify(err error, message string) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return core.Persistence(message, err)
}

// notFoundAs maps storage.ErrNotFound to a not-found error with message.
func notFoundAs(err error, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return core.NotFound(message)
	}
	return err
}

// enqueueExport records t in the export outbox with the caller's unit of work.
func enqueueExport(ctx context.Context, q *storage.Queries, op string, t core.Transaction, now time.Time) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal export payload: %w", err)
	}
	err = q.EnqueueExport(ctx, storage.EnqueueExportParams{
		Operation:     op,
		TransactionID: t.ID,
		Payload:       string(payload),
		Now:           now,
	})
	if err != nil {
		return fmt.Errorf("enqueue export: %w", err)
	}
	return nil
}
