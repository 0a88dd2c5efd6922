// Package cache remembers authorization decisions for a bounded time.
package cache

import (
	"sync"
	"time"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// DefaultTTL bounds the life of a remembered decision when no other is configured
const DefaultTTL = 5 * time.Minute

var _ types.DecisionCache = (*Cache)(nil)

type entry struct {
	decision bool
	expires  time.Time
}

// Cache is an in-memory TTL map of authorization decisions.
// Expired entries are evicted when read; invalidation scans the whole
// map under the lock so no stale entry survives a sweep.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[types.CacheKey]entry
}

// Option tweaks a Cache under construction
type Option func(*Cache)

// WithClock replaces the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a decision cache expiring entries after ttl
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[types.CacheKey]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the remembered decision, if present and not expired
func (c *Cache) Get(key types.CacheKey) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		return false, false, nil
	}
	if !c.now().Before(ent.expires) {
		delete(c.entries, key)
		return false, false, nil
	}
	return ent.decision, true, nil
}

// Set remembers a decision until its TTL runs out
func (c *Cache) Set(key types.CacheKey, decision bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{decision: decision, expires: c.now().Add(c.ttl)}
	return nil
}

// InvalidateUser drops every remembered decision about the user
func (c *Cache) InvalidateUser(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.UserID == userID {
			delete(c.entries, key)
		}
	}
	return nil
}

// InvalidateResource drops every remembered decision about the resource
func (c *Cache) InvalidateResource(res types.Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.Resource == res {
			delete(c.entries, key)
		}
	}
	return nil
}

// Clear drops everything
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[types.CacheKey]entry)
	return nil
}

// Len counts the remembered decisions, expired ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
