// Package cache holds orchestration results in memory until their TTL runs out.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

// MemoryCache maps canonical request keys to results with a per-entry expiry.
// Results never leave the process.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]domain.CacheEntry
	maxEntries int
	now        func() time.Time
}

// Option customizes a MemoryCache.
type Option func(*MemoryCache)

// WithClock injects the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithMaxEntries bounds the cache; the entries closest to expiry are evicted first.
func WithMaxEntries(n int) Option {
	return func(c *MemoryCache) {
		c.maxEntries = n
	}
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]domain.CacheEntry),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultMaxEntries caps memory use when no explicit bound is configured.
const DefaultMaxEntries = 10_000

// Get returns the cached result for key. Expired entries are reported as a miss and evicted.
func (c *MemoryCache) Get(key string) (domain.OrchestrationResult, bool) {
	if key == "" {
		return domain.OrchestrationResult{}, false
	}
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return domain.OrchestrationResult{}, false
	}
	if entry.Expired(now) {
		c.mu.Lock()
		// a concurrent Put may have refreshed the key
		if current, still := c.entries[key]; still && current.Expired(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return domain.OrchestrationResult{}, false
	}
	return copyResult(entry.Value), true
}

// Put stores value until now+ttl. A non-positive ttl stores nothing. Last write wins.
func (c *MemoryCache) Put(key string, value domain.OrchestrationResult, ttl time.Duration) {
	if key == "" || ttl <= 0 {
		return
	}
	entry := domain.CacheEntry{
		Key:       key,
		Value:     copyResult(value),
		ExpiresAt: c.now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.evictIfNeeded()
}

// Invalidate drops a single key.
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateFeature drops every entry produced for feature and returns how many were removed.
func (c *MemoryCache) InvalidateFeature(feature domain.Feature) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if entry.Value.Feature == feature {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep evicts every expired entry.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all cached entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]domain.CacheEntry)
}

// Entries lists live entries ordered by expiry.
func (c *MemoryCache) Entries() []domain.CacheEntry {
	now := c.now()
	c.mu.RLock()
	out := make([]domain.CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		if !entry.Expired(now) {
			out = append(out, entry)
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

// Len counts stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictIfNeeded must be called with mu held.
func (c *MemoryCache) evictIfNeeded() {
	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}
	now := c.now()
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) <= c.maxEntries {
		return
	}
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].ExpiresAt.Before(c.entries[keys[j]].ExpiresAt)
	})
	for _, key := range keys[:len(keys)-c.maxEntries] {
		delete(c.entries, key)
	}
}

func copyResult(r domain.OrchestrationResult) domain.OrchestrationResult {
	r.Value = domain.CloneMap(r.Value)
	return r
}

var _ ports.ResultCache = (*MemoryCache)(nil)
