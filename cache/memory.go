package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory LRU cache with expire-after-access entries.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently accessed
	policy  Policy
	now     func() time.Time
	onEvict func(key string)
}

type cacheEntry struct {
	key        string
	value      []byte
	accessedAt time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock replaces the wall clock used for idle expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithEvictionCallback registers fn to be called with the key of every
// entry removed by size or idle eviction. fn runs with the cache lock held
// and must not call back into the cache.
func WithEvictionCallback(fn func(key string)) MemoryOption {
	return func(c *MemoryCache) {
		c.onEvict = fn
	}
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
// A hit refreshes the entry's access time and recency.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	now := c.now()
	if c.idle(entry, now) {
		c.remove(elem, true)
		return nil, false
	}

	entry.accessedAt = now
	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set stores a value, evicting the least recently accessed entries while the
// cache is over capacity. A policy with MaxEntries=0 stores nothing.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	if !c.policy.ShouldCache() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.accessedAt = now
		c.order.MoveToFront(elem)
		return nil
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{
		key:        key,
		value:      value,
		accessedAt: now,
	})

	for c.order.Len() > c.policy.MaxEntries {
		c.remove(c.order.Back(), true)
	}
	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.remove(elem, false)
	}
	return nil
}

// Len returns the number of stored entries, including idle entries that
// have not yet been swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Sweep removes every idle entry and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	if c.policy.IdleTTL <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	// Walk from the least recently accessed end; stop at the first live entry.
	for elem := c.order.Back(); elem != nil; {
		if !c.idle(elem.Value.(*cacheEntry), now) {
			break
		}
		prev := elem.Prev()
		c.remove(elem, true)
		removed++
		elem = prev
	}
	return removed
}

// Purge removes every entry.
func (c *MemoryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Keys returns the stored keys from most to least recently accessed.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*cacheEntry).key)
	}
	return keys
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *MemoryCache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *MemoryCache) idle(entry *cacheEntry, now time.Time) bool {
	return c.policy.IdleTTL > 0 && now.Sub(entry.accessedAt) > c.policy.IdleTTL
}

// remove must be called with c.mu held.
func (c *MemoryCache) remove(elem *list.Element, evicted bool) {
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
	if evicted && c.onEvict != nil {
		c.onEvict(entry.key)
	}
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
