// Package cache provides the short-TTL in-memory cache used for
// paginated post listings. It is process-local: multi-instance
// deployments only get read-after-own-write within one process.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultTTL 是列表缓存的默认存活时间。
const DefaultTTL = 5 * time.Minute

type entry struct {
	value    interface{}
	storedAt time.Time
}

// ListingCache caches listing responses keyed by their query
// parameters. Construct one per process and inject it where needed;
// tests can swap the clock via WithClock.
type ListingCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	nowFunc func() time.Time
}

// New 创建一个 ListingCache，ttl 不合法时回退到 DefaultTTL。
func New(ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListingCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// WithClock 允许测试注入可控时钟。
func (c *ListingCache) WithClock(now func() time.Time) *ListingCache {
	if now != nil {
		c.nowFunc = now
	}
	return c
}

// Get returns the cached value for key. Expired entries behave as a
// miss and are removed on access.
func (c *ListingCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFunc().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with a fresh timestamp.
func (c *ListingCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.nowFunc()}
}

// InvalidateAll drops every entry. Writes call this synchronously
// before responding so a follow-up read never sees stale listings.
func (c *ListingCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Sweep removes all expired entries and reports how many were evicted.
func (c *ListingCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	evicted := 0
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len 返回当前缓存的条目数，供测试与运维端点使用。
func (c *ListingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ListingKey builds the canonical cache key from every parameter that
// affects the result set.
func ListingKey(page, perPage int, search, status string, includeHidden bool) string {
	return fmt.Sprintf("posts_%d_%d_%s_%s_%t",
		page, perPage, strings.ToLower(strings.TrimSpace(search)), status, includeHidden)
}
