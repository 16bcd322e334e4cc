// Package cache provides the process-local expiring store that backs the
// EarthPulse data service.
//
// Expiry is lazy: an entry whose expiresAt has been reached is treated as
// absent by Get and removed on that read. There is no background sweep and
// no capacity bound; Keys and Len prune expired entries before reporting.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/horkydorky/Earth-Pulse/common"
)

// DefaultExpiration is the reference TTL used when none is configured.
const DefaultExpiration = time.Hour

var _ common.CacheRepository = (*ExpiringCache)(nil)

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// ExpiringCache maps string keys to values with an independent expiry each.
// It is safe for concurrent use; every operation holds the instance lock.
type ExpiringCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time
}

// Option configures an ExpiringCache.
type Option func(*ExpiringCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ExpiringCache) {
		c.now = now
	}
}

// NewExpiringCache creates an empty cache. A defaultTTL <= 0 selects DefaultExpiration.
func NewExpiringCache(defaultTTL time.Duration, opts ...Option) *ExpiringCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultExpiration
	}
	c := &ExpiringCache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTTL returns the TTL applied when Set is called with expiration <= 0.
func (c *ExpiringCache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Set stores value under key, replacing any previous entry and its expiry.
func (c *ExpiringCache) Set(key string, value any, expiration time.Duration) {
	if expiration <= 0 {
		expiration = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(expiration)}
}

// Get returns the value for key. An expired entry is deleted and reported as missing.
func (c *ExpiringCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *ExpiringCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *ExpiringCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Keys prunes expired entries and returns the remaining keys, sorted.
func (c *ExpiringCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len prunes expired entries and returns the number of live ones.
func (c *ExpiringCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	return len(c.entries)
}

// Prune removes every expired entry and returns how many were dropped.
func (c *ExpiringCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked()
}

func (c *ExpiringCache) pruneLocked() int {
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
