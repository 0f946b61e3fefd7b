// Package memory implements the lock cache in process memory.
//
// This is the default for single-process deployments and tests. Entries
// live in a plain map; expired entries are treated as absent on read and
// reaped lazily on write.
//
// Thread Safety:
// Safe for concurrent use. All operations take a single mutex; the
// critical sections are map lookups only.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/hsmwatch/pkg/cache"
)

// entry is a stored value with its expiry deadline.
type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-memory TTL key-value cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	closed  bool

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Add stores value under key only if no unexpired entry exists.
func (c *MemoryCache) Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, errors.New("cache is closed")
	}

	now := c.now()
	if e, ok := c.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}

	c.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true, nil
}

// Get returns the value for key if an unexpired entry exists.
func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", false, errors.New("cache is closed")
	}

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Delete removes the entry for key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("cache is closed")
	}

	delete(c.entries, key)
	return nil
}

// Close marks the cache closed and drops all entries.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.entries = nil
	return nil
}

var _ cache.Cache = (*MemoryCache)(nil)
