// Package cache defines the shared key-value cache used for advisory
// locking.
//
// The only atomicity the rest of the system relies on is Add's
// if-absent semantics: two concurrent Adds for the same live key must
// resolve to exactly one winner. Entries expire on their own after their
// TTL; Delete is a best-effort early removal.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL-bounded key-value store with atomic add-if-absent.
//
// Implementations must be safe for concurrent use.
type Cache interface {
	// Add stores value under key with the given TTL only if no unexpired
	// entry for key exists. It reports whether the entry was stored.
	Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value for key and whether an unexpired entry exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Delete removes the entry for key, if any.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
