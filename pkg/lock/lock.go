// Package lock provides short-lived advisory locks over the shared
// key-value cache.
//
// Locks throttle duplicate concurrent status work on the same tracked
// file; they are cooperative and best-effort, not a correctness guarantee.
// The cache's atomic add-if-absent is the only primitive relied upon, and
// TTL expiry is the only recovery path for a lock whose owner died.
package lock

import (
	"context"
	"time"

	"github.com/marmos91/hsmwatch/pkg/cache"
)

// DefaultTTL is how long an acquired lock stays valid in the cache.
const DefaultTTL = 5 * time.Minute

// releaseSafetyMargin is subtracted from the TTL when recording this
// owner's own expiry deadline. Releasing inside the margin could race the
// cache's expiry clock and delete a lock another owner has meanwhile
// re-acquired, so past the deadline the lock is left to expire naturally.
const releaseSafetyMargin = 3 * time.Second

// Lock is an advisory, TTL-bounded mutual-exclusion token for one tracked
// file. A Lock value is single-use: acquire, do the work, release.
//
// Usage:
//
//	l := lock.New(cache, file.ID, ownerID, lock.DefaultTTL)
//	acquired, err := l.Acquire(ctx)
//	if err != nil || !acquired {
//	    return err // another owner is already on it
//	}
//	defer l.Release(ctx)
type Lock struct {
	cache cache.Cache
	key   string
	owner string
	ttl   time.Duration

	expiresAt time.Time

	// now is swappable for expiry tests.
	now func() time.Time
}

// Key derives the cache key for a tracked file's lock. The derivation is
// deterministic and stable across processes so that independent workers
// contend on the same key.
func Key(fileID string) string {
	return "lock-" + fileID
}

// New creates an unacquired lock for the given file, held on behalf of
// owner. A non-positive ttl falls back to DefaultTTL.
func New(c cache.Cache, fileID, owner string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lock{
		cache: c,
		key:   Key(fileID),
		owner: owner,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Acquire attempts to take the lock. It returns true iff this owner now
// holds it; false means another owner holds an unexpired lock for the same
// file, which is an expected concurrency outcome rather than an error.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	acquired, err := l.cache.Add(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return false, err
	}
	if acquired {
		l.expiresAt = l.now().Add(l.ttl - releaseSafetyMargin)
	}
	return acquired, nil
}

// Release removes the lock entry, but only while this owner is still
// safely inside its own TTL window. Once the window has lapsed the entry
// may already belong to someone else, so cleanup is left to cache expiry.
// Release is a best-effort courtesy; errors from the cache are discarded.
func (l *Lock) Release(ctx context.Context) {
	if l.expiresAt.IsZero() || !l.now().Before(l.expiresAt) {
		return
	}
	_ = l.cache.Delete(ctx, l.key)
}
