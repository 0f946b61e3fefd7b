// Package badger implements the lock cache on BadgerDB.
//
// BadgerDB gives the lock cache two properties the in-memory variant lacks:
// entries survive process restarts, and several processes on the same host
// can share one lock namespace through a common database directory. Entry
// TTLs map directly onto Badger's native entry expiry, so stale locks
// disappear without a reaper.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/hsmwatch/pkg/cache"
)

// BadgerCache is a persistent TTL key-value cache backed by BadgerDB.
type BadgerCache struct {
	db *badgerdb.DB
}

// NewBadgerCache opens (or creates) a Badger database at dir.
func NewBadgerCache(dir string) (*BadgerCache, error) {
	opts := badgerdb.DefaultOptions(dir)
	// The lock cache holds tiny short-lived entries; Badger's own logging
	// is noise at this volume.
	opts.Logger = nil

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger lock cache at %s: %w", dir, err)
	}

	return &BadgerCache{db: db}, nil
}

// Add stores value under key with the given TTL only if key is absent.
// Expired entries count as absent; Badger drops them on read.
func (c *BadgerCache) Add(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	added := false
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		entry := badgerdb.NewEntry([]byte(key), []byte(value)).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		added = true
		return nil
	})

	// A conflicting transaction means another owner raced us to the key
	// and won; that is a normal lost acquisition, not a failure.
	if errors.Is(err, badgerdb.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger add failed for %s: %w", key, err)
	}
	return added, nil
}

// Get returns the value for key if an unexpired entry exists.
func (c *BadgerCache) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	found := false
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			value = string(val)
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("badger get failed for %s: %w", key, err)
	}
	return value, found, nil
}

// Delete removes the entry for key, if any.
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete failed for %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

var _ cache.Cache = (*BadgerCache)(nil)
