package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/cache/memory"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "lock-df-42", Key("df-42"))
}

func TestAcquireRelease(t *testing.T) {
	c := memory.NewMemoryCache()
	ctx := context.Background()

	l := New(c, "df-1", "owner-a", time.Minute)
	acquired, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// Same file, different owner: must lose while the lock is live.
	other := New(c, "df-1", "owner-b", time.Minute)
	acquired, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired)

	// A different file is unaffected.
	unrelated := New(c, "df-2", "owner-b", time.Minute)
	acquired, err = unrelated.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)

	l.Release(ctx)

	// Released lock can be re-acquired.
	acquired, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestMutualExclusionUnderConcurrency(t *testing.T) {
	c := memory.NewMemoryCache()
	ctx := context.Background()

	const owners = 16
	var wg sync.WaitGroup
	acquired := make(chan int, owners)

	for i := 0; i < owners; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l := New(c, "contested", string(rune('a'+n)), time.Minute)
			ok, err := l.Acquire(ctx)
			if err == nil && ok {
				acquired <- n
			}
		}(i)
	}
	wg.Wait()
	close(acquired)

	count := 0
	for range acquired {
		count++
	}
	assert.Equal(t, 1, count, "exactly one owner must win")
}

func TestReleaseSkippedAfterOwnWindowLapses(t *testing.T) {
	c := memory.NewMemoryCache()
	ctx := context.Background()

	l := New(c, "df-ttl", "owner-a", time.Minute)
	acquired, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	// Pretend this owner's safety window has lapsed. Release must leave
	// the cache entry alone.
	l.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	l.Release(ctx)

	_, found, err := c.Get(ctx, Key("df-ttl"))
	require.NoError(t, err)
	assert.True(t, found, "lapsed owner must not delete the entry")
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	c := memory.NewMemoryCache()
	ctx := context.Background()

	// Seed an entry owned by someone else.
	_, err := c.Add(ctx, Key("df-x"), "owner-b", time.Minute)
	require.NoError(t, err)

	l := New(c, "df-x", "owner-a", time.Minute)
	l.Release(ctx)

	_, found, err := c.Get(ctx, Key("df-x"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNonPositiveTTLFallsBackToDefault(t *testing.T) {
	c := memory.NewMemoryCache()
	l := New(c, "df-d", "owner-a", 0)
	assert.Equal(t, DefaultTTL, l.ttl)
}
