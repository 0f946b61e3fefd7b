package checker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/hsm"
	"github.com/marmos91/hsmwatch/pkg/outcome"
)

// testEntity is a minimal Entity for checker tests.
type testEntity struct {
	id       string
	verified bool
	obj      StorageObject
	objErr   error
}

func (e *testEntity) EntityID() string { return e.id }
func (e *testEntity) IsVerified() bool { return e.verified }
func (e *testEntity) PreferredStorageObject() (StorageObject, error) {
	return e.obj, e.objErr
}

func fileEntity(t *testing.T, id string, content []byte) *testEntity {
	t.Helper()
	path := filepath.Join(t.TempDir(), id)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return &testEntity{
		id:       id,
		verified: true,
		obj:      StorageObject{BackendClass: "filesystem", Path: path},
	}
}

func startTestPool(t *testing.T) *PoolChecker {
	t.Helper()
	p := NewPoolChecker(PoolConfig{Workers: 2, QueueSize: 8}, nil)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func waitOutcome(t *testing.T, ch <-chan outcome.Outcome[bool]) outcome.Outcome[bool] {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return outcome.Outcome[bool]{}
	}
}

func TestOnlineResidentFile(t *testing.T) {
	p := startTestPool(t)
	e := fileEntity(t, "resident", make([]byte, 1<<20))

	ch := make(chan outcome.Outcome[bool], 1)
	require.NoError(t, p.Online(context.Background(), e, func(o outcome.Outcome[bool]) { ch <- o }))

	online, err := waitOutcome(t, ch).Get()
	require.NoError(t, err)
	assert.True(t, online)
}

func TestOnlineMissingFileFailsInsideOutcome(t *testing.T) {
	p := startTestPool(t)
	e := &testEntity{
		id:       "gone",
		verified: true,
		obj:      StorageObject{BackendClass: "filesystem", Path: filepath.Join(t.TempDir(), "gone")},
	}

	ch := make(chan outcome.Outcome[bool], 1)
	require.NoError(t, p.Online(context.Background(), e, func(o outcome.Outcome[bool]) { ch <- o }))

	o := waitOutcome(t, ch)
	require.False(t, o.IsSuccess())

	var probeErr *hsm.ProbeError
	assert.ErrorAs(t, o.Err(), &probeErr)
}

func TestOnlineUnverifiedFailsSynchronously(t *testing.T) {
	p := startTestPool(t)
	e := &testEntity{id: "unverified", verified: false}

	var callbacks atomic.Int32
	err := p.Online(context.Background(), e, func(outcome.Outcome[bool]) {
		callbacks.Add(1)
	})

	var notVerified *NotVerifiedError
	require.ErrorAs(t, err, &notVerified)
	assert.Equal(t, "unverified", notVerified.FileID)

	// Give any stray dispatch a moment to surface.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, callbacks.Load(), "callback must never fire on precondition failure")
}

func TestOnlineCallbackInvokedExactlyOnce(t *testing.T) {
	p := startTestPool(t)

	var callbacks atomic.Int32
	done := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		e := fileEntity(t, "f", []byte("content"))
		require.NoError(t, p.Online(context.Background(), e, func(outcome.Outcome[bool]) {
			callbacks.Add(1)
			done <- struct{}{}
		}))
	}

	for i := 0; i < 16; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for callbacks")
		}
	}
	assert.Equal(t, int32(16), callbacks.Load())
}

func TestExecuteRecoversPanics(t *testing.T) {
	p := NewPoolChecker(PoolConfig{}, nil)

	recovered := make(chan error, 1)
	d := p.execute(task{
		run: func() delivery {
			panic("boom")
		},
		recovered: func(err error) delivery {
			return func() { recovered <- err }
		},
	})

	d()
	err := <-recovered
	assert.Contains(t, err.Error(), "boom")
}

func TestRetrieve(t *testing.T) {
	p := startTestPool(t)

	t.Run("reads first byte of a regular file", func(t *testing.T) {
		e := fileEntity(t, "readable", []byte("content"))
		ch := make(chan outcome.Outcome[bool], 1)
		require.NoError(t, p.Retrieve(context.Background(), e, func(o outcome.Outcome[bool]) { ch <- o }))

		ok, err := waitOutcome(t, ch).Get()
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty file counts as recalled", func(t *testing.T) {
		e := fileEntity(t, "empty", nil)
		ch := make(chan outcome.Outcome[bool], 1)
		require.NoError(t, p.Retrieve(context.Background(), e, func(o outcome.Outcome[bool]) { ch <- o }))

		ok, err := waitOutcome(t, ch).Get()
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unreadable object fails inside the outcome", func(t *testing.T) {
		e := &testEntity{
			id:       "gone",
			verified: true,
			obj:      StorageObject{BackendClass: "filesystem", Path: filepath.Join(t.TempDir(), "gone")},
		}
		ch := make(chan outcome.Outcome[bool], 1)
		require.NoError(t, p.Retrieve(context.Background(), e, func(o outcome.Outcome[bool]) { ch <- o }))

		assert.False(t, waitOutcome(t, ch).IsSuccess())
	})
}

func TestRetrieveBatch(t *testing.T) {
	p := startTestPool(t)

	good := fileEntity(t, "good", []byte("content"))
	missing := &testEntity{
		id:       "missing",
		verified: true,
		obj:      StorageObject{BackendClass: "filesystem", Path: filepath.Join(t.TempDir(), "missing")},
	}
	unresolvable := &testEntity{
		id:       "unresolvable",
		verified: true,
		objErr:   errors.New("no storage object"),
	}

	ch := make(chan []RetrieveResult, 1)
	err := p.RetrieveBatch(context.Background(), []Entity{good, missing, unresolvable}, func(rs []RetrieveResult) {
		ch <- rs
	})
	require.NoError(t, err)

	var results []RetrieveResult
	select {
	case results = <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch callback")
	}

	require.Len(t, results, 3, "every entity must surface in the aggregate")

	byID := make(map[string]outcome.Outcome[bool], len(results))
	for _, r := range results {
		byID[r.FileID] = r.Result
	}

	assert.True(t, byID["good"].IsSuccess())
	assert.False(t, byID["missing"].IsSuccess())
	assert.False(t, byID["unresolvable"].IsSuccess())
}

func TestRetrieveBatchUnverifiedFailsSynchronously(t *testing.T) {
	p := startTestPool(t)

	entities := []Entity{
		fileEntity(t, "ok", []byte("x")),
		&testEntity{id: "nope", verified: false},
	}

	err := p.RetrieveBatch(context.Background(), entities, func([]RetrieveResult) {
		t.Error("callback must not fire")
	})

	var notVerified *NotVerifiedError
	assert.ErrorAs(t, err, &notVerified)
}

func TestEnqueueHonorsContext(t *testing.T) {
	// Unstarted pool with a full queue: enqueue must respect cancellation
	// instead of blocking forever.
	p := NewPoolChecker(PoolConfig{Workers: 1, QueueSize: 1}, nil)
	e := fileEntity(t, "f", []byte("x"))

	require.NoError(t, p.Online(context.Background(), e, func(outcome.Outcome[bool]) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Online(ctx, e, func(outcome.Outcome[bool]) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
