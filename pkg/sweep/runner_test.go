package sweep

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/status"
)

type recordingCreator struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCreator) CreateStatus(ctx context.Context, fileID, namespace string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fileID)
	return nil
}

func (c *recordingCreator) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func TestRunnerWatchCreatesStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateFile(ctx, &status.TrackedFile{
		ID:       "file-1",
		Verified: true,
	}))

	creator := &recordingCreator{}
	r := NewRunner(newNullSweeper(t, store), store, creator, RunnerConfig{
		Namespace:     status.DatafileNamespace,
		SweepInterval: time.Hour,
		WatchInterval: 10 * time.Millisecond,
	})

	r.Start(ctx)
	defer r.Stop(time.Second)

	require.Eventually(t, func() bool {
		return len(creator.Calls()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, creator.Calls(), "file-1")
}

func TestRunnerStopWithoutStart(t *testing.T) {
	store := newTestStore(t)
	r := NewRunner(newNullSweeper(t, store), store, &recordingCreator{}, RunnerConfig{})

	// Must not panic or block
	r.Stop(time.Second)
}

func TestRunnerStartIdempotent(t *testing.T) {
	store := newTestStore(t)
	r := NewRunner(newNullSweeper(t, store), store, &recordingCreator{}, RunnerConfig{
		SweepInterval: time.Hour,
		WatchInterval: time.Hour,
	})

	ctx := context.Background()
	r.Start(ctx)
	r.Start(ctx)
	r.Stop(time.Second)
}
