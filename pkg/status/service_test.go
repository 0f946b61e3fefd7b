package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/checker"
	"github.com/marmos91/hsmwatch/pkg/cache/memory"
	"github.com/marmos91/hsmwatch/pkg/lock"
)

func newTestService(t *testing.T) (*Service, *Store) {
	t.Helper()

	store := newTestStore(t)
	resolver, err := checker.NewResolver(nil, nil)
	require.NoError(t, err)
	return NewService(store, memory.NewMemoryCache(), resolver, 0), store
}

func createTestFile(t *testing.T, store *Store, id string, verified bool) {
	t.Helper()

	require.NoError(t, store.CreateFile(context.Background(), &TrackedFile{
		ID:           id,
		DatasetID:    "dataset-1",
		ExperimentID: "exp-1",
		Verified:     verified,
		BackendClass: "filesystem",
		Path:         "/data/" + id,
	}))
}

func TestCreateStatus(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	createTestFile(t, store, "file-1", true)
	require.NoError(t, service.CreateStatus(ctx, "file-1", DatafileNamespace))

	record, err := store.GetRecord(ctx, DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.Equal(t, ValueOnline, record.Value)
}

func TestCreateStatusIdempotent(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	createTestFile(t, store, "file-1", true)
	require.NoError(t, service.CreateStatus(ctx, "file-1", DatafileNamespace))

	record, err := store.GetRecord(ctx, DatafileNamespace, "file-1")
	require.NoError(t, err)
	created := record.UpdatedAt

	// Repeating must not fail and must not rewrite the record.
	require.NoError(t, service.CreateStatus(ctx, "file-1", DatafileNamespace))

	record, err = store.GetRecord(ctx, DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.Equal(t, created, record.UpdatedAt)
}

func TestCreateStatusUnverified(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	createTestFile(t, store, "file-1", false)

	err := service.CreateStatus(ctx, "file-1", DatafileNamespace)
	var notVerified *checker.NotVerifiedError
	require.ErrorAs(t, err, &notVerified)
	assert.Equal(t, "file-1", notVerified.FileID)

	_, err = store.GetRecord(ctx, DatafileNamespace, "file-1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCreateStatusMissingFile(t *testing.T) {
	service, _ := newTestService(t)

	err := service.CreateStatus(context.Background(), "missing", DatafileNamespace)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

type countingMetrics struct {
	contention int
}

func (m *countingMetrics) RecordLockContention() { m.contention++ }

func TestCreateStatusLockHeld(t *testing.T) {
	store := newTestStore(t)
	resolver, err := checker.NewResolver(nil, nil)
	require.NoError(t, err)
	c := memory.NewMemoryCache()
	service := NewService(store, c, resolver, 0)
	m := &countingMetrics{}
	service.SetMetrics(m)
	ctx := context.Background()

	createTestFile(t, store, "file-1", true)

	// Simulate a concurrent worker holding the lock.
	acquired, err := c.Add(ctx, lock.Key("file-1"), "other-owner", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// Losing the race is success from the caller's side; the holder will
	// write the record.
	require.NoError(t, service.CreateStatus(ctx, "file-1", DatafileNamespace))

	_, err = store.GetRecord(ctx, DatafileNamespace, "file-1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Equal(t, 1, m.contention)
}

func TestCreateStatusWithPoolChecker(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "resident.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	pool := checker.NewPoolChecker(checker.PoolConfig{Workers: 2}, nil)
	pool.Start()
	t.Cleanup(pool.Stop)

	resolver, err := checker.NewResolver([]checker.BackendConfig{
		{BackendClass: "filesystem", Checker: checker.KindPool, Retriever: checker.KindPool},
	}, pool)
	require.NoError(t, err)

	service := NewService(store, memory.NewMemoryCache(), resolver, 0)

	require.NoError(t, store.CreateFile(ctx, &TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "filesystem",
		Path:         path,
	}))

	require.NoError(t, service.CreateStatus(ctx, "file-1", DatafileNamespace))

	record, err := store.GetRecord(ctx, DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.Equal(t, ValueOnline, record.Value)
}

func TestDatafileOnline(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	// No record means no HSM ever pushed the file offline.
	online, err := service.DatafileOnline(ctx, "file-1", DatafileNamespace)
	require.NoError(t, err)
	assert.True(t, online)

	_, err = store.CreateRecord(ctx, DatafileNamespace, "file-1", ValueOffline)
	require.NoError(t, err)

	online, err = service.DatafileOnline(ctx, "file-1", DatafileNamespace)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestDatasetOnline(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	online, err := service.DatasetOnline(ctx, "dataset-1", DatafileNamespace)
	require.NoError(t, err)
	assert.True(t, online, "empty dataset counts as online")

	createTestFile(t, store, "file-1", true)
	createTestFile(t, store, "file-2", true)

	online, err = service.DatasetOnline(ctx, "dataset-1", DatafileNamespace)
	require.NoError(t, err)
	assert.True(t, online)

	_, err = store.CreateRecord(ctx, DatafileNamespace, "file-2", ValueOffline)
	require.NoError(t, err)

	online, err = service.DatasetOnline(ctx, "dataset-1", DatafileNamespace)
	require.NoError(t, err)
	assert.False(t, online, "one offline file takes the dataset offline")
}

func TestExperimentOnline(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	createTestFile(t, store, "file-1", true)
	createTestFile(t, store, "file-2", true)

	online, err := service.ExperimentOnline(ctx, "exp-1", DatafileNamespace)
	require.NoError(t, err)
	assert.True(t, online)

	_, err = store.CreateRecord(ctx, DatafileNamespace, "file-1", ValueOffline)
	require.NoError(t, err)

	online, err = service.ExperimentOnline(ctx, "exp-1", DatafileNamespace)
	require.NoError(t, err)
	assert.False(t, online)
}
