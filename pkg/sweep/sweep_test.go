package sweep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hsmwatch/pkg/backend"
	"github.com/marmos91/hsmwatch/pkg/checker"
	"github.com/marmos91/hsmwatch/pkg/status"
)

func newTestStore(t *testing.T) *status.Store {
	t.Helper()

	store, err := status.NewStore(&status.Config{
		Type:   status.DatabaseTypeSQLite,
		SQLite: status.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newNullSweeper(t *testing.T, store *status.Store) *Sweeper {
	t.Helper()

	resolver, err := checker.NewResolver(nil, nil)
	require.NoError(t, err)
	return New(store, resolver, backend.NewRegistry(), nil)
}

func addFileWithRecord(t *testing.T, store *status.Store, file status.TrackedFile, value string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.CreateFile(ctx, &file))
	_, err := store.CreateRecord(ctx, status.DatafileNamespace, file.ID, value)
	require.NoError(t, err)
}

func TestSweepNoCandidates(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)

	stats, err := s.Run(context.Background(), status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestSweepOnlineFileStaysOnline(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "filesystem",
		Path:         "/data/file-1",
	}, status.ValueOnline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{Candidates: 1}, stats)

	record, err := store.GetRecord(ctx, status.DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.True(t, record.Online())
}

func TestSweepFlipsOfflineFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Offline means size above the threshold with zero allocated blocks.
	// A sparse file on a regular filesystem has exactly that shape.
	dir := t.TempDir()
	path := filepath.Join(dir, "migrated.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(1<<20))
	require.NoError(t, f.Close())

	pool := checker.NewPoolChecker(checker.PoolConfig{Workers: 1}, nil)
	pool.Start()
	t.Cleanup(pool.Stop)

	resolver, err := checker.NewResolver([]checker.BackendConfig{
		{BackendClass: "filesystem", Checker: checker.KindPool, Retriever: checker.KindPool},
	}, pool)
	require.NoError(t, err)

	s := New(store, resolver, backend.NewRegistry(), nil)

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "filesystem",
		Path:         path,
	}, status.ValueOnline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Flipped)

	record, err := store.GetRecord(ctx, status.DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.False(t, record.Online())
}

func TestSweepNeverFlipsOfflineToOnline(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	// The null checker reports everything online, but offline records are
	// not candidates: only a recall flow may bring a record back online.
	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "filesystem",
		Path:         "/data/file-1",
	}, status.ValueOffline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	record, err := store.GetRecord(ctx, status.DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.False(t, record.Online())
}

func TestSweepSkipsUnverified(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     false,
		BackendClass: "filesystem",
		Path:         "/data/file-1",
	}, status.ValueOnline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{Candidates: 1, Skipped: 1}, stats)
}

func TestSweepSkipsUnsupportedBackend(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "s3",
		Path:         "bucket/key",
	}, status.ValueOnline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{Candidates: 1, Skipped: 1}, stats)

	// Still online: unsupported backends are skipped, not flipped.
	record, err := store.GetRecord(ctx, status.DatafileNamespace, "file-1")
	require.NoError(t, err)
	assert.True(t, record.Online())
}

func TestSweepSkipsMissingLocation(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "filesystem",
	}, status.ValueOnline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{Candidates: 1, Skipped: 1}, stats)
}

func TestSweepSkipsOrphanRecord(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	_, err := store.CreateRecord(ctx, status.DatafileNamespace, "ghost", status.ValueOnline)
	require.NoError(t, err)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{Candidates: 1, Skipped: 1}, stats)
}

func TestSweepContinuesPastBadCandidates(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)
	ctx := context.Background()

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     false,
		BackendClass: "filesystem",
		Path:         "/data/file-1",
	}, status.ValueOnline)
	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-2",
		Verified:     true,
		BackendClass: "filesystem",
		Path:         "/data/file-2",
	}, status.ValueOnline)

	stats, err := s.Run(ctx, status.DatafileNamespace)
	require.NoError(t, err)
	assert.Equal(t, Stats{Candidates: 2, Skipped: 1}, stats)
}

func TestSweepHonorsContext(t *testing.T) {
	store := newTestStore(t)
	s := newNullSweeper(t, store)

	addFileWithRecord(t, store, status.TrackedFile{
		ID:           "file-1",
		Verified:     true,
		BackendClass: "filesystem",
		Path:         "/data/file-1",
	}, status.ValueOnline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, status.DatafileNamespace)
	assert.ErrorIs(t, err, context.Canceled)
}
