package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/status"
)

// StatusCreator creates a status record for one tracked file. The watcher
// uses it to pick up files whose verification completed after ingest.
type StatusCreator interface {
	CreateStatus(ctx context.Context, fileID, namespace string) error
}

// RunnerConfig holds configuration for the background runner.
type RunnerConfig struct {
	// Namespace is the schema namespace being reconciled.
	Namespace string

	// SweepInterval is how often the reconciliation sweep runs.
	// Default: 1h
	SweepInterval time.Duration

	// WatchInterval is how often the watcher looks for newly verified files
	// without a status record.
	// Default: 1m
	WatchInterval time.Duration
}

// Runner schedules the reconciliation sweep and the post-verification
// watcher. Both loops run until Stop is called or the context given to
// Start is cancelled.
type Runner struct {
	sweeper *Sweeper
	store   *status.Store
	creator StatusCreator
	config  RunnerConfig

	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	started bool
}

// NewRunner creates a new background runner.
func NewRunner(sweeper *Sweeper, store *status.Store, creator StatusCreator, cfg RunnerConfig) *Runner {
	if cfg.Namespace == "" {
		cfg.Namespace = status.DatafileNamespace
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = time.Minute
	}

	return &Runner{
		sweeper:   sweeper,
		store:     store,
		creator:   creator,
		config:    cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the sweep and watch loops. Calling Start more than once is
// a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	logger.Info("starting background runner",
		logger.Namespace(r.config.Namespace),
		"sweep_interval", r.config.SweepInterval.String(),
		"watch_interval", r.config.WatchInterval.String())

	r.wg.Add(2)
	go r.sweepLoop(ctx)
	go r.watchLoop(ctx)

	go func() {
		r.wg.Wait()
		close(r.stoppedCh)
	}()
}

// Stop shuts the loops down, waiting up to timeout for the current iteration
// to finish.
func (r *Runner) Stop(timeout time.Duration) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.stoppedCh:
		logger.Info("background runner stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("background runner stop timed out")
	}
}

// sweepLoop runs the reconciliation sweep on its interval.
func (r *Runner) sweepLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.sweeper.Run(ctx, r.config.Namespace); err != nil {
				logger.Error("reconciliation sweep failed", logger.Err(err))
			}
		}
	}
}

// watchLoop creates status records for verified files that do not have one
// yet. Verification lags ingest, so files show up here once their checksum
// run completes.
func (r *Runner) watchLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.watchOnce(ctx)
		}
	}
}

func (r *Runner) watchOnce(ctx context.Context) {
	files, err := r.store.ListVerifiedFilesWithoutStatus(ctx, r.config.Namespace)
	if err != nil {
		logger.Error("failed to list files awaiting status", logger.Err(err))
		return
	}

	for i := range files {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := r.creator.CreateStatus(ctx, files[i].ID, r.config.Namespace); err != nil {
			logger.Error("failed to create status record",
				logger.File(files[i].ID),
				logger.Err(err))
		}
	}
}
