// Package sweep reconciles persisted online status records against the
// filesystem. Records drift stale in one direction only: an HSM migrates a
// file to tape after its record was written. The sweep therefore flips
// records from online to offline and never the reverse; recalled files keep
// their offline record until a recall flow updates it.
package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/backend"
	"github.com/marmos91/hsmwatch/pkg/checker"
	"github.com/marmos91/hsmwatch/pkg/outcome"
	"github.com/marmos91/hsmwatch/pkg/status"
)

// Metrics receives sweep observations. A nil Metrics disables reporting.
type Metrics interface {
	ObserveSweep(stats Stats, duration time.Duration)
}

// Stats summarizes one sweep run.
type Stats struct {
	// Candidates is the number of online records examined.
	Candidates int

	// Flipped is the number of records moved from online to offline.
	Flipped int

	// Skipped counts candidates passed over: unverified files, unsupported
	// backends, missing files or storage locations.
	Skipped int

	// Errors counts candidates whose check or update failed.
	Errors int
}

// Sweeper walks every online record in a namespace and re-checks the
// backing file.
type Sweeper struct {
	store    *status.Store
	resolver *checker.Resolver
	registry *backend.Registry
	metrics  Metrics
}

// New builds a Sweeper. metrics may be nil.
func New(store *status.Store, resolver *checker.Resolver, registry *backend.Registry, metrics Metrics) *Sweeper {
	return &Sweeper{
		store:    store,
		resolver: resolver,
		registry: registry,
		metrics:  metrics,
	}
}

// Run performs one sweep over namespace. Individual candidate failures are
// logged and counted but never abort the sweep; only listing failures and
// context cancellation do.
func (s *Sweeper) Run(ctx context.Context, namespace string) (Stats, error) {
	start := time.Now()

	records, err := s.store.ListOnlineRecords(ctx, namespace)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Candidates: len(records)}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		s.sweepOne(ctx, namespace, &records[i], &stats)
	}

	logger.Info("sweep completed",
		logger.Namespace(namespace),
		logger.Candidates(stats.Candidates),
		logger.Flipped(stats.Flipped),
		logger.Skipped(stats.Skipped),
		logger.DurationMs(logger.Duration(start)))

	if s.metrics != nil {
		s.metrics.ObserveSweep(stats, time.Since(start))
	}
	return stats, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, namespace string, record *status.Record, stats *Stats) {
	file, err := s.store.GetFile(ctx, record.FileID)
	if err != nil {
		if errors.Is(err, status.ErrFileNotFound) {
			logger.Warn("online record has no tracked file, skipping",
				logger.File(record.FileID),
				logger.Namespace(namespace))
			stats.Skipped++
			return
		}
		logger.Error("failed to load tracked file",
			logger.File(record.FileID),
			logger.Err(err))
		stats.Errors++
		return
	}

	if !file.Verified {
		logger.Debug("skipping unverified file",
			logger.File(file.ID))
		stats.Skipped++
		return
	}

	if err := s.registry.Check(file.BackendClass); err != nil {
		// Configuration mismatch; the error text carries the remediation.
		logger.Warn("skipping file on unsupported backend",
			logger.File(file.ID),
			logger.Backend(file.BackendClass),
			logger.Err(err))
		stats.Skipped++
		return
	}

	if _, err := file.PreferredStorageObject(); err != nil {
		logger.Warn("skipping file without storage location",
			logger.File(file.ID),
			logger.Err(err))
		stats.Skipped++
		return
	}

	online, err := s.checkOnline(ctx, file)
	if err != nil {
		logger.Error("status check failed",
			logger.File(file.ID),
			logger.Path(file.Path),
			logger.Err(err))
		stats.Errors++
		return
	}

	if online {
		return
	}

	if err := s.store.UpdateRecordValue(ctx, namespace, file.ID, status.ValueOffline); err != nil {
		logger.Error("failed to flip status record offline",
			logger.File(file.ID),
			logger.Namespace(namespace),
			logger.Err(err))
		stats.Errors++
		return
	}

	logger.Info("file went offline",
		logger.File(file.ID),
		logger.Path(file.Path))
	stats.Flipped++
}

func (s *Sweeper) checkOnline(ctx context.Context, file *status.TrackedFile) (bool, error) {
	chk, err := s.resolver.CheckerFor(file.BackendClass)
	if err != nil {
		return false, err
	}

	ch := make(chan outcome.Outcome[bool], 1)
	if err := chk.Online(ctx, file, func(o outcome.Outcome[bool]) {
		ch <- o
	}); err != nil {
		return false, err
	}

	select {
	case o := <-ch:
		return o.Get()
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
