package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/cache"
	"github.com/marmos91/hsmwatch/pkg/checker"
	"github.com/marmos91/hsmwatch/pkg/lock"
	"github.com/marmos91/hsmwatch/pkg/outcome"
)

// Metrics receives service-level events. Implementations must be safe for
// concurrent use; a nil Metrics disables collection.
type Metrics interface {
	// RecordLockContention counts a CreateStatus attempt that lost the
	// advisory lock race to a concurrent attempt for the same file.
	RecordLockContention()
}

// Service drives status record creation and the online roll-ups over
// datasets and experiments. It coordinates the store, the shared cache used
// for advisory locking, and the per-backend checker resolution.
type Service struct {
	store    *Store
	cache    cache.Cache
	resolver *checker.Resolver
	lockTTL  time.Duration
	metrics  Metrics
}

// NewService builds a Service. A non-positive lockTTL falls back to
// lock.DefaultTTL.
func NewService(store *Store, c cache.Cache, resolver *checker.Resolver, lockTTL time.Duration) *Service {
	if lockTTL <= 0 {
		lockTTL = lock.DefaultTTL
	}
	return &Service{
		store:    store,
		cache:    c,
		resolver: resolver,
		lockTTL:  lockTTL,
	}
}

// SetMetrics attaches a metrics sink. Call before the service is shared
// across goroutines.
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// CreateStatus checks the online status of the tracked file and persists it
// as a record under namespace.
//
// The operation is idempotent: an existing record is left untouched and
// counts as success. An advisory lock throttles duplicate concurrent
// attempts for the same file; losing the lock race is also success, the
// winner will write the record.
func (s *Service) CreateStatus(ctx context.Context, fileID, namespace string) error {
	if _, err := s.store.GetRecord(ctx, namespace, fileID); err == nil {
		logger.Debug("status record already exists",
			logger.File(fileID),
			logger.Namespace(namespace))
		return nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	owner := uuid.New().String()
	l := lock.New(s.cache, fileID, owner, s.lockTTL)
	acquired, err := l.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire status lock: %w", err)
	}
	if !acquired {
		if s.metrics != nil {
			s.metrics.RecordLockContention()
		}
		logger.Debug("status check already in progress",
			logger.File(fileID),
			logger.LockKey(lock.Key(fileID)))
		return nil
	}
	defer l.Release(ctx)

	file, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	online, err := s.checkOnline(ctx, file)
	if err != nil {
		return err
	}

	if _, err := s.store.CreateRecord(ctx, namespace, fileID, EncodeBool(online)); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return nil
		}
		return err
	}

	logger.Info("status record created",
		logger.File(fileID),
		logger.Namespace(namespace),
		logger.Online(online))
	return nil
}

// checkOnline resolves the checker for the file's backend and waits for the
// asynchronous check to complete.
func (s *Service) checkOnline(ctx context.Context, file *TrackedFile) (bool, error) {
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

// DatafileOnline reports whether the tracked file is online according to its
// status record under namespace. A file without a record counts as online:
// absence of a record means no HSM has ever pushed it offline.
func (s *Service) DatafileOnline(ctx context.Context, fileID, namespace string) (bool, error) {
	value, err := s.store.recordValueOrDefault(ctx, namespace, fileID, ValueOnline)
	if err != nil {
		return false, err
	}
	return value == ValueOnline, nil
}

// DatasetOnline reports whether every tracked file in the dataset is online.
// An empty dataset counts as online.
func (s *Service) DatasetOnline(ctx context.Context, datasetID, namespace string) (bool, error) {
	files, err := s.store.ListFilesByDataset(ctx, datasetID)
	if err != nil {
		return false, err
	}
	return s.allOnline(ctx, files, namespace)
}

// ExperimentOnline reports whether every tracked file in the experiment is
// online. An empty experiment counts as online.
func (s *Service) ExperimentOnline(ctx context.Context, experimentID, namespace string) (bool, error) {
	files, err := s.store.ListFilesByExperiment(ctx, experimentID)
	if err != nil {
		return false, err
	}
	return s.allOnline(ctx, files, namespace)
}

func (s *Service) allOnline(ctx context.Context, files []TrackedFile, namespace string) (bool, error) {
	for i := range files {
		online, err := s.DatafileOnline(ctx, files[i].ID, namespace)
		if err != nil {
			return false, err
		}
		if !online {
			return false, nil
		}
	}
	return true, nil
}
