package commands

import (
	"fmt"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/backend"
	"github.com/marmos91/hsmwatch/pkg/cache"
	badgercache "github.com/marmos91/hsmwatch/pkg/cache/badger"
	"github.com/marmos91/hsmwatch/pkg/cache/memory"
	"github.com/marmos91/hsmwatch/pkg/checker"
	"github.com/marmos91/hsmwatch/pkg/config"
	"github.com/marmos91/hsmwatch/pkg/metrics/prometheus"
	"github.com/marmos91/hsmwatch/pkg/status"
	"github.com/marmos91/hsmwatch/pkg/sweep"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// core bundles the wired components shared by the commands. It is the single
// composition root: the pool checker in particular must be instantiated once
// per process.
type core struct {
	store    *status.Store
	cache    cache.Cache
	pool     *checker.PoolChecker
	resolver *checker.Resolver
	registry *backend.Registry
	service  *status.Service
	sweeper  *sweep.Sweeper
}

// buildCore wires the store, cache, checker pool and services from
// configuration. The caller owns the returned core and must call close.
func buildCore(cfg *config.Config) (*core, error) {
	store, err := status.NewStore(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize status store: %w", err)
	}

	var lockCache cache.Cache
	switch cfg.Cache.Type {
	case config.CacheTypeBadger:
		lockCache, err = badgercache.NewBadgerCache(cfg.Cache.Badger.Path)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to open lock cache: %w", err)
		}
	default:
		lockCache = memory.NewMemoryCache()
	}

	var pool *checker.PoolChecker
	if cfg.HSM.PoolEnabled() {
		pool = checker.NewPoolChecker(checker.PoolConfig{
			Workers:     cfg.Checker.Workers,
			QueueSize:   cfg.Checker.QueueSize,
			MinFileSize: cfg.HSM.MinFileSize.Uint64(),
		}, prometheus.NewCheckerMetrics())
		pool.Start()
	}

	resolver, err := checker.NewResolver(cfg.HSM.CheckerBackends(), pool)
	if err != nil {
		if pool != nil {
			pool.Stop()
		}
		_ = lockCache.Close()
		_ = store.Close()
		return nil, err
	}

	registry := backend.NewRegistry(cfg.HSM.SupportedBackends...)
	service := status.NewService(store, lockCache, resolver, cfg.Lock.TTL)
	service.SetMetrics(prometheus.NewServiceMetrics())
	sweeper := sweep.New(store, resolver, registry, prometheus.NewSweepMetrics())

	return &core{
		store:    store,
		cache:    lockCache,
		pool:     pool,
		resolver: resolver,
		registry: registry,
		service:  service,
		sweeper:  sweeper,
	}, nil
}

// close tears the core down in reverse dependency order.
func (c *core) close() {
	if c.pool != nil {
		c.pool.Stop()
	}
	if err := c.cache.Close(); err != nil {
		logger.Error("failed to close lock cache", logger.Err(err))
	}
	if err := c.store.Close(); err != nil {
		logger.Error("failed to close status store", logger.Err(err))
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
