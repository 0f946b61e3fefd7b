package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/marmos91/hsmwatch/internal/bytesize"
	"github.com/marmos91/hsmwatch/pkg/backend"
	"github.com/marmos91/hsmwatch/pkg/hsm"
	"github.com/marmos91/hsmwatch/pkg/lock"
	"github.com/marmos91/hsmwatch/pkg/status"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyShutdownTimeoutDefaults(cfg)
	cfg.Database.ApplyDefaults()
	applyCacheDefaults(&cfg.Cache)
	applyLockDefaults(&cfg.Lock)
	applyHSMDefaults(&cfg.HSM)
	applyCheckerDefaults(&cfg.Checker)
	applySweepDefaults(&cfg.Sweep)
	applyServerDefaults(&cfg.Server)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyCacheDefaults sets advisory lock cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Type == "" {
		cfg.Type = CacheTypeMemory
	}
}

// applyLockDefaults sets advisory lock defaults.
func applyLockDefaults(cfg *LockConfig) {
	if cfg.TTL == 0 {
		cfg.TTL = lock.DefaultTTL
	}
}

// applyHSMDefaults sets status classification defaults.
func applyHSMDefaults(cfg *HSMConfig) {
	if cfg.MinFileSize == 0 {
		cfg.MinFileSize = bytesize.ByteSize(hsm.DefaultMinFileSize)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = status.DatafileNamespace
	}
	if len(cfg.SupportedBackends) == 0 {
		cfg.SupportedBackends = append([]string(nil), backend.DefaultSupportedClasses...)
	}
}

// applyCheckerDefaults sets checker pool defaults.
func applyCheckerDefaults(cfg *CheckerConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 256
	}
}

// applySweepDefaults sets reconciliation sweep defaults.
func applySweepDefaults(cfg *SweepConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.WatchInterval == 0 {
		cfg.WatchInterval = time.Minute
	}
}

// applyServerDefaults sets ops HTTP server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: status.Config{
			Type: status.DatabaseTypeSQLite, // Default to SQLite for single-node
		},
		HSM: HSMConfig{
			Backends: []BackendCheckerConfig{
				{Class: "filesystem", Checker: "pool", Retriever: "pool"},
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
