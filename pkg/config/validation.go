package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover field-level constraints; the checks below cover
// relationships between fields that tags cannot express.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return err
	}

	if cfg.Cache.Type == CacheTypeBadger && cfg.Cache.Badger.Path == "" {
		return fmt.Errorf("cache.badger.path is required when cache.type is %q", CacheTypeBadger)
	}

	if cfg.Sweep.Interval < 0 {
		return fmt.Errorf("sweep.interval must not be negative")
	}
	if cfg.Sweep.WatchInterval < 0 {
		return fmt.Errorf("sweep.watch_interval must not be negative")
	}

	return nil
}
