package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/hsmwatch/internal/bytesize"
	"github.com/marmos91/hsmwatch/pkg/status"
)

// Config represents the hsmwatch configuration.
//
// This structure captures the static configuration of the service:
//   - Logging configuration
//   - Server settings (shutdown timeout, metrics, ops HTTP)
//   - Database connection (status record persistence)
//   - Cache configuration (advisory lock backend)
//   - HSM settings (threshold, supported backends, per-backend checkers)
//   - Checker pool and sweep scheduling
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (HSMWATCH_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the status database (SQLite or PostgreSQL).
	// This is the persistent store for tracked files and status records.
	Database status.Config `mapstructure:"database" yaml:"database"`

	// Cache configures the key-value cache backing advisory locks
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Lock contains advisory lock settings
	Lock LockConfig `mapstructure:"lock" yaml:"lock"`

	// HSM contains the status classification settings
	HSM HSMConfig `mapstructure:"hsm" yaml:"hsm"`

	// Checker configures the worker pool performing filesystem probes
	Checker CheckerConfig `mapstructure:"checker" yaml:"checker"`

	// Sweep configures periodic reconciliation and the post-verification
	// watcher
	Sweep SweepConfig `mapstructure:"sweep" yaml:"sweep"`

	// Metrics contains Prometheus metrics configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Server contains the ops HTTP server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// CacheType selects the advisory lock cache backend.
type CacheType string

const (
	// CacheTypeMemory keeps locks in process memory. Suitable for a single
	// hsmwatch instance.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeBadger persists locks in a Badger database so they survive
	// restarts and can be shared via a common data directory.
	CacheTypeBadger CacheType = "badger"
)

// CacheConfig configures the key-value cache backing advisory locks.
type CacheConfig struct {
	// Type selects the cache backend
	// Valid values: memory, badger
	Type CacheType `mapstructure:"type" validate:"required,oneof=memory badger" yaml:"type"`

	// Badger contains Badger-specific settings, used when Type is "badger"
	Badger BadgerCacheConfig `mapstructure:"badger" yaml:"badger"`
}

// BadgerCacheConfig contains Badger cache settings.
type BadgerCacheConfig struct {
	// Path is the directory for the Badger database
	Path string `mapstructure:"path" yaml:"path"`
}

// LockConfig contains advisory lock settings.
type LockConfig struct {
	// TTL is how long an acquired lock stays valid before the cache expires
	// it. Workers that die mid-check release their lock through this expiry.
	// Default: 5m
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// HSMConfig contains the status classification settings.
type HSMConfig struct {
	// MinFileSize is the size threshold below which a file with zero
	// allocated blocks is still considered online. Small files can live
	// entirely inside their inode and legitimately report zero blocks.
	// Supports human-readable formats: "350", "1Ki", "4KB"
	// Default: 350
	MinFileSize bytesize.ByteSize `mapstructure:"min_file_size" yaml:"min_file_size"`

	// Namespace is the schema namespace status records are written under
	Namespace string `mapstructure:"namespace" validate:"required" yaml:"namespace"`

	// SupportedBackends lists the storage backend classes eligible for
	// status checks. Files on other backends are skipped.
	SupportedBackends []string `mapstructure:"supported_backends" yaml:"supported_backends"`

	// Backends binds storage backend classes to checker and retriever
	// implementations. A class without an entry uses the null
	// implementation.
	Backends []BackendCheckerConfig `mapstructure:"backends" validate:"dive" yaml:"backends"`
}

// BackendCheckerConfig binds one storage backend class to checker and
// retriever implementations.
type BackendCheckerConfig struct {
	// Class is the storage backend class this entry applies to
	Class string `mapstructure:"class" validate:"required" yaml:"class"`

	// Checker selects the status-check implementation
	// Valid values: none, pool
	Checker string `mapstructure:"checker" validate:"required,oneof=none pool" yaml:"checker"`

	// Retriever selects the recall implementation
	// Valid values: none, pool
	Retriever string `mapstructure:"retriever" validate:"required,oneof=none pool" yaml:"retriever"`
}

// CheckerConfig configures the worker pool performing filesystem probes.
type CheckerConfig struct {
	// Workers is the number of concurrent probe workers
	// Default: number of CPUs
	Workers int `mapstructure:"workers" validate:"omitempty,min=1" yaml:"workers"`

	// QueueSize is the capacity of the pending task queue
	// Default: 256
	QueueSize int `mapstructure:"queue_size" validate:"omitempty,min=1" yaml:"queue_size"`
}

// SweepConfig configures periodic reconciliation.
type SweepConfig struct {
	// Interval is how often the reconciliation sweep runs
	// Default: 1h
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// WatchInterval is how often the watcher looks for newly verified files
	// without a status record
	// Default: 1m
	WatchInterval time.Duration `mapstructure:"watch_interval" yaml:"watch_interval"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig configures the ops HTTP server exposing health and metrics
// endpoints.
type ServerConfig struct {
	// Port is the HTTP listen port
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading a request
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (HSMWATCH_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  hsmwatch init\n\n"+
				"Or specify a custom config file:\n"+
				"  hsmwatch <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  hsmwatch init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: config files may carry database credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use HSMWATCH_ prefix and underscores
	// Example: HSMWATCH_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("HSMWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/hsmwatch/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
// This includes ByteSize and time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook returns a mapstructure decode hook that converts strings
// and integers to bytesize.ByteSize. This enables config files to use
// human-readable sizes like "1Ki", "4KB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hsmwatch")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "hsmwatch")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
