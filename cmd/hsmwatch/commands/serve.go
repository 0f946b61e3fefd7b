package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/hsmwatch/internal/logger"
	"github.com/marmos91/hsmwatch/pkg/api"
	"github.com/marmos91/hsmwatch/pkg/config"
	"github.com/marmos91/hsmwatch/pkg/metrics"
	"github.com/marmos91/hsmwatch/pkg/sweep"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hsmwatch service",
	Long: `Run the hsmwatch service in the foreground.

The service runs the periodic reconciliation sweep, watches for newly
verified files without a status record, and exposes health and metrics
endpoints over HTTP.

Examples:
  # Run with default config location
  hsmwatch serve

  # Run with custom config
  hsmwatch serve --config /etc/hsmwatch/config.yaml

  # Run with environment variable overrides
  HSMWATCH_LOGGING_LEVEL=DEBUG hsmwatch serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	// Metrics must be initialized before buildCore so the checker and sweep
	// constructors see an enabled registry.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("metrics enabled")
	} else {
		logger.Info("metrics collection disabled")
	}

	c, err := buildCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("status store ready",
		"database", string(cfg.Database.Type),
		logger.Namespace(cfg.HSM.Namespace))
	logger.Info("supported backends", "classes", c.registry.Classes())
	if c.pool != nil {
		logger.Info("checker pool started",
			"workers", cfg.Checker.Workers,
			"queue_size", cfg.Checker.QueueSize,
			"min_file_size", cfg.HSM.MinFileSize.String())
	} else {
		logger.Info("no backend selects the pool checker, probes disabled")
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := sweep.NewRunner(c.sweeper, c.store, c.service, sweep.RunnerConfig{
		Namespace:     cfg.HSM.Namespace,
		SweepInterval: cfg.Sweep.Interval,
		WatchInterval: cfg.Sweep.WatchInterval,
	})
	runner.Start(ctx)
	defer runner.Stop(cfg.ShutdownTimeout)

	opsServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, c.store, cfg.HSM.Namespace)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- opsServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("service is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("ops server shutdown error", "error", err)
			return err
		}
		logger.Info("service stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("ops server error", "error", err)
			return err
		}
		logger.Info("service stopped")
	}

	return nil
}
