package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/hsmwatch/pkg/config"
)

var sweepNamespace string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reconciliation sweep",
	Long: `Re-check every file currently recorded as online and flip records to
offline where the HSM has since migrated the file to tape.

The sweep only moves records from online to offline. Files skipped during
the sweep (unverified, unsupported backend, missing location) keep their
current record.

Examples:
  hsmwatch sweep
  hsmwatch sweep --namespace https://example.org/schemas/hsm/datafile/1`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepNamespace, "namespace", "", "Schema namespace to sweep (default from config)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	namespace := cfg.HSM.Namespace
	if sweepNamespace != "" {
		namespace = sweepNamespace
	}

	c, err := buildCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	stats, err := c.sweeper.Run(context.Background(), namespace)
	if err != nil {
		return err
	}

	fmt.Printf("Sweep completed: %d candidates, %d flipped offline, %d skipped, %d errors\n",
		stats.Candidates, stats.Flipped, stats.Skipped, stats.Errors)
	return nil
}
