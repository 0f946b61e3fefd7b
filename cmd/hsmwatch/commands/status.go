package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/hsmwatch/pkg/config"
	"github.com/marmos91/hsmwatch/pkg/status"
)

var statusNamespace string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status record counts",
	Long: `Show how many tracked files are recorded online and offline in the
configured namespace.

Examples:
  hsmwatch status
  hsmwatch status --namespace https://example.org/schemas/hsm/datafile/1`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusNamespace, "namespace", "", "Schema namespace to summarize (default from config)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	namespace := cfg.HSM.Namespace
	if statusNamespace != "" {
		namespace = statusNamespace
	}

	store, err := status.NewStore(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open status store: %w", err)
	}
	defer func() { _ = store.Close() }()

	online, offline, err := store.CountRecords(context.Background(), namespace)
	if err != nil {
		return err
	}

	fmt.Printf("Namespace: %s\n", namespace)
	fmt.Printf("  online:  %d\n", online)
	fmt.Printf("  offline: %d\n", offline)
	return nil
}
