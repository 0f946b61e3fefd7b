package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/hsmwatch/pkg/config"
)

var createNamespace string

var createCmd = &cobra.Command{
	Use:   "create FILE_ID [FILE_ID...]",
	Short: "Create status records for tracked files",
	Long: `Check the online status of one or more tracked files and persist the
result as status records.

The operation is idempotent: files that already have a record are left
untouched. Files whose status is being checked by another worker are
skipped; the worker holding the lock writes the record.

Examples:
  hsmwatch create 42
  hsmwatch create --namespace https://example.org/schemas/hsm/datafile/1 42 43 44`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createNamespace, "namespace", "", "Schema namespace to record under (default from config)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	namespace := cfg.HSM.Namespace
	if createNamespace != "" {
		namespace = createNamespace
	}

	c, err := buildCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx := context.Background()

	var failed bool
	for _, fileID := range args {
		if err := c.service.CreateStatus(ctx, fileID, namespace); err != nil {
			fmt.Printf("%s: error: %v\n", fileID, err)
			failed = true
			continue
		}
		fmt.Printf("%s: ok\n", fileID)
	}

	if failed {
		return fmt.Errorf("one or more status records could not be created")
	}
	return nil
}
