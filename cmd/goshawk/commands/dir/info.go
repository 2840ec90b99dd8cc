package dir

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <uuid>",
	Short: "Show one storage directory",
	Long: `Show the registry record for one storage directory.

Examples:
  # Show a directory by UUID
  goshawk dir info 6f1c0f0a-8e9b-4f4e-9e0a-2b7c5d13e8a1

  # As YAML
  goshawk dir info 6f1c0f0a-8e9b-4f4e-9e0a-2b7c5d13e8a1 -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid directory UUID %q: %w", args[0], err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	row, err := store.GetDirectory(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to get storage directory: %w", err)
	}

	return printDetail(newDirectoryView(row))
}
