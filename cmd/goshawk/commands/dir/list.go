package dir

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered storage directories",
	Long: `List the storage directories registered in the registry database.

Examples:
  # List directories as a table
  goshawk dir list

  # List as JSON
  goshawk dir list -o json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows, err := store.ListDirectories(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list storage directories: %w", err)
	}

	views := make(DirectoryList, 0, len(rows))
	for _, row := range rows {
		views = append(views, newDirectoryView(row))
	}

	return cmdutil.PrintOutput(os.Stdout, views, len(views) == 0, "No storage directories registered.", views)
}
