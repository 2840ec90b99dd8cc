package user

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Long: `List the users stored in the registry.

Examples:
  # List users as a table
  goshawk user list

  # List as JSON
  goshawk user list -o json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rows, err := store.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	views := make(UserList, 0, len(rows))
	for _, row := range rows {
		views = append(views, newUserView(row))
	}

	return cmdutil.PrintOutput(os.Stdout, views, len(views) == 0, "No users found.", views)
}
