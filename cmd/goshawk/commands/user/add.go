package user

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

var (
	addViewVideo         bool
	addReadCameraConfigs bool
	addUpdateSignals     bool
)

var addCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Long: `Create a user with the given permission flags.

Permissions default to none; grant them explicitly with flags, or later
with 'goshawk user grant'.

Examples:
  # Create a viewer
  goshawk user add alice --view-video

  # Create a user with every permission
  goshawk user add admin --view-video --read-camera-configs --update-signals`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addViewVideo, "view-video", false, "Grant view_video")
	addCmd.Flags().BoolVar(&addReadCameraConfigs, "read-camera-configs", false, "Grant read_camera_configs")
	addCmd.Flags().BoolVar(&addUpdateSignals, "update-signals", false, "Grant update_signals")
}

func runAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	row := &registry.User{Username: username}
	row.SetPermissions(flagPermissions(addViewVideo, addReadCameraConfigs, addUpdateSignals))

	if _, err := store.CreateUser(context.Background(), row); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Created user '%s'", username))
	view := newUserView(row)
	return cmdutil.PrintResource(os.Stdout, view, UserList{view})
}
