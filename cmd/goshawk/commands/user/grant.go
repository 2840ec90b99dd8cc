package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
)

var (
	grantViewVideo         bool
	grantReadCameraConfigs bool
	grantUpdateSignals     bool
)

var grantCmd = &cobra.Command{
	Use:   "grant <username>",
	Short: "Grant permissions to a user",
	Long: `Grant additional permission flags to a user.

The named flags are added to the user's current set; permissions the user
already holds are kept.

Examples:
  # Let alice watch recordings
  goshawk user grant alice --view-video

  # Add two permissions at once
  goshawk user grant alice --read-camera-configs --update-signals`,
	Args: cobra.ExactArgs(1),
	RunE: runGrant,
}

func init() {
	grantCmd.Flags().BoolVar(&grantViewVideo, "view-video", false, "Grant view_video")
	grantCmd.Flags().BoolVar(&grantReadCameraConfigs, "read-camera-configs", false, "Grant read_camera_configs")
	grantCmd.Flags().BoolVar(&grantUpdateSignals, "update-signals", false, "Grant update_signals")
}

func runGrant(cmd *cobra.Command, args []string) error {
	username := args[0]

	granted := flagPermissions(grantViewVideo, grantReadCameraConfigs, grantUpdateSignals)
	if granted == (flagPermissions(false, false, false)) {
		return fmt.Errorf("nothing to grant: pass at least one permission flag")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	row, err := store.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	current, err := row.DecodePermissions()
	if err != nil {
		return fmt.Errorf("failed to decode permissions for %s: %w", username, err)
	}

	next := current.Union(granted)
	if next == current {
		fmt.Printf("User '%s' already holds %s\n", username, current)
		return nil
	}

	if err := store.UpdateUserPermissions(ctx, username, next); err != nil {
		return fmt.Errorf("failed to update permissions: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("User '%s' permissions: %s", username, next))
	return nil
}
