package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
)

var (
	revokeViewVideo         bool
	revokeReadCameraConfigs bool
	revokeUpdateSignals     bool
)

var revokeCmd = &cobra.Command{
	Use:   "revoke <username>",
	Short: "Revoke permissions from a user",
	Long: `Revoke permission flags from a user.

Only the named flags are removed; the rest of the user's set is kept.

Examples:
  # Stop alice from updating signals
  goshawk user revoke alice --update-signals`,
	Args: cobra.ExactArgs(1),
	RunE: runRevoke,
}

func init() {
	revokeCmd.Flags().BoolVar(&revokeViewVideo, "view-video", false, "Revoke view_video")
	revokeCmd.Flags().BoolVar(&revokeReadCameraConfigs, "read-camera-configs", false, "Revoke read_camera_configs")
	revokeCmd.Flags().BoolVar(&revokeUpdateSignals, "update-signals", false, "Revoke update_signals")
}

func runRevoke(cmd *cobra.Command, args []string) error {
	username := args[0]

	if !revokeViewVideo && !revokeReadCameraConfigs && !revokeUpdateSignals {
		return fmt.Errorf("nothing to revoke: pass at least one permission flag")
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
	next, err := row.DecodePermissions()
	if err != nil {
		return fmt.Errorf("failed to decode permissions for %s: %w", username, err)
	}

	if revokeViewVideo {
		next.ViewVideo = false
	}
	if revokeReadCameraConfigs {
		next.ReadCameraConfigs = false
	}
	if revokeUpdateSignals {
		next.UpdateSignals = false
	}

	if err := store.UpdateUserPermissions(ctx, username, next); err != nil {
		return fmt.Errorf("failed to update permissions: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("User '%s' permissions: %s", username, next))
	return nil
}
