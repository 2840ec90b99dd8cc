package dir

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

var (
	addViewVideo         bool
	addReadCameraConfigs bool
	addUpdateSignals     bool
)

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a storage directory",
	Long: `Register a storage directory with the recorder.

The directory is created if missing, stamped with a fresh UUID in its
metadata sidecar, and recorded in the registry. The permission flags set
the directory's default permission set for new users.

Examples:
  # Register a directory with default permissions (view_video)
  goshawk dir add /media/nvr-disk-1

  # Register a directory whose users may also update signals
  goshawk dir add /media/nvr-disk-2 --update-signals`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addViewVideo, "view-video", true, "Grant view_video by default")
	addCmd.Flags().BoolVar(&addReadCameraConfigs, "read-camera-configs", false, "Grant read_camera_configs by default")
	addCmd.Flags().BoolVar(&addUpdateSignals, "update-signals", false, "Grant update_signals by default")
}

func runAdd(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", args[0], err)
	}

	arch, store, err := openArchive()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	defer func() { _ = arch.Close() }()

	defaults := dirmeta.Permissions{
		ViewVideo:         addViewVideo,
		ReadCameraConfigs: addReadCameraConfigs,
		UpdateSignals:     addUpdateSignals,
	}

	row, err := arch.AddDirectory(context.Background(), path, defaults)
	if err != nil {
		return fmt.Errorf("failed to add storage directory: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Storage directory registered at %s", row.Path))
	return printDetail(newDirectoryView(row))
}
