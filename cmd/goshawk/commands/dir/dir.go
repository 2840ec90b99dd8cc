// Package dir implements storage directory management subcommands for goshawk.
package dir

import (
	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/pkg/archive"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// Cmd is the parent command for storage directory management.
var Cmd = &cobra.Command{
	Use:   "dir",
	Short: "Storage directory management",
	Long: `Manage the storage directories recordings are spread across.

Directory commands talk to the registry database directly and take the
directory lock while they work, so run them while the server is stopped.

Examples:
  # Register a new storage directory
  goshawk dir add /media/nvr-disk-1

  # List registered directories
  goshawk dir list

  # Inspect one directory
  goshawk dir info 6f1c0f0a-8e9b-4f4e-9e0a-2b7c5d13e8a1

  # Verify a directory's sidecar identity
  goshawk dir check /media/nvr-disk-1

  # Deregister a directory and clear its sidecar
  goshawk dir delete 6f1c0f0a-8e9b-4f4e-9e0a-2b7c5d13e8a1`,
}

func init() {
	Cmd.PersistentFlags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format: table, json, or yaml")

	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(checkCmd)
	Cmd.AddCommand(deleteCmd)
}

// openStore loads the configuration and opens the registry store.
func openStore() (registry.Store, error) {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return nil, err
	}
	store, err := cfg.Registry.NewStore()
	if err != nil {
		return nil, err
	}
	return store, nil
}

// openArchive opens the registry store and wraps it in an archive handle
// for offline directory work. The caller closes the archive first, then
// the store.
func openArchive() (*archive.Archive, registry.Store, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return archive.New(store, nil), store, nil
}
