package dir

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/segdir"
)

var checkCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "Verify a storage directory's identity",
	Long: `Verify that a storage directory's metadata sidecar matches the registry.

Reads the sidecar at the given path and compares its database and directory
UUIDs against the registry record. A directory mismatch means the path
points at the wrong directory entirely; a database mismatch means the
directory was last attached to a different registry and needs a deliberate
reattach.

The check takes the directory lock, so stop the server first.

Examples:
  # Check a registered directory
  goshawk dir check /media/nvr-disk-1`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", args[0], err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	dbID, err := store.DatabaseID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read database UUID: %w", err)
	}
	rows, err := store.ListDirectories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list storage directories: %w", err)
	}

	d, err := segdir.Open(path, nil)
	if err != nil {
		switch {
		case segdir.IsLocked(err):
			return fmt.Errorf("%s is locked by another process\nStop the server ('goshawk stop') before checking", path)
		case segdir.IsNotFound(err):
			return fmt.Errorf("%s has no metadata sidecar: not an initialized storage directory", path)
		default:
			return fmt.Errorf("failed to open storage directory: %w", err)
		}
	}
	defer func() { _ = d.Close() }()

	meta := d.Meta()
	printSidecar(path, d, meta)

	row := findByPath(rows, path)
	if row == nil {
		return reportUnregistered(rows, meta, dbID)
	}

	verdict := d.Check(dbID, row.UUID)
	switch verdict.Kind {
	case segdir.MismatchDirectory:
		fmt.Printf("\nIdentity check FAILED: the sidecar belongs to directory %s, but the registry expects %s.\n", verdict.Actual, verdict.Expected)
		fmt.Println("The path points at the wrong directory; it must not be attached.")
		return verdict.Err("check", path)
	case segdir.MismatchDatabase:
		fmt.Printf("\nIdentity check FAILED: the directory was last attached to database %s, not %s.\n", verdict.Actual, verdict.Expected)
		fmt.Println("Reattach it deliberately if this registry really owns it.")
		return verdict.Err("check", path)
	default:
		fmt.Printf("\nIdentity check passed (registered as %s)\n", row.UUID)
		return nil
	}
}

func printSidecar(path string, d *segdir.Dir, meta *dirmeta.DirMeta) {
	lastOpen := "-"
	if meta.LastCompleteOpen != nil {
		lastOpen = meta.LastCompleteOpen.String()
	}
	inProgress := "-"
	if meta.InProgressOpen != nil {
		inProgress = meta.InProgressOpen.String()
	}
	fmt.Printf("Sidecar at %s\n", path)
	fmt.Printf("  Directory UUID:     %s\n", meta.DirectoryID)
	fmt.Printf("  Database UUID:      %s\n", meta.DatabaseID)
	fmt.Printf("  State:              %s\n", d.State())
	fmt.Printf("  Last complete open: %s\n", lastOpen)
	fmt.Printf("  In-progress open:   %s\n", inProgress)
}

func findByPath(rows []*registry.Directory, path string) *registry.Directory {
	for _, row := range rows {
		if row.Path == path {
			return row
		}
	}
	return nil
}

// reportUnregistered explains a sidecar that has no registry row for its
// path: either the directory moved, or it belongs somewhere else entirely.
func reportUnregistered(rows []*registry.Directory, meta *dirmeta.DirMeta, dbID uuid.UUID) error {
	for _, row := range rows {
		if row.UUID == meta.DirectoryID {
			return fmt.Errorf("directory %s is registered at %s, not here\nUpdate the registry if the directory moved", meta.DirectoryID, row.Path)
		}
	}
	if meta.DatabaseID != uuid.Nil && meta.DatabaseID != dbID {
		return fmt.Errorf("directory %s belongs to database %s and is not registered here", meta.DirectoryID, meta.DatabaseID)
	}
	return fmt.Errorf("directory %s is not registered with this database\nUse 'goshawk dir add' to register it", meta.DirectoryID)
}
