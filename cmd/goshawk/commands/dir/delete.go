package dir

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/internal/cli/prompt"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <uuid>",
	Short: "Deregister a storage directory",
	Long: `Deregister a storage directory and clear its metadata sidecar.

The directory must hold no segment files; delete is a deregistration, not
a purge. If the directory is missing from disk (a dead drive), only the
registry record is removed. Because the sidecar wipe cannot be undone, the
command asks for confirmation twice; --force skips both prompts.

Examples:
  # Deregister a directory
  goshawk dir delete 6f1c0f0a-8e9b-4f4e-9e0a-2b7c5d13e8a1

  # Skip the confirmation prompts
  goshawk dir delete 6f1c0f0a-8e9b-4f4e-9e0a-2b7c5d13e8a1 --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompts")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid directory UUID %q: %w", args[0], err)
	}

	arch, store, err := openArchive()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	defer func() { _ = arch.Close() }()

	ctx := context.Background()
	row, err := store.GetDirectory(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get storage directory: %w", err)
	}

	if !deleteForce {
		confirmed, err := prompt.Confirm(fmt.Sprintf("Deregister storage directory %s (%s)?", row.UUID, row.Path), false)
		if err != nil {
			return cmdutil.IgnoreAbort(err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}

		confirmed, err = prompt.ConfirmDanger("This clears the directory's sidecar; the recorder forgets the directory for good", "delete")
		if err != nil {
			return cmdutil.IgnoreAbort(err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := arch.RemoveDirectory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete storage directory: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Deleted storage directory '%s'", row.Path))
	return nil
}
