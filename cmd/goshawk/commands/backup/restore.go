package backup

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/internal/cli/prompt"
	backuppkg "github.com/goshawk-nvr/goshawk/pkg/backup"
	"github.com/goshawk-nvr/goshawk/pkg/config"
)

var restoreInput string
var restoreTarget string
var restoreForce bool

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the registry from a backup",
	Long: `Restore the registry database from a backup archive.

The input may be an archive made by 'goshawk backup create' or a bare
SQLite database file. Without --target, the registry lands at the path the
configuration names for the active backend. Stop the server first: the
restored registry replaces the live one on disk.

Restoring rewinds the registry while the storage directories keep their
sidecars, so the next server start reconciles the two and reports any
directory the restored registry no longer knows.

Examples:
  # Restore over the configured registry
  goshawk backup restore --input goshawk-backup-20260301-120000.tar.gz

  # Restore to an explicit path without prompting
  goshawk backup restore -i backup.tar.gz --target /tmp/registry.db --force`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&restoreInput, "input", "i", "", "Backup archive or bare SQLite file to restore (required)")
	restoreCmd.Flags().StringVar(&restoreTarget, "target", "", "Restore destination (default: the configured registry path)")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite the existing registry without prompting")
	_ = restoreCmd.MarkFlagRequired("input")
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(restoreInput); err != nil {
		return fmt.Errorf("cannot read backup %s: %w", restoreInput, err)
	}

	target := restoreTarget
	if target == "" {
		target, err = registryPath(cfg)
		if err != nil {
			return err
		}
	}

	manifest, err := backuppkg.Inspect(restoreInput)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	fmt.Println("Restore registry from backup")
	fmt.Printf("  Source:      %s\n", restoreInput)
	printManifest(manifest)
	fmt.Printf("  Target:      %s\n", target)
	fmt.Println()

	ok, err := confirmRestore()
	if err != nil {
		return cmdutil.IgnoreAbort(err)
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	startTime := time.Now()
	if _, err := backuppkg.Restore(context.Background(), restoreInput, backuppkg.RestoreOptions{
		TargetPath: target,
		Force:      true,
	}); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println("Restore complete")
	fmt.Printf("  Target:      %s\n", target)
	fmt.Printf("  Duration:    %s\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Println("\nStart the server to reconcile storage directories against the restored registry.")

	return nil
}

// confirmRestore runs the interactive double-confirmation. --force skips it.
func confirmRestore() (bool, error) {
	if restoreForce {
		return true, nil
	}
	ok, err := prompt.Confirm("Restore this backup?", false)
	if err != nil || !ok {
		return ok, err
	}
	return prompt.ConfirmDanger("This replaces the registry on disk; opens and users recorded after the backup are lost", "restore")
}

// registryPath names where the active backend keeps its database on disk.
func registryPath(cfg *config.Config) (string, error) {
	switch cfg.Registry.Backend {
	case config.RegistryBackendSQLite, "":
		return cfg.Registry.SQLite.Path, nil
	case config.RegistryBackendBadger:
		return cfg.Registry.Badger.Path, nil
	default:
		return "", fmt.Errorf("restore applies to the sqlite and badger backends; restore %s with its own tooling (pg_restore)", cfg.Registry.Backend)
	}
}
