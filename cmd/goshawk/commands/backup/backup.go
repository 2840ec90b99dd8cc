// Package backup implements registry backup and restore subcommands for goshawk.
package backup

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	backuppkg "github.com/goshawk-nvr/goshawk/pkg/backup"
)

// Cmd is the parent command for registry backup and restore.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Registry backup and restore",
	Long: `Back up and restore the registry database.

A backup is a tar.gz archive holding a consistent registry snapshot, a
manifest, and a copy of each reachable directory sidecar for forensics.
Recordings themselves are not included; they live in the storage
directories.

Examples:
  # Create a backup in the configured backup directory
  goshawk backup create

  # Create a backup at an explicit path and upload it to S3
  goshawk backup create --output /tmp/goshawk.tar.gz --upload

  # Restore a backup over the configured registry
  goshawk backup restore --input goshawk-backup-20260301-120000.tar.gz`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(restoreCmd)
}

// printManifest prints the archive manifest details shared by create and
// restore output.
func printManifest(m *backuppkg.Manifest) {
	fmt.Printf("  Database:    %s\n", m.DatabaseUUID)
	fmt.Printf("  Created:     %s\n", m.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("  Registry:    %s (%d bytes)\n", m.Registry.Format, m.Registry.Size)
	fmt.Printf("  Directories: %d\n", len(m.Directories))
	for _, d := range m.Directories {
		note := ""
		if !d.Sidecar {
			note = "  (sidecar unreadable at backup time)"
		}
		fmt.Printf("    - %s  %s%s\n", d.UUID, d.Path, note)
	}
}
