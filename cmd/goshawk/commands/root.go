// Package commands implements the goshawk CLI: server lifecycle,
// storage directory administration, users, and backups.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/cmd/goshawk/commands/backup"
	"github.com/goshawk-nvr/goshawk/cmd/goshawk/commands/dir"
	"github.com/goshawk-nvr/goshawk/cmd/goshawk/commands/user"
)

// Build-time version stamps, overridden through -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "goshawk",
	Short: "Goshawk - Network video recorder",
	Long: `Goshawk is a network video recorder that spreads recordings across
plain storage directories while keeping the authoritative index in a
registry database (SQLite, PostgreSQL, or Badger). Each storage directory
carries a small metadata sidecar, so the recorder can tell a detached disk
or a foreign directory from its own before touching any media.

Use "goshawk [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

// Execute runs the CLI. main calls this exactly once.
func Execute() error { return rootCmd.Execute() }

func init() {
	// The config flag is shared with the subcommand trees through cmdutil.
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ConfigFile, "config", "",
		"config file (default: $XDG_CONFIG_HOME/goshawk/config.yaml)")

	for _, cmd := range []*cobra.Command{
		versionCmd,
		initCmd,
		serveCmd,
		stopCmd,
		statusCmd,
		logsCmd,
		migrateCmd,
		dir.Cmd,
		user.Cmd,
		backup.Cmd,
	} {
		rootCmd.AddCommand(cmd)
	}
}

// GetConfigFile returns the --config flag value, empty when the flag was
// not passed.
func GetConfigFile() string { return cmdutil.Flags.ConfigFile }
