package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/internal/cli/prompt"
	"github.com/goshawk-nvr/goshawk/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter Goshawk configuration file.

By default the file is created at $XDG_CONFIG_HOME/goshawk/config.yaml.
Use --config to pick another path. When the file already exists you are
asked before it is overwritten; --force skips the question.

Examples:
  # Create the config at the default location
  goshawk init

  # Create the config somewhere else
  goshawk init --config /etc/goshawk/config.yaml

  # Replace an existing file without confirmation
  goshawk init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	flagPath := GetConfigFile()
	target := flagPath
	if target == "" {
		target = config.DefaultConfigPath()
	}

	force := initForce
	if !force {
		if _, err := os.Stat(target); err == nil {
			confirmed, err := prompt.Confirm(fmt.Sprintf("Overwrite existing configuration file at %s?", target), false)
			if err != nil {
				return cmdutil.IgnoreAbort(err)
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
			force = true
		}
	}

	var err error
	if flagPath != "" {
		err = config.InitConfigToPath(flagPath, force)
	} else {
		_, err = config.InitConfig(force)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote configuration file to %s\n", target)
	fmt.Println("\nTo get started:")
	fmt.Println("  1. Edit the file and pick a registry backend")
	fmt.Println("  2. Register a storage directory: goshawk dir add /path/to/storage")
	fmt.Println("  3. Run the server: goshawk serve")
	if flagPath != "" {
		fmt.Printf("     (pass --config %s to every command)\n", flagPath)
	}

	return nil
}
