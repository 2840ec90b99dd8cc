package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/internal/cli/prompt"
	"github.com/goshawk-nvr/goshawk/pkg/config"
	gormstore "github.com/goshawk-nvr/goshawk/pkg/registry/gorm"
)

var migrateDownForce bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage registry schema migrations",
	Long: `Manage the PostgreSQL registry schema.

The sqlite and badger backends manage their schema automatically when the
server opens them. PostgreSQL deployments run versioned SQL migrations,
which these subcommands apply, roll back, and inspect.

Examples:
  # Apply all pending migrations
  goshawk migrate up

  # Roll back the most recent migration
  goshawk migrate down 1

  # Show the current schema version
  goshawk migrate version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations",
	Long: `Roll back registry schema migrations.

With a step count, rolls back that many migrations; without one, rolls back
everything. Rolling back drops registry tables along with the open history,
directory registrations, and users stored in them.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runMigrateDown,
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	RunE:  runMigrateVersion,
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force the schema version without running migrations",
	Long: `Force the recorded schema version without running migrations.

Use this after repairing a failed migration by hand: it overwrites the
version record and clears the dirty flag. It does not touch any tables.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrateForce,
}

func init() {
	migrateDownCmd.Flags().BoolVar(&migrateDownForce, "force", false, "Skip confirmation prompt")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd)
}

// migrateGormConfig loads the configuration and returns the GORM store
// config, rejecting backends that have no SQL migrations to manage.
func migrateGormConfig() (*gormstore.Config, error) {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	if cfg.Registry.Backend != config.RegistryBackendPostgres {
		return nil, fmt.Errorf("'migrate' applies to the postgres backend only (got %q)\nThe %s registry manages its schema automatically when the server opens it", cfg.Registry.Backend, cfg.Registry.Backend)
	}
	return cfg.Registry.GormConfig(), nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	gc, err := migrateGormConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := gormstore.RunMigrations(ctx, gc); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := gormstore.MigrationVersion(ctx, gc)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty; repair the database and run 'goshawk migrate force %d'", version, version)
	}

	fmt.Printf("Registry schema is up to date (version %d)\n", version)
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps := 0
	if len(args) == 1 {
		var err error
		steps, err = strconv.Atoi(args[0])
		if err != nil || steps < 1 {
			return fmt.Errorf("invalid step count %q: expected a positive integer", args[0])
		}
	}

	gc, err := migrateGormConfig()
	if err != nil {
		return err
	}

	label := "Roll back ALL registry migrations? This drops every registry table and its data"
	if steps > 0 {
		label = fmt.Sprintf("Roll back %d migration step(s)? This drops the tables and data they created", steps)
	}
	confirmed, err := prompt.ConfirmWithForce(label, migrateDownForce)
	if err != nil {
		return cmdutil.IgnoreAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := gormstore.MigrateDown(context.Background(), gc, steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	if steps > 0 {
		fmt.Printf("Rolled back %d migration step(s)\n", steps)
	} else {
		fmt.Println("Rolled back all migrations")
	}
	return nil
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	gc, err := migrateGormConfig()
	if err != nil {
		return err
	}

	version, dirty, err := gormstore.MigrationVersion(context.Background(), gc)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version == 0 && !dirty {
		fmt.Println("No migrations applied yet")
		return nil
	}

	fmt.Printf("Registry schema version: %d\n", version)
	if dirty {
		fmt.Println("State: dirty (a migration failed; repair the database and run 'goshawk migrate force <version>')")
	}
	return nil
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil || version < 0 {
		return fmt.Errorf("invalid version %q: expected a non-negative integer", args[0])
	}

	gc, err := migrateGormConfig()
	if err != nil {
		return err
	}

	if err := gormstore.MigrateForce(context.Background(), gc, version); err != nil {
		return fmt.Errorf("failed to force version: %w", err)
	}

	fmt.Printf("Registry schema version forced to %d\n", version)
	return nil
}
