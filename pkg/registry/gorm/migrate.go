package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/pkg/registry/gorm/migrations"
)

// migrationsTable is where golang-migrate records the applied schema version.
const migrationsTable = "schema_migrations"

// checkMigratable rejects backends that do not use versioned migrations.
// SQLite stores migrate on open through GORM and never pass through here.
func checkMigratable(cfg *Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid registry config: %w", err)
	}
	if cfg.Dialect != DialectPostgres {
		return fmt.Errorf("migrations only apply to the postgres backend (got %s)", cfg.Dialect)
	}
	return nil
}

// newMigrator wires golang-migrate to a plain database/sql connection, since
// golang-migrate does not drive GORM. The backend check runs here, so every
// exported operation inherits it. The returned cleanup closes the connection
// and must be called once the migrator is done.
func newMigrator(ctx context.Context, cfg *Config) (*migrate.Migrate, func(), error) {
	if err := checkMigratable(cfg); err != nil {
		return nil, nil, err
	}

	conn, err := sql.Open("pgx", cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	cleanup := func() { _ = conn.Close() }

	if err := conn.PingContext(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	target, err := postgres.WithInstance(conn, &postgres.Config{
		MigrationsTable: migrationsTable,
		DatabaseName:    cfg.Postgres.Database,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build postgres migrate driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", target)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build migrator: %w", err)
	}
	return m, cleanup, nil
}

// RunMigrations brings the postgres schema up to the latest version. It is
// called automatically when a PostgreSQL-backed store is opened and can also
// be invoked manually from the CLI. SQLite stores migrate on open via GORM
// and are rejected here.
func RunMigrations(ctx context.Context, cfg *Config) error {
	m, cleanup, err := newMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("running registry migrations", logger.Backend(string(cfg.Dialect)))

	// golang-migrate holds a postgres advisory lock while applying, so a
	// second instance starting at the same time waits instead of racing.
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("registry schema is up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		logger.Info("registry migrations applied")
	}

	switch ver, dirty, err := m.Version(); {
	case errors.Is(err, migrate.ErrNilVersion):
		// Nothing recorded; the migration source must be empty.
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	default:
		logger.Info("registry schema version",
			logger.Int("version", int(ver)),
			logger.Bool("dirty", dirty),
		)
		if dirty {
			logger.Warn("registry schema is dirty - manual intervention may be required")
		}
	}
	return nil
}

// MigrateDown rolls back registry migrations. A positive steps rolls back
// that many migrations; steps <= 0 rolls back everything. Rolling back
// drops registry tables and the data in them.
func MigrateDown(ctx context.Context, cfg *Config, steps int) error {
	m, cleanup, err := newMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if steps > 0 {
		logger.Info("rolling back registry migrations", logger.Int("steps", steps))
		err = m.Steps(-steps)
	} else {
		logger.Info("rolling back all registry migrations")
		err = m.Down()
	}
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("no migrations to roll back")
	case err != nil:
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// MigrateForce overwrites the recorded schema version without running any
// migration. It exists to clear a dirty flag after a failed migration has
// been repaired by hand; the caller asserts that the schema actually matches
// the forced version.
func MigrateForce(ctx context.Context, cfg *Config, version int) error {
	m, cleanup, err := newMigrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Warn("forcing registry schema version", logger.Int("version", version))
	if err := m.Force(version); err != nil {
		return fmt.Errorf("force failed: %w", err)
	}
	return nil
}

// MigrationVersion returns the current schema version and whether the schema
// is dirty. A (0, false, nil) return means no migrations have been applied.
func MigrationVersion(ctx context.Context, cfg *Config) (uint, bool, error) {
	m, cleanup, err := newMigrator(ctx, cfg)
	if err != nil {
		return 0, false, err
	}
	defer cleanup()

	ver, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return ver, dirty, nil
}
