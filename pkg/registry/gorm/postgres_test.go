//go:build integration

package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
	"github.com/goshawk-nvr/goshawk/pkg/registry/registrytest"
)

const pgImage = "postgres:16-alpine"

// startPostgres launches a disposable PostgreSQL container and returns a
// store config pointing at it. The container is terminated when the test
// finishes.
//
// PostgreSQL logs "database system is ready" twice during startup (once
// during bootstrap, once when fully up), so the wait strategy requires two
// occurrences. The generous deadline covers first-run image pulls.
func startPostgres(t *testing.T) *Config {
	t.Helper()
	ctx := context.Background()

	ready := wait.ForLog("database system is ready to accept connections").
		WithOccurrence(2)
	pgc, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase("goshawk_test"),
		postgres.WithUsername("goshawk_test"),
		postgres.WithPassword("goshawk_test"),
		testcontainers.WithWaitStrategyAndDeadline(3*time.Minute, ready,
			wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container did not start: %v", err)
	}
	t.Cleanup(func() {
		if err := pgc.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	addr, err := pgc.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := pgc.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	pg := PostgresConfig{
		Host:     addr,
		Port:     port.Int(),
		Database: "goshawk_test",
		User:     "goshawk_test",
		Password: "goshawk_test",
		SSLMode:  "disable",
	}
	return &Config{Dialect: DialectPostgres, Postgres: pg}
}

// TestConformancePostgres runs the shared registry conformance suite against
// a containerized PostgreSQL instance. The container is shared across the
// suite, so the factory wipes all tables (and restarts the open ID
// sequence) to hand each test a fresh database.
func TestConformancePostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	conf := startPostgres(t)

	registrytest.RunConformanceSuite(t, func(t *testing.T) registry.Store {
		store, err := New(conf)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })

		err = store.DB().Exec("TRUNCATE users, directories, opens, meta RESTART IDENTITY CASCADE").Error
		if err != nil {
			t.Fatalf("failed to reset database: %v", err)
		}
		return store
	})
}

// TestMigrationsPostgres verifies that migrations apply cleanly, are
// idempotent, and report their version.
func TestMigrationsPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	conf := startPostgres(t)
	ctx := context.Background()

	if err := RunMigrations(ctx, conf); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	// Second run must be a no-op, not an error.
	if err := RunMigrations(ctx, conf); err != nil {
		t.Fatalf("RunMigrations rerun failed: %v", err)
	}

	version, dirty, err := MigrationVersion(ctx, conf)
	if err != nil {
		t.Fatalf("MigrationVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, expected 1", version)
	}
	if dirty {
		t.Error("schema reported dirty after clean migration")
	}
}

// TestMigrationsRejectSQLite verifies the backend guard on the migration
// entry points.
func TestMigrationsRejectSQLite(t *testing.T) {
	conf := &Config{Dialect: DialectSQLite, SQLite: SQLiteConfig{Path: ":memory:"}}

	if err := RunMigrations(context.Background(), conf); err == nil {
		t.Error("expected error for sqlite config")
	}
	if _, _, err := MigrationVersion(context.Background(), conf); err == nil {
		t.Error("expected error for sqlite config")
	}
}
