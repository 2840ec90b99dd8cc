// Package gorm implements the registry Store on relational databases via
// GORM. SQLite (pure-Go driver) is the single-node default; PostgreSQL is
// available for deployments that already run one. SQLite schema is managed
// with AutoMigrate, PostgreSQL with embedded golang-migrate migrations.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// Dialect selects the relational backend.
type Dialect string

const (
	// DialectSQLite is the single-node default.
	DialectSQLite Dialect = "sqlite"

	// DialectPostgres suits deployments that already run PostgreSQL.
	DialectPostgres Dialect = "postgres"
)

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	// Path to the database file.
	// Default: $XDG_CONFIG_HOME/goshawk/registry.db
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig carries the PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Database     string `yaml:"database" mapstructure:"database"`
	User         string `yaml:"user" mapstructure:"user"`
	Password     string `yaml:"password,omitempty" mapstructure:"password"`
	SSLMode      string `yaml:"ssl_mode" mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	SSLRootCert  string `yaml:"ssl_root_cert,omitempty" mapstructure:"ssl_root_cert"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
}

// DSN assembles the keyword/value connection string the postgres driver
// expects.
func (p *PostgresConfig) DSN() string {
	kv := []string{
		"host=" + p.Host,
		fmt.Sprintf("port=%d", p.Port),
		"user=" + p.User,
		"password=" + p.Password,
		"dbname=" + p.Database,
	}
	if p.SSLMode != "" {
		kv = append(kv, "sslmode="+p.SSLMode)
	}
	if p.SSLRootCert != "" {
		kv = append(kv, "sslrootcert="+p.SSLRootCert)
	}
	return strings.Join(kv, " ")
}

// Config contains registry database configuration.
type Config struct {
	Dialect  Dialect        `yaml:"dialect" mapstructure:"dialect"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// ApplyDefaults fills unset fields for the selected backend.
func (conf *Config) ApplyDefaults() {
	if conf.Dialect == "" {
		conf.Dialect = DialectSQLite
	}

	switch conf.Dialect {
	case DialectSQLite:
		if conf.SQLite.Path == "" {
			conf.SQLite.Path = defaultSQLitePath()
		}

	case DialectPostgres:
		p := &conf.Postgres
		if p.Port == 0 {
			p.Port = 5432
		}
		if p.SSLMode == "" {
			p.SSLMode = "disable"
		}
		if p.MaxOpenConns == 0 {
			p.MaxOpenConns = 25
		}
		if p.MaxIdleConns == 0 {
			p.MaxIdleConns = 5
		}
	}
}

// defaultSQLitePath resolves $XDG_CONFIG_HOME/goshawk/registry.db,
// falling back to ~/.config. The config package does the same resolution
// but cannot be imported from here.
func defaultSQLitePath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "goshawk", "registry.db")
}

// Validate checks that the selected backend has the fields it needs.
func (conf *Config) Validate() error {
	switch conf.Dialect {
	case DialectSQLite:
		if conf.SQLite.Path == "" {
			return errors.New("sqlite path is required")
		}

	case DialectPostgres:
		required := []struct{ name, val string }{
			{"host", conf.Postgres.Host},
			{"database", conf.Postgres.Database},
			{"user", conf.Postgres.User},
		}
		for _, f := range required {
			if f.val == "" {
				return fmt.Errorf("postgres %s is required", f.name)
			}
		}

	default:
		return fmt.Errorf("unsupported dialect: %s", conf.Dialect)
	}
	return nil
}

// Store implements registry.Store on GORM, with the same code serving
// both SQLite and PostgreSQL.
type Store struct {
	db  *gorm.DB
	cfg *Config
}

// New creates a registry store based on the configuration, running any
// schema migration the backend needs.
func New(conf *Config) (*Store, error) {
	if conf == nil {
		conf = new(Config)
	}
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry database configuration: %w", err)
	}

	dialector, err := openDialector(conf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// GORM's own query logging is noise next to the structured logs.
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	if err := tunePool(db, conf); err != nil {
		return nil, err
	}
	if err := migrateSchema(db, conf); err != nil {
		return nil, err
	}

	return &Store{db: db, cfg: conf}, nil
}

// openDialector prepares the driver for the backend; Validate has already
// restricted Dialect to the two known values. The SQLite directory is created
// on first use.
func openDialector(conf *Config) (gorm.Dialector, error) {
	if conf.Dialect == DialectPostgres {
		return postgres.Open(conf.Postgres.DSN()), nil
	}

	if err := os.MkdirAll(filepath.Dir(conf.SQLite.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database dir: %w", err)
	}
	// WAL lets concurrent readers coexist with the single writer;
	// busy_timeout makes lock contention wait 5s instead of failing.
	return sqlite.Open(conf.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"), nil
}

// tunePool bounds PostgreSQL connections. SQLite keeps the driver
// defaults; the WAL pragma already covers its concurrency needs.
func tunePool(db *gorm.DB, conf *Config) error {
	if conf.Dialect != DialectPostgres {
		return nil
	}
	pool, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	pool.SetMaxOpenConns(conf.Postgres.MaxOpenConns)
	pool.SetMaxIdleConns(conf.Postgres.MaxIdleConns)
	return nil
}

// migrateSchema brings the schema up to date: SQLite auto-migrates in
// process, PostgreSQL uses versioned migrations with advisory locks so
// concurrent instances don't race.
func migrateSchema(db *gorm.DB, conf *Config) error {
	if conf.Dialect == DialectPostgres {
		return RunMigrations(context.Background(), conf)
	}
	if err := db.AutoMigrate(registry.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate registry schema: %w", err)
	}
	return nil
}

// DB exposes the underlying GORM handle for tests and migrations.
func (s *Store) DB() *gorm.DB { return s.db }

// isUniqueViolation matches the driver-specific unique violation
// messages. Neither driver surfaces a typed error for it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	markers := []string{
		"UNIQUE constraint failed",                       // sqlite
		"duplicate key value violates unique constraint", // postgres
	}
	for _, m := range markers {
		if strings.Contains(err.Error(), m) {
			return true
		}
	}
	return false
}

// convertNotFoundError maps gorm.ErrRecordNotFound onto the registry's
// typed not-found error, leaving everything else untouched.
func convertNotFoundError(err, fallback error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback
	}
	return err
}
