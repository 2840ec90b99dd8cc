package config

import (
	"fmt"

	"github.com/goshawk-nvr/goshawk/pkg/metrics"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
	badgerstore "github.com/goshawk-nvr/goshawk/pkg/registry/badger"
	gormstore "github.com/goshawk-nvr/goshawk/pkg/registry/gorm"
)

// Registry backend names accepted by RegistryConfig.Backend.
const (
	RegistryBackendSQLite   = "sqlite"
	RegistryBackendPostgres = "postgres"
	RegistryBackendBadger   = "badger"
)

// NewStore opens the registry store selected by the configuration.
//
// The caller owns the returned store and must Close it. Opening a
// postgres-backed store runs pending migrations; sqlite migrates via GORM
// on open; badger needs nothing but its directory.
func (c *RegistryConfig) NewStore() (registry.Store, error) {
	switch c.Backend {
	case RegistryBackendSQLite, RegistryBackendPostgres, "":
		return gormstore.New(c.GormConfig())
	case RegistryBackendBadger:
		if c.Badger.Path == "" {
			return nil, fmt.Errorf("badger registry requires path to be set")
		}
		return badgerstore.New(c.Badger.Path, metrics.NewBadgerCacheMetrics())
	default:
		return nil, fmt.Errorf("unknown registry backend: %q", c.Backend)
	}
}

// GormConfig assembles the GORM store configuration for the relational
// backends. The migrate command uses it directly; badger deployments have
// no schema and nothing to migrate.
func (c *RegistryConfig) GormConfig() *gormstore.Config {
	return &gormstore.Config{
		Dialect:  gormstore.Dialect(c.Backend),
		SQLite:   c.SQLite,
		Postgres: c.Postgres,
	}
}

// IsRelational reports whether the configured backend runs on the GORM
// store (and therefore supports SQL migrations).
func (c *RegistryConfig) IsRelational() bool {
	switch c.Backend {
	case RegistryBackendSQLite, RegistryBackendPostgres, "":
		return true
	}
	return false
}
