package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// sqlConn unwraps the database/sql handle GORM manages.
func (s *Store) sqlConn() (*sql.DB, error) {
	conn, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection: %w", err)
	}
	return conn, nil
}

// Healthcheck verifies the database connection is alive.
func (s *Store) Healthcheck(ctx context.Context) error {
	conn, err := s.sqlConn()
	if err != nil {
		return err
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	conn, err := s.sqlConn()
	if err != nil {
		return err
	}
	return conn.Close()
}

// Compile-time check that Store satisfies registry.Store.
var _ registry.Store = (*Store)(nil)
