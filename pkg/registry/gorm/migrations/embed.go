// Package migrations embeds the versioned SQL migrations for the
// PostgreSQL registry schema. SQLite does not use these; its schema is
// created by GORM AutoMigrate when the store opens.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
