package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	gormstore "github.com/goshawk-nvr/goshawk/pkg/registry/gorm"
)

// Validate checks the configuration for invalid or inconsistent values.
//
// Struct-level constraints (value ranges, enumerations) are declared as
// `validate` tags on the config structs; cross-field rules the tags cannot
// express are checked explicitly below.
//
// Validate does not mutate the configuration. Normalization (log level
// casing, default values) happens in ApplyDefaults.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling is enabled but no endpoint is configured")
	}

	if err := validateRegistry(&cfg.Registry); err != nil {
		return err
	}

	return validateBackup(&cfg.Backup)
}

// validateRegistry checks backend-specific requirements. The relational
// backends delegate to the GORM store's own validation.
func validateRegistry(cfg *RegistryConfig) error {
	switch cfg.Backend {
	case RegistryBackendSQLite, RegistryBackendPostgres:
		gc := gormstore.Config{
			Dialect:  gormstore.Dialect(cfg.Backend),
			SQLite:   cfg.SQLite,
			Postgres: cfg.Postgres,
		}
		if err := gc.Validate(); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	case RegistryBackendBadger:
		if cfg.Badger.Path == "" {
			return fmt.Errorf("registry: badger path is required")
		}
	}
	return nil
}

// validateBackup checks S3 upload settings for coherence. The section is
// optional as a whole; partial credentials are the one state that cannot
// work.
func validateBackup(cfg *BackupConfig) error {
	if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
		return fmt.Errorf("backup s3: access_key_id and secret_access_key must be set together")
	}
	return nil
}
