package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig creates a sample configuration file at the default location.
// Returns the path the file was written to. When force is false and a file
// already exists, an error is returned and nothing is touched.
func InitConfig(force bool) (string, error) {
	path := DefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a sample configuration file at the given path.
//
// The sample is a commented YAML file built from the default configuration,
// so it loads cleanly as-is and documents the knobs worth turning. Secrets
// may end up in here later (database password, S3 keys), hence 0600.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// sampleConfig renders the commented sample configuration from the default
// values. yaml.Marshal cannot emit comments, so this is a template.
func sampleConfig() string {
	cfg := DefaultConfig()

	// Forward slashes survive YAML double-quoting on every platform.
	sqlitePath := filepath.ToSlash(cfg.Registry.SQLite.Path)
	badgerPath := filepath.ToSlash(filepath.Join(configDir(), "registry.badger"))
	backupDir := filepath.ToSlash(cfg.Backup.Dir)

	return fmt.Sprintf(`# Goshawk Configuration File
#
# Environment variables with the GOSHAWK_ prefix override file values,
# e.g. GOSHAWK_LOGGING_LEVEL=DEBUG.

logging:
  level: %q   # DEBUG, INFO, WARN, ERROR
  format: %q # text, json
  output: %q # stdout, stderr, or a file path

# Registry database. Tracks storage directories and database opens.
registry:
  backend: %q # sqlite, postgres, badger
  sqlite:
    path: %q
  # postgres:
  #   host: "localhost"
  #   port: 5432
  #   database: "goshawk"
  #   user: "goshawk"
  #   password: ""
  #   ssl_mode: "disable"
  # badger:
  #   path: %q

# Maximum time to wait for graceful shutdown.
shutdown_timeout: %q

# REST API server (health and inspection endpoints).
api:
  enabled: true
  port: %d

# Prometheus metrics server.
metrics:
  enabled: false
  port: 9090

# OpenTelemetry tracing and Pyroscope profiling.
telemetry:
  enabled: false
  endpoint: %q
  insecure: true
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: %q

# Backup archives created by 'goshawk backup create'.
backup:
  dir: %q
  # s3:
  #   bucket: "goshawk-backups"
  #   region: "us-east-1"
  #   endpoint: ""            # set for MinIO or other S3-compatible services
  #   key_prefix: "backups/"
  #   access_key_id: ""
  #   secret_access_key: ""
  #   force_path_style: false
`,
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Registry.Backend,
		sqlitePath,
		badgerPath,
		cfg.ShutdownTimeout.String(),
		cfg.API.Port,
		cfg.Telemetry.Endpoint,
		cfg.Telemetry.Profiling.Endpoint,
		backupDir,
	)
}
