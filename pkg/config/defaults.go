package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/goshawk-nvr/goshawk/pkg/api"
	gormstore "github.com/goshawk-nvr/goshawk/pkg/registry/gorm"
)

// ApplyDefaults fills every unset field with its default. Loading calls it
// after the file and environment merge; zero values are replaced, explicit
// values are preserved.
func ApplyDefaults(c *Config) {
	c.Logging.applyDefaults()
	c.Telemetry.applyDefaults()
	defaultDur(&c.ShutdownTimeout, 30*time.Second)
	c.Registry.applyDefaults()
	c.Metrics.applyDefaults()
	applyAPIDefaults(&c.API)
	c.Backup.applyDefaults()
}

// defaultStr sets *s to fallback when empty.
func defaultStr(s *string, fallback string) {
	if *s == "" {
		*s = fallback
	}
}

// defaultDur sets *d to fallback when zero.
func defaultDur(d *time.Duration, fallback time.Duration) {
	if *d == 0 {
		*d = fallback
	}
}

// defaultFloat sets *f to fallback when zero.
func defaultFloat(f *float64, fallback float64) {
	if *f == 0 {
		*f = fallback
	}
}

// defaultInt sets *n to fallback when zero.
func defaultInt(n *int, fallback int) {
	if *n == 0 {
		*n = fallback
	}
}

func (cfg *LoggingConfig) applyDefaults() {
	defaultStr(&cfg.Level, "INFO")
	cfg.Level = strings.ToUpper(cfg.Level) // canonical form for validation

	defaultStr(&cfg.Format, "text")
	defaultStr(&cfg.Output, "stdout")
}

func (cfg *TelemetryConfig) applyDefaults() {
	// Enabled stays opt-in. 4317 is the standard OTLP gRPC port.
	defaultStr(&cfg.Endpoint, "localhost:4317")
	defaultFloat(&cfg.SampleRate, 1.0)
	cfg.Profiling.applyDefaults()
}

// defaultProfileTypes is what Pyroscope collects from a Go process short of
// mutex and block profiles, which need runtime opt-in.
var defaultProfileTypes = []string{
	"cpu", "goroutines",
	"alloc_objects", "alloc_space",
	"inuse_objects", "inuse_space",
}

func (cfg *ProfilingConfig) applyDefaults() {
	// 4040 is the standard Pyroscope port.
	defaultStr(&cfg.Endpoint, "http://localhost:4040")

	// nil means unset; an explicitly empty list stays empty.
	if cfg.ProfileTypes == nil {
		cfg.ProfileTypes = append([]string(nil), defaultProfileTypes...)
	}
}

// The relational backends delegate to the GORM store so those defaults stay
// in one place; only the backend selector and the Badger path are owned
// here.
func (cfg *RegistryConfig) applyDefaults() {
	defaultStr((*string)(&cfg.Backend), string(RegistryBackendSQLite))

	switch cfg.Backend {
	case RegistryBackendSQLite, RegistryBackendPostgres:
		gc := gormstore.Config{
			Dialect:  gormstore.Dialect(cfg.Backend),
			SQLite:   cfg.SQLite,
			Postgres: cfg.Postgres,
		}
		gc.ApplyDefaults()
		cfg.SQLite = gc.SQLite
		cfg.Postgres = gc.Postgres
	case RegistryBackendBadger:
		defaultStr(&cfg.Badger.Path, filepath.Join(configDir(), "registry.badger"))
	}
}

func (cfg *MetricsConfig) applyDefaults() {
	// Both stay opt-in; the port only matters once metrics are switched on.
	if !cfg.Enabled {
		return
	}
	defaultInt(&cfg.Port, 9090)
}

// applyAPIDefaults sets listener defaults. The API is always on; it serves
// the health and inspection endpoints that `goshawk status` probes.
func applyAPIDefaults(cfg *api.Config) {
	defaultInt(&cfg.Port, 8080)
	defaultDur(&cfg.ReadTimeout, 10*time.Second)
	defaultDur(&cfg.WriteTimeout, 10*time.Second)
	defaultDur(&cfg.IdleTimeout, 60*time.Second)
}

// The S3 section has no defaults: upload is opt-in and fully explicit.
func (cfg *BackupConfig) applyDefaults() {
	defaultStr(&cfg.Dir, filepath.Join(configDir(), "backups"))
}

// DefaultConfig returns a fully defaulted Config, as used for sample
// config generation and in tests.
func DefaultConfig() *Config {
	cfg := &Config{
		Registry: RegistryConfig{
			Backend: RegistryBackendSQLite, // single-node default
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
