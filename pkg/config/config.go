package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goshawk-nvr/goshawk/pkg/api"
	"github.com/goshawk-nvr/goshawk/pkg/backup"
	gormstore "github.com/goshawk-nvr/goshawk/pkg/registry/gorm"
)

// Config is the static configuration of a Goshawk deployment: logging,
// telemetry, the registry database, the REST API listener, metrics, and
// backup placement.
//
// Storage directories are deliberately absent. They are dynamic state,
// registered through `goshawk dir add` and tracked in the registry
// database.
//
// Values are resolved by Load: environment variables (GOSHAWK_*)
// override the YAML file, and anything left unset falls back to
// ApplyDefaults.
type Config struct {
	// Logging selects level, format, and destination for process logs.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Telemetry configures OTLP trace export and continuous profiling.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// ShutdownTimeout bounds how long serve waits for in-flight work on
	// exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Registry configures the registry database that tracks storage
	// directories and database opens.
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`

	// Metrics configures the Prometheus /metrics listener.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// API configures the REST API listener and its timeouts.
	API api.Config `yaml:"api" mapstructure:"api"`

	// Backup configures where `goshawk backup create` places archives
	// and the optional S3 upload target.
	Backup BackupConfig `yaml:"backup" mapstructure:"backup"`
}

// LoggingConfig selects what gets logged and where it goes.
type LoggingConfig struct {
	// Level is the minimum level to emit. Valid: DEBUG, INFO, WARN,
	// ERROR (case-insensitive; normalized to uppercase).
	Level string `yaml:"level" mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is "text" for terminals or "json" for log shippers.
	Format string `yaml:"format" mapstructure:"format" validate:"required,oneof=text json"`

	// Output is "stdout", "stderr", or a file path.
	Output string `yaml:"output" mapstructure:"output" validate:"required"`
}

// TelemetryConfig controls OpenTelemetry trace export to an OTLP
// collector (Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled turns trace export on. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	// Default: "localhost:4317".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS on the collector connection. Default: true,
	// which suits a collector on localhost; set false in production.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`

	// SampleRate is the fraction of traces to keep, 0.0 to 1.0.
	// Default: 1.0.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1"`

	// Profiling configures Pyroscope continuous profiling.
	Profiling ProfilingConfig `yaml:"profiling" mapstructure:"profiling"`
}

// ProfilingConfig controls continuous profiling with Pyroscope.
type ProfilingConfig struct {
	// Enabled turns profile upload on. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Endpoint is the Pyroscope server URL.
	// Default: "http://localhost:4040".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// ProfileTypes selects what to collect. Valid values: cpu,
	// alloc_objects, alloc_space, inuse_objects, inuse_space, goroutines,
	// mutex_count, mutex_duration, block_count, block_duration.
	// Default: cpu, the allocation and in-use pairs, and goroutines.
	ProfileTypes []string `yaml:"profile_types" mapstructure:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When
// disabled, no collectors are registered and instruments stay nil, so
// the hot paths pay nothing.
type MetricsConfig struct {
	// Enabled turns the metrics registry and the /metrics server on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Host is the listen address. Empty means all interfaces.
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the HTTP port for the metrics endpoint. Default: 9090.
	Port int `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// RegistryConfig selects and configures the registry database backend.
//
// The relational backends (sqlite, postgres) share the GORM store; badger
// uses an embedded key-value store and needs nothing but a directory.
type RegistryConfig struct {
	// Backend selects the registry implementation.
	// Valid values: sqlite, postgres, badger
	// Default: sqlite
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=sqlite postgres badger"`

	// SQLite configures the sqlite backend
	SQLite gormstore.SQLiteConfig `yaml:"sqlite" mapstructure:"sqlite"`

	// Postgres configures the postgres backend
	Postgres gormstore.PostgresConfig `yaml:"postgres" mapstructure:"postgres"`

	// Badger configures the badger backend
	Badger BadgerConfig `yaml:"badger" mapstructure:"badger"`
}

// BadgerConfig contains Badger-specific configuration.
type BadgerConfig struct {
	// Path is the Badger database directory.
	// Default: $XDG_CONFIG_HOME/goshawk/registry.badger
	Path string `yaml:"path" mapstructure:"path"`
}

// BackupConfig configures backup archive placement and upload.
type BackupConfig struct {
	// Dir is where `goshawk backup create` writes archives when no explicit
	// output path is given.
	// Default: $XDG_CONFIG_HOME/goshawk/backups
	Dir string `yaml:"dir" mapstructure:"dir"`

	// S3 configures the optional upload target for created archives.
	// Upload only happens when `backup create --upload` is passed.
	S3 backup.S3Config `yaml:"s3" mapstructure:"s3"`
}

// Load reads the configuration from path, layering environment
// variables (GOSHAWK_*) over the file and filling the rest from
// defaults. An empty path means the default location, and a missing
// file is not an error: the defaults are returned as-is.
func Load(path string) (*Config, error) {
	vip := newViper(path)

	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Viper reports a missing file differently for searched and
		// explicit paths; both mean "run on defaults".
		return DefaultConfig(), nil
	}

	cfg := new(Config)
	if err := vip.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load with a friendlier failure mode for CLI use: a
// missing file is an error that explains how to create one, instead of
// a silent fall back to defaults.
func MustLoad(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("configuration file %s does not exist\n\n"+
				"Create it first:\n"+
				"  goshawk init --config %s",
				path, path)
		}
		return nil, fmt.Errorf("no configuration file at %s\n\n"+
			"Run this once to create one:\n"+
			"  goshawk init\n\n"+
			"Or pass an explicit path:\n"+
			"  goshawk <command> --config /path/to/config.yaml",
			path)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes c to path as YAML, creating parent directories as
// needed.
func SaveConfig(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config as YAML: %w", err)
	}

	// 0600: the config may carry database and S3 credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// newViper builds a viper instance bound to the GOSHAWK_ environment
// prefix and pointed at path, or at the default search location when
// path is empty.
func newViper(path string) *viper.Viper {
	vip := viper.New()
	vip.SetEnvPrefix("GOSHAWK")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	if path == "" {
		vip.AddConfigPath(configDir())
		vip.SetConfigName("config")
		vip.SetConfigType("yaml")
		return vip
	}

	vip.SetConfigFile(path)
	return vip
}

// decodeHooks wires the custom conversions used when unmarshalling:
// durations accept both "30s" strings and bare nanosecond numbers, and
// comma-separated strings decode into []string fields so lists like
// profile types can be set from environment variables.
func decodeHooks() mapstructure.DecodeHookFunc {
	hooks := []mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		numberToDurationHook(),
		mapstructure.StringToSliceHookFunc(","),
	}
	return mapstructure.ComposeDecodeHookFunc(hooks...)
}

// durationType is the decode target numberToDurationHook fires on.
var durationType = reflect.TypeOf(time.Duration(0))

// numberToDurationHook converts bare numbers into time.Duration
// nanoseconds. YAML hands numbers over as int or float64 depending on
// how they were written.
func numberToDurationHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		rv := reflect.ValueOf(data)
		switch {
		case rv.CanInt():
			return time.Duration(rv.Int()), nil
		case rv.CanFloat():
			return time.Duration(rv.Float()), nil
		}
		return data, nil
	}
}

// configDir resolves the configuration directory: XDG_CONFIG_HOME when
// set, else ~/.config, else the current directory.
func configDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "goshawk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "goshawk")
}

// DefaultConfigPath returns where Load looks when no --config flag
// is given.
func DefaultConfigPath() string { return filepath.Join(configDir(), "config.yaml") }

// HasDefaultConfig reports whether a file is present at the default
// path.
func HasDefaultConfig() bool {
	_, err := os.Stat(DefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the configuration directory for the init command.
func GetConfigDir() string { return configDir() }
