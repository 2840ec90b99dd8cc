package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	rejects := []struct {
		name   string
		mutate func(*Config)
		want   []string // substrings of the lowercased error
	}{
		{
			name:   "log level outside the enum",
			mutate: func(c *Config) { c.Logging.Level = "LOUD" },
			want:   []string{"oneof"},
		},
		{
			name:   "log format outside the enum",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			want:   []string{"oneof"},
		},
		{
			name:   "api port above the range",
			mutate: func(c *Config) { c.API.Port = 70000 },
			want:   []string{"max"},
		},
		{
			name:   "negative api port",
			mutate: func(c *Config) { c.API.Port = -1 },
		},
		{
			name:   "unknown registry backend",
			mutate: func(c *Config) { c.Registry.Backend = "redis" },
			want:   []string{"oneof"},
		},
		{
			name:   "sqlite backend without a path",
			mutate: func(c *Config) { c.Registry.SQLite.Path = "" },
			want:   []string{"sqlite", "path"},
		},
		{
			name: "badger backend without a path",
			mutate: func(c *Config) {
				c.Registry.Backend = RegistryBackendBadger
				c.Registry.Badger.Path = ""
			},
			want: []string{"badger", "path"},
		},
		{
			name:   "postgres backend without connection details",
			mutate: func(c *Config) { c.Registry.Backend = RegistryBackendPostgres },
			want:   []string{"postgres"},
		},
		{
			name: "telemetry enabled without an endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			want: []string{"telemetry", "endpoint"},
		},
		{
			name: "profiling enabled without an endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Profiling.Enabled = true
				c.Telemetry.Profiling.Endpoint = ""
			},
			want: []string{"profiling", "endpoint"},
		},
		{
			name: "sample rate above one",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "localhost:4317"
				c.Telemetry.SampleRate = 1.5
			},
		},
		{
			name: "s3 access key without its secret",
			mutate: func(c *Config) {
				c.Backup.S3.Bucket = "goshawk-backups"
				c.Backup.S3.AccessKeyID = "AKIAEXAMPLE"
			},
			want: []string{"together"},
		},
	}

	for _, tc := range rejects {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			gotErr := Validate(cfg)
			if gotErr == nil {
				t.Fatal("expected a validation error")
			}
			msg := strings.ToLower(gotErr.Error())
			for _, want := range tc.want {
				if !strings.Contains(msg, want) {
					t.Errorf("error %q does not mention %q", gotErr, want)
				}
			}
		})
	}
}

func TestValidateAcceptsBothLevelCases(t *testing.T) {
	for _, lvl := range []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"} {
		cfg := DefaultConfig()
		cfg.Logging.Level = lvl

		if err := Validate(cfg); err != nil {
			t.Errorf("level %q rejected: %v", lvl, err)
		}
		if cfg.Logging.Level != lvl {
			t.Errorf("Validate changed the level from %q to %q", lvl, cfg.Logging.Level)
		}
	}

	// Case normalization is ApplyDefaults' job, not Validate's.
	mixed := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(mixed)
	if mixed.Logging.Level != "INFO" {
		t.Errorf("ApplyDefaults left the level as %q, want INFO", mixed.Logging.Level)
	}
}
