package api

import "time"

// Config configures the REST API HTTP server.
//
// The API serves the health probes and the read-only inspection endpoints
// for storage directories and database opens. Mutations go through the CLI,
// which holds the archive directly.
//
// When Enabled is false the serve command never opens a listener.
type Config struct {
	// Enabled controls whether the API server is started. A pointer
	// distinguishes "not set" (enabled) from an explicit false.
	Enabled *bool `yaml:"enabled" mapstructure:"enabled"`

	// Host is the listen address. Empty means all interfaces.
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the HTTP port for the API endpoints. Default: 8080.
	Port int `yaml:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`

	// ReadTimeout bounds reading the entire request, body included.
	// Zero disables the timeout. Default: 10s.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`

	// WriteTimeout bounds writing the response. Zero disables the
	// timeout. Default: 10s.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`

	// IdleTimeout bounds keep-alive waits between requests. Zero falls
	// back to ReadTimeout. Default: 60s.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// IsEnabled returns whether the API server should be started.
func (conf *Config) IsEnabled() bool {
	return conf.Enabled == nil || *conf.Enabled
}

// applyDefaults fills in zero values with sensible defaults.
func (conf *Config) applyDefaults() {
	if conf.Port == 0 {
		conf.Port = 8080
	}
	if conf.ReadTimeout == 0 {
		conf.ReadTimeout = 10 * time.Second
	}
	if conf.WriteTimeout == 0 {
		conf.WriteTimeout = 10 * time.Second
	}
	if conf.IdleTimeout == 0 {
		conf.IdleTimeout = 60 * time.Second
	}
}
