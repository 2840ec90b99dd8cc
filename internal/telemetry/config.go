package telemetry

// The default OTLP gRPC collector endpoint, matching an otel-collector
// running on the same host.
const defaultEndpoint = "localhost:4317"

// Config controls trace export.
type Config struct {
	// Enabled turns trace export on. When false, Init installs nothing
	// and Tracer falls back to a no-op implementation.
	Enabled bool

	// ServiceName and ServiceVersion are stamped on the resource
	// attached to every exported span.
	ServiceName, ServiceVersion string

	// Endpoint is the OTLP gRPC collector address in host:port form.
	Endpoint string

	// Insecure disables TLS on the collector connection, and SampleRatio
	// is the fraction of traces to keep, from 0.0 (drop everything) to
	// 1.0 (keep everything).
	Insecure    bool
	SampleRatio float64
}

// DefaultConfig returns the settings used when the configuration file
// has no telemetry section: tracing off, pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName: "goshawk", ServiceVersion: "dev",
		Endpoint:    defaultEndpoint,
		Insecure:    true,
		SampleRatio: 1.0,
	}
}
