// Package telemetry wires OpenTelemetry tracing and Pyroscope continuous
// profiling into the recorder. Both are optional: when disabled every
// helper degrades to a no-op, so callers never have to check.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// shutdownTimeout bounds the final flush of buffered spans.
const shutdownTimeout = 5 * time.Second

var (
	tr     trace.Tracer
	active bool
)

// Init configures the OpenTelemetry SDK and installs the global tracer.
// The returned shutdown function flushes buffered spans and closes the
// exporter; with telemetry disabled both are no-ops.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		active = false
		tr = noop.NewTracerProvider().Tracer("goshawk")
		stop := func(context.Context) error { return nil }
		return stop, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rsrc, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(provider)
	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTextMapPropagator(prop)

	active = true
	tr = provider.Tracer(cfg.ServiceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return provider.Shutdown(ctx)
	}, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure { // plaintext collector, the localhost default
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build OTLP trace exporter: %w", err)
	}
	return exp, nil
}

// newResource describes this process for every exported span.
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := resource.WithAttributes(semconv.ServiceName(cfg.ServiceName), semconv.ServiceVersion(cfg.ServiceVersion))
	rsrc, err := resource.New(ctx, attrs, resource.WithHost(), resource.WithProcess())
	if err != nil {
		return nil, fmt.Errorf("failed to describe process resource: %w", err)
	}
	return rsrc, nil
}

// sampler interprets the configured rate, folding the ends onto the
// cheaper always/never samplers.
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns the process tracer. Before Init it is a no-op tracer.
func Tracer() trace.Tracer {
	if tr == nil {
		return noop.NewTracerProvider().Tracer("goshawk")
	}
	return tr
}

// IsEnabled reports whether Init ran with telemetry enabled.
func IsEnabled() bool { return active }

// StartSpan starts a span with the given name. The caller must End it.
func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, spanName, opts...)
}

// RecordError records err on the span in ctx and marks the span failed.
// A nil err is ignored.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	sp := trace.SpanFromContext(ctx)
	sp.RecordError(err)
	sp.SetStatus(codes.Error, err.Error())
}
