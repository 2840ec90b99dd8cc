package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingTracer points the package tracer at an in-memory span recorder
// for the duration of one test.
func recordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	old := tr
	tr = tp.Tracer("test")
	t.Cleanup(func() { tr = old })

	return recorder
}

func TestConfigDefaults(t *testing.T) {
	want := Config{
		ServiceName: "goshawk", ServiceVersion: "dev",
		Endpoint: "localhost:4317", Insecure: true, SampleRatio: 1.0,
	}
	assert.Equal(t, want, DefaultConfig())
}

func TestInitWhenDisabled(t *testing.T) {
	stop, err := Init(t.Context(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, stop)

	assert.False(t, IsEnabled(), "disabled config must not mark telemetry enabled")
	assert.NoError(t, stop(t.Context()))
}

func TestTracerBeforeInit(t *testing.T) {
	old := tr
	tr = nil
	t.Cleanup(func() { tr = old })

	require.NotNil(t, Tracer())
}

func TestStartSpanBeforeInit(t *testing.T) {
	// Works before Init; the span is a no-op.
	ctx, span := StartSpan(t.Context(), SpanArchiveOpen)
	require.NotNil(t, ctx, "context must survive the no-op path")
	require.NotNil(t, span, "span must be usable before Init")
	span.End()
}

func TestRecordErrorSetsStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(t.Context(), SpanArchiveOpen)

	RecordError(ctx, nil) // ignored
	RecordError(ctx, errors.New("wal replay failed"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "wal replay failed", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestRecordErrorWithoutSpan(t *testing.T) {
	require.NotPanics(t, func() {
		RecordError(t.Context(), errors.New("boom"))
	})
}

func TestSamplerFolding(t *testing.T) {
	for rate, want := range map[float64]string{
		1.0:  "AlwaysOnSampler",
		1.5:  "AlwaysOnSampler",
		0.0:  "AlwaysOffSampler",
		-0.1: "AlwaysOffSampler",
		0.25: "TraceIDRatioBased{0.25}",
	} {
		assert.Equal(t, want, sampler(rate).Description(), "rate %v", rate)
	}
}

func TestSpanAttributeHelpers(t *testing.T) {
	cases := []struct {
		name string
		attr attribute.KeyValue
		key  string
		want any
	}{
		{"DirUUID", DirUUID("9de278e5-0b85-47a5-b3b8-e36c24a31a93"), AttrDirUUID, "9de278e5-0b85-47a5-b3b8-e36c24a31a93"},
		{"DirPath", DirPath("/srv/goshawk/sample"), AttrDirPath, "/srv/goshawk/sample"},
		{"DirState", DirState("stable"), AttrDirState, "stable"},
		{"DBUUID", DBUUID("6b9a7f1e-44cf-4c8a-8c2f-35f4b2a9c771"), AttrDBUUID, "6b9a7f1e-44cf-4c8a-8c2f-35f4b2a9c771"},
		{"Backend", Backend("sqlite"), AttrBackend, "sqlite"},
		{"OpenID", OpenID(42), AttrOpenID, int64(42)},
		{"OpenUUID", OpenUUID("f3d1a7c0-6e2b-4f3a-9bb1-2f1c8f5a6d42"), AttrOpenUUID, "f3d1a7c0-6e2b-4f3a-9bb1-2f1c8f5a6d42"},
		{"AttachedCount", AttachedCount(3), AttrAttached, int64(3)},
		{"SkippedCount", SkippedCount(1), AttrSkipped, int64(1)},
		{"Bucket", Bucket("goshawk-backups"), AttrBucket, "goshawk-backups"},
		{"StorageKey", StorageKey("backups/registry-20240101.tar.gz"), AttrStorageKey, "backups/registry-20240101.tar.gz"},
		{"Region", Region("eu-central-1"), AttrRegion, "eu-central-1"},
		{"BackupPath", BackupPath("/tmp/backup.tar.gz"), AttrBackupPath, "/tmp/backup.tar.gz"},
		{"BackupBytes", BackupBytes(1 << 20), AttrBackupBytes, int64(1 << 20)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.key, string(c.attr.Key))
			assert.Equal(t, c.want, c.attr.Value.AsInterface())
		})
	}
}

func TestStartDirSpan(t *testing.T) {
	recorder := recordingTracer(t)

	_, span := StartDirSpan(t.Context(), SpanDirAttach,
		"9de278e5-0b85-47a5-b3b8-e36c24a31a93", DirState("attaching"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, SpanDirAttach, ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), DirUUID("9de278e5-0b85-47a5-b3b8-e36c24a31a93"))
	assert.Contains(t, ended[0].Attributes(), DirState("attaching"))
}

func TestStartBackupSpan(t *testing.T) {
	recorder := recordingTracer(t)

	_, span := StartBackupSpan(t.Context(), SpanBackupCreate,
		BackupPath("/tmp/backup.tar.gz"), Bucket("goshawk-backups"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, SpanBackupCreate, ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), BackupPath("/tmp/backup.tar.gz"))
	assert.Contains(t, ended[0].Attributes(), Bucket("goshawk-backups"))
}
