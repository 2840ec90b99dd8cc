package backup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingUploadMetrics captures the last upload observation.
type recordingUploadMetrics struct {
	calls    int
	bytes    int64
	duration time.Duration
	err      error
}

func (r *recordingUploadMetrics) ObserveUpload(bytes int64, d time.Duration, err error) {
	r.calls++
	r.bytes = bytes
	r.duration = d
	r.err = err
}

// fakeS3 runs an httptest server that accepts path-style PutObject
// requests and records the object keys it sees.
func fakeS3(t *testing.T, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			keys = append(keys, r.URL.Path)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`<Error><Code>BadRequest</Code><Message>refused</Message></Error>`))
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &keys
}

func uploaderConfig(endpoint string) S3Config {
	return S3Config{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		Bucket:          "backups",
		KeyPrefix:       "nvr/",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		ForcePathStyle:  true,
	}
}

func TestUploaderValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, _ := fakeS3(t, http.StatusOK)
	cfg := uploaderConfig(srv.URL)
	client, err := NewS3Client(ctx, cfg)
	require.NoError(t, err)

	_, err = NewUploader(nil, cfg, nil)
	assert.Error(t, err)

	noBucket := cfg
	noBucket.Bucket = ""
	_, err = NewUploader(client, noBucket, nil)
	assert.Error(t, err)
}

func TestUploadPrefixesKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, keys := fakeS3(t, http.StatusOK)
	cfg := uploaderConfig(srv.URL)
	client, err := NewS3Client(ctx, cfg)
	require.NoError(t, err)

	archive := filepath.Join(t.TempDir(), "goshawk-backup-20240101-000000.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("compressed registry"), 0o644))

	rec := &recordingUploadMetrics{}
	up, err := NewUploader(client, cfg, rec)
	require.NoError(t, err)

	key, err := up.Upload(ctx, archive)
	require.NoError(t, err)
	assert.Equal(t, "nvr/goshawk-backup-20240101-000000.tar.gz", key)

	// Path-style addressing puts the bucket first.
	require.Len(t, *keys, 1)
	assert.Equal(t, "/backups/nvr/goshawk-backup-20240101-000000.tar.gz", (*keys)[0])

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, int64(len("compressed registry")), rec.bytes)
	assert.NoError(t, rec.err)
}

func TestUploadRefused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, _ := fakeS3(t, http.StatusBadRequest)
	cfg := uploaderConfig(srv.URL)
	client, err := NewS3Client(ctx, cfg)
	require.NoError(t, err)

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("payload"), 0o644))

	rec := &recordingUploadMetrics{}
	up, err := NewUploader(client, cfg, rec)
	require.NoError(t, err)

	_, err = up.Upload(ctx, archive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://backups/nvr/backup.tar.gz")

	// The observation still carries the archive size so failed transfer
	// volume can be accounted for.
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, int64(len("payload")), rec.bytes)
	assert.Error(t, rec.err)
}

func TestUploadMissingArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv, keys := fakeS3(t, http.StatusOK)
	cfg := uploaderConfig(srv.URL)
	client, err := NewS3Client(ctx, cfg)
	require.NoError(t, err)

	up, err := NewUploader(client, cfg, nil)
	require.NoError(t, err)

	_, err = up.Upload(ctx, filepath.Join(t.TempDir(), "absent.tar.gz"))
	require.Error(t, err)
	assert.Empty(t, *keys)
}
