package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/internal/telemetry"
)

// S3Config configures backup uploads to S3-compatible object storage.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, for S3-compatible services
	// like MinIO. Empty means AWS.
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	Region string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket string `yaml:"bucket" mapstructure:"bucket"`

	// KeyPrefix is prepended to every uploaded object key.
	KeyPrefix string `yaml:"key_prefix,omitempty" mapstructure:"key_prefix"`

	// Static credentials. Empty falls back to the default AWS chain
	// (environment, shared config, instance roles).
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`

	// ForcePathStyle addresses buckets as path components instead of
	// subdomains; most S3-compatible services need it.
	ForcePathStyle bool `yaml:"force_path_style,omitempty" mapstructure:"force_path_style"`
}

// NewS3Client builds an S3 client for backup uploads.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return client, nil
}

// Uploader pushes backup archives into a bucket.
type Uploader struct {
	client  *s3.Client
	bucket  string
	prefix  string // prepended to every object key
	metrics UploadMetrics
}

// NewUploader wires an S3 client to the configured bucket. Pass a nil
// UploadMetrics to disable instrumentation.
func NewUploader(client *s3.Client, cfg S3Config, m UploadMetrics) (*Uploader, error) {
	switch {
	case client == nil:
		return nil, fmt.Errorf("S3 client must not be nil")
	case cfg.Bucket == "":
		return nil, fmt.Errorf("S3 bucket must be configured")
	}
	return &Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.KeyPrefix,
		metrics: uploadMetricsOrNop(m),
	}, nil
}

// Upload stores a backup archive under its base name plus the configured
// prefix and returns the object key.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	key := u.prefix + filepath.Base(path)
	ctx, span := telemetry.StartBackupSpan(ctx, telemetry.SpanBackupUpload,
		telemetry.Bucket(u.bucket),
		telemetry.StorageKey(key))
	defer span.End()

	start := time.Now()
	size, err := u.put(ctx, path, key)
	u.metrics.ObserveUpload(size, time.Since(start), err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", err
	}
	span.SetAttributes(telemetry.BackupBytes(size))
	logger.Info("backup uploaded",
		logger.String(logger.KeyBucket, u.bucket),
		logger.String(logger.KeyKey, key),
		logger.BytesWritten(int(size)))
	return key, nil
}

func (u *Uploader) put(ctx context.Context, path, key string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open backup archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat backup archive: %w", err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/gzip"),
	})
	if err != nil {
		return info.Size(), fmt.Errorf("failed to upload backup to s3://%s/%s: %w", u.bucket, key, err)
	}
	return info.Size(), nil
}
