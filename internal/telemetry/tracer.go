package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for recorder operations.
// Storage-directory keys use "dir.", registry keys "db."/"open.", and
// backup keys "storage."/"backup." prefixes.
const (
	// ========================================================================
	// Storage directory attributes
	// ========================================================================
	AttrDirUUID  = "dir.uuid"  // directory UUID (authoritative identity)
	AttrDirPath  = "dir.path"  // filesystem path
	AttrDirState = "dir.state" // lifecycle state

	// ========================================================================
	// Registry database attributes
	// ========================================================================
	AttrDBUUID   = "db.uuid"          // registry database UUID
	AttrBackend  = "registry.backend" // sqlite, postgres, badger
	AttrOpenID   = "open.id"          // open sequence number
	AttrOpenUUID = "open.uuid"        // open UUID

	// ========================================================================
	// Archive bookkeeping attributes
	// ========================================================================
	AttrAttached = "archive.attached" // directories attached by an open
	AttrSkipped  = "archive.skipped"  // directories skipped by an open

	// ========================================================================
	// Backup storage attributes
	// ========================================================================
	AttrBucket      = "storage.bucket" // S3 bucket
	AttrStorageKey  = "storage.key"    // S3 object key
	AttrRegion      = "storage.region" // S3 region
	AttrBackupPath  = "backup.path"    // local backup archive path
	AttrBackupBytes = "backup.bytes"   // backup archive size
)

// Span names, one per traced operation, in <component>.<operation> form.
const (
	// Archive lifecycle spans
	SpanArchiveOpen      = "archive.open"
	SpanArchiveAddDir    = "archive.add_directory"
	SpanArchiveRemoveDir = "archive.remove_directory"

	// Directory sidecar spans
	SpanDirAttach = "dir.attach"

	// Backup spans
	SpanBackupCreate  = "backup.create"
	SpanBackupRestore = "backup.restore"
	SpanBackupUpload  = "backup.upload"
)

// DirUUID returns an attribute for a directory UUID
func DirUUID(id string) attribute.KeyValue { return attribute.String(AttrDirUUID, id) }

// DirPath returns an attribute for a directory filesystem path
func DirPath(path string) attribute.KeyValue { return attribute.String(AttrDirPath, path) }

// DirState returns an attribute for a directory lifecycle state
func DirState(state string) attribute.KeyValue { return attribute.String(AttrDirState, state) }

// DBUUID returns an attribute for the registry database UUID
func DBUUID(id string) attribute.KeyValue { return attribute.String(AttrDBUUID, id) }

// Backend returns an attribute for the registry backend name
func Backend(name string) attribute.KeyValue { return attribute.String(AttrBackend, name) }

// OpenID returns an attribute for an open sequence number
func OpenID(id uint32) attribute.KeyValue { return attribute.Int64(AttrOpenID, int64(id)) }

// OpenUUID returns an attribute for an open UUID
func OpenUUID(id string) attribute.KeyValue { return attribute.String(AttrOpenUUID, id) }

// AttachedCount returns an attribute for directories attached by an open
func AttachedCount(n int) attribute.KeyValue { return attribute.Int(AttrAttached, n) }

// SkippedCount returns an attribute for directories skipped by an open
func SkippedCount(n int) attribute.KeyValue { return attribute.Int(AttrSkipped, n) }

// Bucket returns an attribute for an S3 bucket name
func Bucket(name string) attribute.KeyValue { return attribute.String(AttrBucket, name) }

// StorageKey returns an attribute for an S3 object key
func StorageKey(key string) attribute.KeyValue { return attribute.String(AttrStorageKey, key) }

// Region returns an attribute for a cloud region
func Region(region string) attribute.KeyValue { return attribute.String(AttrRegion, region) }

// BackupPath returns an attribute for a local backup archive path
func BackupPath(path string) attribute.KeyValue { return attribute.String(AttrBackupPath, path) }

// BackupBytes returns an attribute for a backup archive size
func BackupBytes(n int64) attribute.KeyValue { return attribute.Int64(AttrBackupBytes, n) }

// StartDirSpan starts a span for an operation on one storage directory.
// This is a convenience function that sets the directory identity.
func StartDirSpan(ctx context.Context, name, dirUUID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	merged := append([]attribute.KeyValue{DirUUID(dirUUID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(merged...))
}

// StartBackupSpan starts a span for a backup operation.
func StartBackupSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}
