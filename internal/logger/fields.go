package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so logs from the directory layer, the registry,
// and the API aggregate cleanly.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // W3C trace ID, present when a span is active
	KeySpanID  = "span_id"  // matching span ID

	// Storage directories
	KeyDirUUID  = "dir_uuid"  // directory UUID (authoritative identity)
	KeyDBUUID   = "db_uuid"   // registry database UUID
	KeyPath     = "path"      // filesystem path
	KeyState    = "state"     // lifecycle state (empty, opening, stable, deleting)
	KeyOldState = "old_state" // lifecycle state before a transition
	KeyOpenID   = "open_id"   // registry-assigned open sequence number
	KeyOpenUUID = "open_uuid" // open UUID

	// Registry
	KeyBackend = "backend" // registry backend: sqlite, postgres, badger
	KeyTable   = "table"   // registry table touched by an operation

	// HTTP API
	KeyRequestID = "request_id" // chi middleware request ID
	KeyMethod    = "method"     // HTTP method
	KeyRoute     = "route"      // matched route pattern
	KeyStatus    = "status"     // HTTP status code
	KeyClientIP  = "client_ip"  // remote address

	// Backup
	KeyBucket  = "bucket"  // S3 bucket for backup upload
	KeyKey     = "key"     // S3 object key
	KeyRegion  = "region"  // S3 region
	KeyArchive = "archive" // local backup archive path

	// Operation metadata
	KeyOperation    = "operation"     // sub-operation name (rewrite, flock, verify, ...)
	KeyDurationMs   = "duration_ms"   // operation duration in milliseconds
	KeyError        = "error"         // error message
	KeyBytesWritten = "bytes_written" // bytes written by a rewrite
	KeyCount        = "count"         // generic count
)

// Field constructors for type safety.

// DirUUID returns a slog.Attr for a directory UUID.
func DirUUID(id string) slog.Attr { return slog.String(KeyDirUUID, id) }

// DBUUID returns a slog.Attr for the registry database UUID.
func DBUUID(id string) slog.Attr { return slog.String(KeyDBUUID, id) }

// Path returns a slog.Attr for a filesystem path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// State returns a slog.Attr for a lifecycle state.
func State(s string) slog.Attr { return slog.String(KeyState, s) }

// OldState returns a slog.Attr for the state before a transition.
func OldState(s string) slog.Attr { return slog.String(KeyOldState, s) }

// OpenID returns a slog.Attr for an open sequence number.
func OpenID(id uint32) slog.Attr { return slog.Any(KeyOpenID, id) }

// Backend returns a slog.Attr for a registry backend name.
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// Operation returns a slog.Attr for a sub-operation name.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error. Nil errors produce an empty Attr.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// BytesWritten returns a slog.Attr for bytes written by a rewrite.
func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }

// Count returns a slog.Attr for a generic count.
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// String returns a slog.Attr for an arbitrary string field. Prefer the
// typed constructors above when one exists for the key.
func String(key, value string) slog.Attr { return slog.String(key, value) }

// Int returns a slog.Attr for an arbitrary integer field.
func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

// Bool returns a slog.Attr for an arbitrary boolean field.
func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }
