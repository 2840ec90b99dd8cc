package dirmeta

import (
	"errors"
	"fmt"
)

// FormatError reports a sidecar block or record that cannot be decoded, or
// a record too large to fit the fixed block. A FormatError on read means the
// sidecar is corrupt or foreign; callers must surface it for external
// reconciliation rather than guess at contents.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "dirmeta: " + e.Reason
}

// errFormat builds a *FormatError with a formatted reason.
func errFormat(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// IsFormatError reports whether err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
