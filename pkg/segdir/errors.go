package segdir

import (
	"errors"
	"fmt"
)

// Code classifies directory handle failures.
type Code uint8

const (
	// CodeIO indicates the underlying filesystem operation failed.
	CodeIO Code = iota + 1

	// CodeNotFound indicates the directory has no metadata sidecar, i.e. it
	// was never initialized as a storage directory.
	CodeNotFound

	// CodeAlreadyExists indicates the directory already carries a metadata
	// sidecar and cannot be initialized again.
	CodeAlreadyExists

	// CodeLocked indicates another process holds the directory lock.
	CodeLocked

	// CodeIdentityMismatch indicates the persisted identity does not match
	// the identity the caller expected.
	CodeIdentityMismatch

	// CodeIllegalTransition indicates the requested lifecycle transition is
	// not permitted from the current state.
	CodeIllegalTransition

	// CodeUnverified indicates a lifecycle transition was attempted before
	// the identity check passed.
	CodeUnverified

	// CodeNotEmpty indicates the directory still contains segment files.
	CodeNotEmpty

	// CodeInvalidArgument indicates the caller supplied an unusable value.
	CodeInvalidArgument

	// CodeClosed indicates the handle was already closed.
	CodeClosed
)

var codeNames = map[Code]string{
	CodeIO:                "IO",
	CodeNotFound:          "NotFound",
	CodeAlreadyExists:     "AlreadyExists",
	CodeLocked:            "Locked",
	CodeIdentityMismatch:  "IdentityMismatch",
	CodeIllegalTransition: "IllegalTransition",
	CodeUnverified:        "Unverified",
	CodeNotEmpty:          "NotEmpty",
	CodeInvalidArgument:   "InvalidArgument",
	CodeClosed:            "Closed",
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(c))
}

// DirError is the error type returned by directory handles. Op names the
// failed operation ("create", "open", "begin_open", ...), Path the directory
// it failed on.
type DirError struct {
	Code     Code
	Op, Path string
	Detail   string
	Err      error
}

// Error implements the error interface.
func (de *DirError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", de.Code, de.Op, de.Detail)
	if de.Path != "" {
		msg += fmt.Sprintf(" (dir: %s)", de.Path)
	}
	if de.Err != nil {
		msg += fmt.Sprintf(": %v", de.Err)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (de *DirError) Unwrap() error {
	return de.Err
}

func newIOError(op, path string, err error) *DirError {
	return &DirError{Code: CodeIO, Op: op, Path: path, Detail: "i/o failure", Err: err}
}

func newNotFoundError(op, path string) *DirError {
	return &DirError{Code: CodeNotFound, Op: op, Path: path, Detail: "no metadata sidecar"}
}

func newAlreadyExistsError(op, path string) *DirError {
	return &DirError{Code: CodeAlreadyExists, Op: op, Path: path, Detail: "metadata sidecar already exists"}
}

func newLockedError(op, path string) *DirError {
	return &DirError{Code: CodeLocked, Op: op, Path: path, Detail: "directory locked by another process"}
}

func newIllegalTransitionError(op, path string, from State, detail string) *DirError {
	detail = fmt.Sprintf("not permitted in state %s: %s", from, detail)
	return &DirError{Code: CodeIllegalTransition, Op: op, Path: path, Detail: detail}
}

func newUnverifiedError(op, path string) *DirError {
	return &DirError{Code: CodeUnverified, Op: op, Path: path, Detail: "identity not verified"}
}

func newNotEmptyError(op, path string, count int) *DirError {
	detail := fmt.Sprintf("%d segment file(s) still present", count)
	return &DirError{Code: CodeNotEmpty, Op: op, Path: path, Detail: detail}
}

func newInvalidArgumentError(op, message string) *DirError {
	return &DirError{Code: CodeInvalidArgument, Op: op, Detail: message}
}

func newClosedError(op, path string) *DirError {
	return &DirError{Code: CodeClosed, Op: op, Path: path, Detail: "handle closed"}
}

func isCode(err error, code Code) bool {
	var de *DirError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsIOError returns true if the error is a filesystem failure.
func IsIOError(err error) bool { return isCode(err, CodeIO) }

// IsNotFound returns true if the directory has no metadata sidecar.
func IsNotFound(err error) bool { return isCode(err, CodeNotFound) }

// IsAlreadyExists returns true if the directory is already initialized.
func IsAlreadyExists(err error) bool { return isCode(err, CodeAlreadyExists) }

// IsLocked returns true if another process holds the directory lock.
func IsLocked(err error) bool { return isCode(err, CodeLocked) }

// IsIdentityMismatch returns true if the persisted identity did not match.
func IsIdentityMismatch(err error) bool { return isCode(err, CodeIdentityMismatch) }

// IsIllegalTransition returns true if a lifecycle transition was rejected.
func IsIllegalTransition(err error) bool { return isCode(err, CodeIllegalTransition) }

// IsUnverified returns true if a transition ran before identity verification.
func IsUnverified(err error) bool { return isCode(err, CodeUnverified) }

// IsNotEmpty returns true if the directory still contains segment files.
func IsNotEmpty(err error) bool { return isCode(err, CodeNotEmpty) }
