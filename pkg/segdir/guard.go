package segdir

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// MismatchKind names which persisted identity disagreed with the caller.
type MismatchKind int

const (
	// MismatchNone means both identities match.
	MismatchNone MismatchKind = iota

	// MismatchDatabase means the directory was last attached to a different
	// database. Diagnostic: the directory itself is the right one, but it
	// must be reattached deliberately, never silently adopted.
	MismatchDatabase

	// MismatchDirectory means the path points at a different directory than
	// the registry expects. Authoritative: using it would mix segment
	// namespaces, so the refusal is final.
	MismatchDirectory
)

// String returns a human-readable name for the mismatch kind.
func (k MismatchKind) String() string {
	switch k {
	case MismatchNone:
		return "none"
	case MismatchDatabase:
		return "database"
	case MismatchDirectory:
		return "directory"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// IdentityCheck is the verdict of comparing a persisted record against the
// identity the registry expects.
type IdentityCheck struct {
	Kind     MismatchKind
	Expected uuid.UUID
	Actual   uuid.UUID
}

// CheckIdentity compares the record's identity fields against the expected
// database and directory UUIDs. A directory mismatch wins over a database
// mismatch. A zero database UUID in the record predates attachment and is
// not treated as a mismatch; a zero directory UUID always is, since the
// directory identity is mandatory.
func CheckIdentity(m *dirmeta.DirMeta, wantDB, wantDir uuid.UUID) IdentityCheck {
	if m.DirectoryID != wantDir {
		return IdentityCheck{Kind: MismatchDirectory, Expected: wantDir, Actual: m.DirectoryID}
	}
	if m.DatabaseID != uuid.Nil && m.DatabaseID != wantDB {
		return IdentityCheck{Kind: MismatchDatabase, Expected: wantDB, Actual: m.DatabaseID}
	}
	return IdentityCheck{Kind: MismatchNone}
}

// OK returns true if both identities match.
func (c IdentityCheck) OK() bool {
	return c.Kind == MismatchNone
}

// Authoritative returns true if the mismatch permanently disqualifies the
// directory, as opposed to flagging a recoverable attachment problem.
func (c IdentityCheck) Authoritative() bool {
	return c.Kind == MismatchDirectory
}

// Err converts the verdict into an error, or nil if the check passed.
func (c IdentityCheck) Err(op, path string) error {
	switch c.Kind {
	case MismatchNone:
		return nil
	case MismatchDatabase:
		return &DirError{
			Code: CodeIdentityMismatch,
			Op:   op,
			Path: path,
			Detail: fmt.Sprintf("directory belongs to database %s, not %s",
				c.Actual, c.Expected),
		}
	default:
		return &DirError{
			Code: CodeIdentityMismatch,
			Op:   op,
			Path: path,
			Detail: fmt.Sprintf("directory identity is %s, registry expects %s",
				c.Actual, c.Expected),
		}
	}
}
