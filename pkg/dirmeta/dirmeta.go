// Package dirmeta defines the on-disk metadata record stored alongside
// recorded media segments in each storage directory, and its fixed-size
// block encoding.
//
// Every storage directory carries a small sidecar file holding a DirMeta
// record: which registry database the directory belongs to, the directory's
// own identity, and the last/in-progress opens. The record is encoded with
// protocol-buffer wire format and framed into a single 512-byte block so it
// can be rewritten in place with one sector-aligned write (see pkg/segdir).
package dirmeta

import (
	"fmt"

	"github.com/google/uuid"
)

// BlockSize is the exact size of the encoded sidecar block. The length
// prefix plus the record must fit; the remainder is NUL padding. Keeping the
// block within a single 512-byte sector bounds the torn-write window of an
// in-place rewrite.
const BlockSize = 512

// OpenRef identifies a single open of the registry database.
type OpenRef struct {
	// ID is assigned by the registry and increases monotonically for the
	// lifetime of the database. Ordering open events only requires
	// comparing IDs.
	ID uint32
	// UUID is random and stays meaningful even if the registry is ever
	// rebuilt and restarts its ID sequence.
	UUID uuid.UUID
}

// Equal reports whether both refs denote the same open. Nil-safe.
func (o *OpenRef) Equal(other *OpenRef) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.ID == other.ID && o.UUID == other.UUID
}

// Clone returns a copy of the ref, or nil.
func (o *OpenRef) Clone() *OpenRef {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

func (o *OpenRef) String() string {
	if o == nil {
		return "<none>"
	}
	return fmt.Sprintf("open %d (%s)", o.ID, o.UUID)
}

// DirMeta is the record persisted in a storage directory's sidecar block.
type DirMeta struct {
	// DatabaseID is the UUID of the registry database this directory
	// belongs to. Informational: a mismatch is diagnostic, not fatal,
	// because a registry rebuilt from scratch gets a fresh UUID while
	// its directories keep serving.
	DatabaseID uuid.UUID

	// DirectoryID is the directory's own UUID and the authoritative
	// identity. A mismatch here means the path points at the wrong
	// directory entirely and the directory must not be used.
	DirectoryID uuid.UUID

	// LastCompleteOpen is the most recent open the registry durably
	// recorded against this directory. Nil if that has never happened.
	LastCompleteOpen *OpenRef

	// InProgressOpen is an open that has been written here but may not
	// yet be recorded in the registry. While it is ahead of
	// LastCompleteOpen, no segment data has been written under it yet.
	// It is set behind LastCompleteOpen in exactly one case: directory
	// deletion, after every segment file is gone.
	InProgressOpen *OpenRef
}

// Clone returns a deep copy.
func (m *DirMeta) Clone() *DirMeta {
	if m == nil {
		return nil
	}
	return &DirMeta{
		DatabaseID:       m.DatabaseID,
		DirectoryID:      m.DirectoryID,
		LastCompleteOpen: m.LastCompleteOpen.Clone(),
		InProgressOpen:   m.InProgressOpen.Clone(),
	}
}
