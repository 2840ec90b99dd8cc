package segdir

import (
	"fmt"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// State is the lifecycle state of a storage directory.
//
// A live handle tracks its state explicitly: every transition names the
// target state and the persisted record follows it. On open the state is
// derived from the record alone, which is why BeginDelete with no prior
// open reads back as Stable; the registry's deletion intent disambiguates
// that case.
type State int

const (
	// StateEmpty means the directory has never completed an open, or a
	// deletion fully drained it. No segments may be referenced.
	StateEmpty State = iota

	// StateOpening means an open is in progress: in_progress_open is ahead
	// of (or the only) recorded open and the database has not yet
	// acknowledged it.
	StateOpening

	// StateStable means the last recorded open completed and nothing newer
	// is in flight. The directory may hold segments for that open.
	StateStable

	// StateDeleting means a teardown is in progress: the in-progress slot
	// was deliberately moved behind the last completed open.
	StateDeleting
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateOpening:
		return "opening"
	case StateStable:
		return "stable"
	case StateDeleting:
		return "deleting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// stateOf derives the lifecycle state from a persisted record.
func stateOf(m *dirmeta.DirMeta) State {
	last, prog := m.LastCompleteOpen, m.InProgressOpen
	switch {
	case last == nil && prog == nil:
		return StateEmpty
	case last == nil:
		// An open started on a fresh directory and never completed.
		return StateOpening
	case prog == nil:
		return StateStable
	case prog.Equal(last):
		return StateStable
	case prog.ID > last.ID:
		return StateOpening
	default:
		// in_progress strictly behind last: a teardown checkpoint.
		return StateDeleting
	}
}
