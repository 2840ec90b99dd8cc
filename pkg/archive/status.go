package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// DirectoryStatus is one registered directory as operators see it: the
// registry row plus the live handle's view when the directory is attached.
type DirectoryStatus struct {
	UUID               uuid.UUID `json:"uuid"`
	Path               string    `json:"path"`
	LastCompleteOpenID *uint32   `json:"last_complete_open_id,omitempty"`
	Attached           bool      `json:"attached"`
	State              string    `json:"state,omitempty"`
	Verified           bool      `json:"verified"`
	Error              string    `json:"error,omitempty"`
}

// Status reports every registered directory in path order. Directories
// that failed to attach carry the failure; unattached directories without
// a recorded failure (the archive was never opened) carry neither state
// nor error.
func (a *Archive) Status(ctx context.Context) ([]DirectoryStatus, error) {
	rows, err := a.store.ListDirectories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered directories: %w", err)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	statuses := make([]DirectoryStatus, 0, len(rows))
	for _, row := range rows {
		st := DirectoryStatus{
			UUID:               row.UUID,
			Path:               row.Path,
			LastCompleteOpenID: row.LastCompleteOpenID,
		}
		if d, ok := a.dirs[row.UUID]; ok {
			st.Attached = true
			st.State = d.State().String()
			st.Verified = d.Verified()
		}
		if ferr, ok := a.faults[row.UUID]; ok {
			st.Error = ferr.Error()
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// CurrentOpen returns the open the archive runs under, or nil before Open
// succeeds.
func (a *Archive) CurrentOpen() *dirmeta.OpenRef {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.open.Clone()
}
