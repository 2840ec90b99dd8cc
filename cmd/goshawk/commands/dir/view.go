package dir

import (
	"fmt"
	"os"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/internal/cli/output"
	"github.com/goshawk-nvr/goshawk/internal/cli/timeutil"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// DirectoryView is the CLI projection of a registered storage directory.
type DirectoryView struct {
	UUID               string  `json:"uuid" yaml:"uuid"`
	Path               string  `json:"path" yaml:"path"`
	DefaultPermissions string  `json:"default_permissions" yaml:"default_permissions"`
	LastCompleteOpenID *uint32 `json:"last_complete_open_id,omitempty" yaml:"last_complete_open_id,omitempty"`
	CreatedAt          string  `json:"created_at" yaml:"created_at"`
}

func newDirectoryView(row *registry.Directory) DirectoryView {
	perms := "(unreadable)"
	if p, err := dirmeta.UnmarshalPermissions(row.DefaultPermissions); err == nil {
		perms = p.String()
	}
	return DirectoryView{
		UUID:               row.UUID.String(),
		Path:               row.Path,
		DefaultPermissions: perms,
		LastCompleteOpenID: row.LastCompleteOpenID,
		CreatedAt:          timeutil.FormatLocal(row.CreatedAt),
	}
}

// lastOpen renders the last complete open ID, or "" when the directory
// has never been part of a completed open.
func (v DirectoryView) lastOpen() string {
	if v.LastCompleteOpenID == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v.LastCompleteOpenID)
}

// pairs lays the view out for a key/value detail table.
func (v DirectoryView) pairs() [][2]string {
	return [][2]string{
		{"UUID", v.UUID},
		{"Path", v.Path},
		{"Default permissions", v.DefaultPermissions},
		{"Last complete open", cmdutil.OrElse(v.lastOpen(), "-")},
		{"Created", v.CreatedAt},
	}
}

// printDetail prints a single directory in the selected output format.
func printDetail(view DirectoryView) error {
	format, err := cmdutil.OutputFormat()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, view)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, view)
	default:
		output.KeyValueTable(os.Stdout, view.pairs())
		return nil
	}
}

// DirectoryList is a list of directories for table rendering.
type DirectoryList []DirectoryView

// Headers implements TableRenderer.
func (dl DirectoryList) Headers() []string {
	return []string{"UUID", "PATH", "DEFAULT PERMISSIONS", "LAST OPEN", "CREATED"}
}

// Rows implements TableRenderer.
func (dl DirectoryList) Rows() [][]string {
	rows := make([][]string, 0, len(dl))
	for _, v := range dl {
		rows = append(rows, []string{
			v.UUID, v.Path, v.DefaultPermissions, cmdutil.OrElse(v.lastOpen(), "-"), v.CreatedAt,
		})
	}
	return rows
}
