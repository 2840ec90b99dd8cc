// Package user implements user management subcommands for goshawk.
package user

import (
	"github.com/spf13/cobra"

	"github.com/goshawk-nvr/goshawk/cmd/goshawk/cmdutil"
	"github.com/goshawk-nvr/goshawk/internal/cli/timeutil"
	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// Cmd groups the user subcommands.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users and their permission flags",
	Long: `Manage users and their permission flags.

Goshawk stores each user's permission flags (view_video,
read_camera_configs, update_signals) in the registry and hands them to
whatever serves the recordings; it does not enforce them itself.

Examples:
  # Create a user who may watch recordings
  goshawk user add alice --view-video

  # List users
  goshawk user list

  # Grant additional permissions
  goshawk user grant alice --update-signals

  # Revoke a permission
  goshawk user revoke alice --view-video

  # Remove the user entirely
  goshawk user delete alice`,
}

func init() {
	Cmd.PersistentFlags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format: table, json, or yaml")

	Cmd.AddCommand(addCmd, listCmd, grantCmd, revokeCmd, deleteCmd)
}

// openStore loads the configuration and opens the registry store.
func openStore() (registry.Store, error) {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Registry.NewStore()
}

// UserView is the CLI projection of a user.
type UserView struct {
	ID          string `json:"id" yaml:"id"`
	Username    string `json:"username" yaml:"username"`
	Permissions string `json:"permissions" yaml:"permissions"`
	CreatedAt   string `json:"created_at" yaml:"created_at"`
	UpdatedAt   string `json:"updated_at" yaml:"updated_at"`
}

func newUserView(row *registry.User) UserView {
	perms := "(unreadable)"
	if p, err := row.DecodePermissions(); err == nil {
		perms = p.String()
	}
	return UserView{
		ID:          row.ID,
		Username:    row.Username,
		Permissions: perms,
		CreatedAt:   timeutil.FormatLocal(row.CreatedAt),
		UpdatedAt:   timeutil.FormatLocal(row.UpdatedAt),
	}
}

// UserList renders users as a table.
type UserList []UserView

// Headers implements TableRenderer.
func (l UserList) Headers() []string {
	return []string{"USERNAME", "PERMISSIONS", "CREATED", "UPDATED"}
}

// Rows implements TableRenderer.
func (l UserList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, v := range l {
		rows = append(rows, []string{v.Username, v.Permissions, v.CreatedAt, v.UpdatedAt})
	}
	return rows
}

// flagPermissions assembles a permission set from the shared flag values.
func flagPermissions(viewVideo, readCameraConfigs, updateSignals bool) dirmeta.Permissions {
	return dirmeta.Permissions{
		ViewVideo:         viewVideo,
		ReadCameraConfigs: readCameraConfigs,
		UpdateSignals:     updateSignals,
	}
}
