package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

// Open is one open of the registry database: a row allocated when the
// database starts coordinating with its storage directories. The ID orders
// opens; the UUID keeps the reference unambiguous even if a rebuilt
// database ever restarts the ID sequence.
type Open struct {
	ID          uint32     `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID        uuid.UUID  `gorm:"uniqueIndex;not null;type:char(36)" json:"uuid"`
	StartedAt   time.Time  `gorm:"autoCreateTime" json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"` // nil while the open is in flight
}

// TableName returns the SQL table for Open.
func (Open) TableName() string { return "opens" }

// Ref returns the wire reference for this open.
func (o *Open) Ref() dirmeta.OpenRef {
	return dirmeta.OpenRef{ID: o.ID, UUID: o.UUID}
}

// Completed reports whether the database acknowledged this open.
func (o *Open) Completed() bool {
	return o.CompletedAt != nil
}

// Directory is a registered storage directory.
type Directory struct {
	UUID uuid.UUID `gorm:"primaryKey;type:char(36)" json:"uuid"`
	Path string    `gorm:"uniqueIndex;not null;size:4096" json:"path"`

	// LastCompleteOpenID mirrors the directory sidecar's last complete
	// open. The sidecar stays authoritative; this copy exists so listings
	// don't have to visit every disk.
	LastCompleteOpenID *uint32 `json:"last_complete_open_id,omitempty"`

	// DefaultPermissions carries the permission flags handed to viewers of
	// this directory's media, serialized via dirmeta.Permissions.Marshal.
	// Stored verbatim; enforcement happens in the session layer.
	DefaultPermissions []byte `json:"default_permissions,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the SQL table for Directory.
func (Directory) TableName() string { return "directories" }

// User is a registry user. The registry stores identity and permission
// flags only; authentication and enforcement live outside it.
type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Username string `gorm:"uniqueIndex;not null;size:255" json:"username"`

	// Permissions is the user's permission flags, serialized via
	// dirmeta.Permissions.Marshal and passed through opaquely.
	Permissions []byte `json:"permissions,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the SQL table for User.
func (User) TableName() string { return "users" }

// DecodePermissions decodes the user's permission flags.
func (u *User) DecodePermissions() (dirmeta.Permissions, error) {
	return dirmeta.UnmarshalPermissions(u.Permissions)
}

// SetPermissions serializes and replaces the user's permission flags.
func (u *User) SetPermissions(p dirmeta.Permissions) {
	u.Permissions = p.Marshal()
}

// EnsureID populates a missing ID with a freshly generated UUID.
func (u *User) EnsureID() {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
}

// AllModels returns every model for schema auto-migration.
func AllModels() []any { return []any{&Meta{}, &Open{}, &Directory{}, &User{}} }

// Meta is the single-row table holding the database identity.
type Meta struct {
	ID           uint32    `gorm:"primaryKey;autoIncrement:false" json:"id"` // always 1
	DatabaseUUID uuid.UUID `gorm:"not null;type:char(36)" json:"database_uuid"`
}

// TableName returns the SQL table for Meta.
func (Meta) TableName() string { return "meta" }
