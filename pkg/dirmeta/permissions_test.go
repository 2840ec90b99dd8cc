package dirmeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The exact wire bytes are a contract with every other component that
// stores permission sets: view_video=1, read_camera_configs=2,
// update_signals=3, each a varint bool.
func TestPermissionsWireFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x08, 0x01}, Permissions{ViewVideo: true}.Marshal())
	assert.Equal(t, []byte{0x10, 0x01}, Permissions{ReadCameraConfigs: true}.Marshal())
	assert.Equal(t, []byte{0x18, 0x01}, Permissions{UpdateSignals: true}.Marshal())
	assert.Empty(t, Permissions{}.Marshal(), "zero value encodes to zero bytes")
}

func TestPermissionsRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []Permissions{
		{},
		{ViewVideo: true},
		{ReadCameraConfigs: true},
		{UpdateSignals: true},
		{ViewVideo: true, UpdateSignals: true},
		{ViewVideo: true, ReadCameraConfigs: true, UpdateSignals: true},
	}

	for _, p := range cases {
		got, err := UnmarshalPermissions(p.Marshal())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestUnmarshalPermissionsSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	// A future flag (field 7) must not break older readers.
	data := append(Permissions{ViewVideo: true}.Marshal(), 0x38, 0x01)
	got, err := UnmarshalPermissions(data)
	require.NoError(t, err)
	assert.Equal(t, Permissions{ViewVideo: true}, got)
}

func TestUnmarshalPermissionsMalformed(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalPermissions([]byte{0xff})
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
}

func TestPermissionsUnion(t *testing.T) {
	t.Parallel()

	a := Permissions{ViewVideo: true}
	b := Permissions{UpdateSignals: true}
	assert.Equal(t, Permissions{ViewVideo: true, UpdateSignals: true}, a.Union(b))
	assert.Equal(t, a.Union(b), b.Union(a))
	assert.Equal(t, a, a.Union(Permissions{}))
}

func TestPermissionsIsSubsetOf(t *testing.T) {
	t.Parallel()

	all := Permissions{ViewVideo: true, ReadCameraConfigs: true, UpdateSignals: true}
	view := Permissions{ViewVideo: true}

	assert.True(t, view.IsSubsetOf(all))
	assert.True(t, view.IsSubsetOf(view))
	assert.True(t, Permissions{}.IsSubsetOf(Permissions{}))
	assert.False(t, all.IsSubsetOf(view))
}

func TestPermissionsString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(none)", Permissions{}.String())
	assert.Equal(t, "view_video", Permissions{ViewVideo: true}.String())
	assert.Equal(t, "view_video,read_camera_configs,update_signals",
		Permissions{ViewVideo: true, ReadCameraConfigs: true, UpdateSignals: true}.String())
}
