package dirmeta

import (
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Permission flag field numbers. Like the DirMeta fields these are a wire
// contract shared with every component that stores or transmits permission
// sets; enforcement happens elsewhere.
const (
	permViewVideo         protowire.Number = 1
	permReadCameraConfigs protowire.Number = 2
	permUpdateSignals     protowire.Number = 3
)

// Permissions is the set of capability flags attached to a session or user
// row. This package only defines the serialized form; it never decides
// whether an action is allowed.
type Permissions struct {
	ViewVideo         bool // may view recorded and live video
	ReadCameraConfigs bool // may read camera configurations, including credentials
	UpdateSignals     bool // may update signal state
}

// Marshal encodes the flag set in protocol-buffer wire format. Unset flags
// are omitted, so the zero value encodes to zero bytes.
func (p Permissions) Marshal() []byte {
	var b []byte
	if p.ViewVideo {
		b = protowire.AppendTag(b, permViewVideo, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if p.ReadCameraConfigs {
		b = protowire.AppendTag(b, permReadCameraConfigs, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if p.UpdateSignals {
		b = protowire.AppendTag(b, permUpdateSignals, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}

// UnmarshalPermissions decodes a flag set, skipping unknown fields so newer
// writers stay readable.
func UnmarshalPermissions(data []byte) (Permissions, error) {
	var p Permissions
	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Permissions{}, errFormat("permissions: malformed field tag")
		}
		b = b[n:]

		switch num {
		case permViewVideo, permReadCameraConfigs, permUpdateSignals:
			if typ != protowire.VarintType {
				return Permissions{}, errFormat("permissions: unexpected wire type %d for field %d", typ, num)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Permissions{}, errFormat("permissions: malformed varint for field %d", num)
			}
			b = b[n:]
			set := v != 0
			switch num {
			case permViewVideo:
				p.ViewVideo = set
			case permReadCameraConfigs:
				p.ReadCameraConfigs = set
			case permUpdateSignals:
				p.UpdateSignals = set
			}
		default:
			skip := protowire.ConsumeFieldValue(num, typ, b)
			if skip < 0 {
				return Permissions{}, errFormat("permissions: malformed unknown field %d", num)
			}
			b = b[skip:]
		}
	}
	return p, nil
}

// Union returns the flags granted by either set.
func (p Permissions) Union(q Permissions) Permissions {
	return Permissions{
		ViewVideo:         p.ViewVideo || q.ViewVideo,
		ReadCameraConfigs: p.ReadCameraConfigs || q.ReadCameraConfigs,
		UpdateSignals:     p.UpdateSignals || q.UpdateSignals,
	}
}

// IsSubsetOf reports whether every flag in p is also granted by q.
func (p Permissions) IsSubsetOf(q Permissions) bool {
	return (!p.ViewVideo || q.ViewVideo) &&
		(!p.ReadCameraConfigs || q.ReadCameraConfigs) &&
		(!p.UpdateSignals || q.UpdateSignals)
}

func (p Permissions) String() string {
	var flags []string
	if p.ViewVideo {
		flags = append(flags, "view_video")
	}
	if p.ReadCameraConfigs {
		flags = append(flags, "read_camera_configs")
	}
	if p.UpdateSignals {
		flags = append(flags, "update_signals")
	}
	if len(flags) == 0 {
		return "(none)"
	}
	return strings.Join(flags, ",")
}
