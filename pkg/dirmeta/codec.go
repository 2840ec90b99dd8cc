package dirmeta

import (
	"math"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers are the on-disk contract and must never be renumbered.
const (
	fieldDatabaseID   protowire.Number = 1
	fieldDirectoryID  protowire.Number = 2
	fieldLastComplete protowire.Number = 3
	fieldInProgress   protowire.Number = 4

	openFieldID   protowire.Number = 1
	openFieldUUID protowire.Number = 2
)

// MarshalBlock encodes m into a complete sidecar block of exactly BlockSize
// bytes: an unsigned varint length prefix, the wire-encoded record, then NUL
// padding. Fails with FormatError if prefix plus record exceed the block.
func MarshalBlock(m *DirMeta) ([]byte, error) {
	return frameBlock(appendRecord(nil, m))
}

// frameBlock wraps an encoded record into a padded fixed-size block.
func frameBlock(record []byte) ([]byte, error) {
	prefix := protowire.SizeVarint(uint64(len(record)))
	if prefix+len(record) > BlockSize {
		return nil, errFormat("record of %d bytes with %d-byte length prefix exceeds %d-byte block",
			len(record), prefix, BlockSize)
	}
	block := make([]byte, BlockSize)
	n := copy(block, protowire.AppendVarint(nil, uint64(len(record))))
	copy(block[n:], record)
	return block, nil
}

// UnmarshalBlock decodes a sidecar block produced by MarshalBlock. Bytes
// past the declared record length are padding and are ignored, whatever
// their value. A malformed prefix, a declared length that cannot fit the
// block, or a block shorter than its declared content fail with FormatError.
func UnmarshalBlock(data []byte) (*DirMeta, error) {
	length, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, errFormat("malformed length prefix")
	}
	if length > uint64(BlockSize-n) {
		return nil, errFormat("declared record length %d with %d-byte prefix exceeds %d-byte block",
			length, n, BlockSize)
	}
	end := n + int(length)
	if end > len(data) {
		return nil, errFormat("block truncated: %d bytes declared, %d present", end, len(data))
	}
	return parseRecord(data[n:end])
}

func appendRecord(b []byte, m *DirMeta) []byte {
	if m.DatabaseID != uuid.Nil {
		b = protowire.AppendTag(b, fieldDatabaseID, protowire.BytesType)
		b = protowire.AppendBytes(b, m.DatabaseID[:])
	}
	if m.DirectoryID != uuid.Nil {
		b = protowire.AppendTag(b, fieldDirectoryID, protowire.BytesType)
		b = protowire.AppendBytes(b, m.DirectoryID[:])
	}
	if m.LastCompleteOpen != nil {
		b = protowire.AppendTag(b, fieldLastComplete, protowire.BytesType)
		b = protowire.AppendBytes(b, appendOpenRef(nil, m.LastCompleteOpen))
	}
	if m.InProgressOpen != nil {
		b = protowire.AppendTag(b, fieldInProgress, protowire.BytesType)
		b = protowire.AppendBytes(b, appendOpenRef(nil, m.InProgressOpen))
	}
	return b
}

func appendOpenRef(b []byte, o *OpenRef) []byte {
	if o.ID != 0 {
		b = protowire.AppendTag(b, openFieldID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.ID))
	}
	if o.UUID != uuid.Nil {
		b = protowire.AppendTag(b, openFieldUUID, protowire.BytesType)
		b = protowire.AppendBytes(b, o.UUID[:])
	}
	return b
}

func parseRecord(b []byte) (*DirMeta, error) {
	m := &DirMeta{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errFormat("malformed field tag")
		}
		b = b[n:]

		var err error
		switch num {
		case fieldDatabaseID:
			m.DatabaseID, b, err = consumeUUID(b, typ, "database_id")
		case fieldDirectoryID:
			m.DirectoryID, b, err = consumeUUID(b, typ, "directory_id")
		case fieldLastComplete:
			m.LastCompleteOpen, b, err = consumeOpenRef(b, typ, "last_complete_open")
		case fieldInProgress:
			m.InProgressOpen, b, err = consumeOpenRef(b, typ, "in_progress_open")
		default:
			// Unknown fields are skipped for forward compatibility.
			skip := protowire.ConsumeFieldValue(num, typ, b)
			if skip < 0 {
				return nil, errFormat("malformed unknown field %d", num)
			}
			b = b[skip:]
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func consumeUUID(b []byte, typ protowire.Type, field string) (uuid.UUID, []byte, error) {
	if typ != protowire.BytesType {
		return uuid.Nil, nil, errFormat("%s: unexpected wire type %d", field, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return uuid.Nil, nil, errFormat("%s: malformed bytes field", field)
	}
	id, err := uuid.FromBytes(v)
	if err != nil {
		return uuid.Nil, nil, errFormat("%s: %d bytes, want 16", field, len(v))
	}
	return id, b[n:], nil
}

func consumeOpenRef(b []byte, typ protowire.Type, field string) (*OpenRef, []byte, error) {
	if typ != protowire.BytesType {
		return nil, nil, errFormat("%s: unexpected wire type %d", field, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, errFormat("%s: malformed bytes field", field)
	}
	ref, err := parseOpenRef(v, field)
	if err != nil {
		return nil, nil, err
	}
	return ref, b[n:], nil
}

func parseOpenRef(b []byte, field string) (*OpenRef, error) {
	ref := &OpenRef{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errFormat("%s: malformed field tag", field)
		}
		b = b[n:]

		switch num {
		case openFieldID:
			if typ != protowire.VarintType {
				return nil, errFormat("%s.id: unexpected wire type %d", field, typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errFormat("%s.id: malformed varint", field)
			}
			if v > math.MaxUint32 {
				return nil, errFormat("%s.id: %d overflows uint32", field, v)
			}
			ref.ID = uint32(v)
			b = b[n:]
		case openFieldUUID:
			var err error
			ref.UUID, b, err = consumeUUID(b, typ, field+".uuid")
			if err != nil {
				return nil, err
			}
		default:
			skip := protowire.ConsumeFieldValue(num, typ, b)
			if skip < 0 {
				return nil, errFormat("%s: malformed unknown field %d", field, num)
			}
			b = b[skip:]
		}
	}
	return ref, nil
}
