package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/goshawk-nvr/goshawk/pkg/registry"
)

// ============================================================================
// Key layout
// ============================================================================
//
// Badger exposes one flat keyspace, so each record type gets a short prefix
// and prefix scans double as typed listings. Open keys embed the ID as 4
// big-endian bytes, which makes a scan over "o:" walk opens in ascending ID
// order with no sort step.
//
// Record              Prefix   Key                       Value
// ==========================================================================
// Database identity   "m:"     m:id                      UUID (16 raw bytes)
// Opens               "o:"     o:<id, 4B big-endian>     Open (JSON)
// Directories         "d:"     d:<uuid>                  Directory (JSON)
// Path index          "dp:"    dp:<path>                 directory UUID (16 raw bytes)
// Users               "u:"     u:<username>              User (JSON)
// Open ID sequence    "seq:"   seq:open                  (managed by badger.Sequence)

const (
	prefixMeta    = "m:"
	prefixOpen    = "o:"
	prefixDir     = "d:"
	prefixDirPath = "dp:"
	prefixUser    = "u:"
	prefixSeq     = "seq:"
)

// keyDatabaseID is the key for the database identity: "m:id"
func keyDatabaseID() []byte {
	return []byte(prefixMeta + "id")
}

// keyOpen generates a key for an open row: "o:<id>"
func keyOpen(id uint32) []byte {
	key := make([]byte, 0, len(prefixOpen)+4)
	key = append(key, prefixOpen...)
	return binary.BigEndian.AppendUint32(key, id)
}

// keyDir generates a key for directory data: "d:<uuid>"
func keyDir(id uuid.UUID) []byte {
	return []byte(prefixDir + id.String())
}

// keyDirPath generates a key for the path uniqueness index: "dp:<path>"
func keyDirPath(path string) []byte {
	return []byte(prefixDirPath + path)
}

// keyUser generates a key for user data: "u:<username>"
func keyUser(username string) []byte {
	return []byte(prefixUser + username)
}

// keyOpenSeq is the key backing the open ID sequence: "seq:open"
func keyOpenSeq() []byte {
	return []byte(prefixSeq + "open")
}

// ============================================================================
// Record codecs
// ============================================================================

// marshalRecord and unmarshalRecord wrap encoding/json so every failure
// names the record kind it was working on.
func marshalRecord[T any](kind string, rec *T) ([]byte, error) {
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	return buf, nil
}

func unmarshalRecord[T any](kind string, buf []byte) (*T, error) {
	rec := new(T)
	if err := json.Unmarshal(buf, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return rec, nil
}

func encodeOpen(open *registry.Open) ([]byte, error) {
	return marshalRecord("open", open)
}

func decodeOpen(buf []byte) (*registry.Open, error) {
	return unmarshalRecord[registry.Open]("open", buf)
}

func encodeDirectory(dir *registry.Directory) ([]byte, error) {
	return marshalRecord("directory", dir)
}

func decodeDirectory(buf []byte) (*registry.Directory, error) {
	return unmarshalRecord[registry.Directory]("directory", buf)
}

func encodeUser(user *registry.User) ([]byte, error) {
	return marshalRecord("user", user)
}

func decodeUser(buf []byte) (*registry.User, error) {
	return unmarshalRecord[registry.User]("user", buf)
}
