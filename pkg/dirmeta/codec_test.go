package dirmeta

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	testDBID  = uuid.MustParse("89f9a7a9-77ae-4b37-a9d8-cd29a05c70f2")
	testDirID = uuid.MustParse("cbfc2e8a-5e6e-45e5-9b6e-8db7e8c8f0be")
	openUUID1 = uuid.MustParse("3e4b7e40-9a27-46e7-b8c2-5b0e7dd1a001")
	openUUID2 = uuid.MustParse("5f28c5f6-21b4-40f8-a6b8-dc6cabe5a002")
)

func TestMarshalBlockRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		meta *DirMeta
	}{
		{
			name: "Empty",
			meta: &DirMeta{},
		},
		{
			name: "IdentityOnly",
			meta: &DirMeta{DatabaseID: testDBID, DirectoryID: testDirID},
		},
		{
			name: "InProgressOnly",
			meta: &DirMeta{
				DatabaseID:     testDBID,
				DirectoryID:    testDirID,
				InProgressOpen: &OpenRef{ID: 1, UUID: openUUID1},
			},
		},
		{
			name: "LastCompleteOnly",
			meta: &DirMeta{
				DatabaseID:       testDBID,
				DirectoryID:      testDirID,
				LastCompleteOpen: &OpenRef{ID: 4, UUID: openUUID1},
			},
		},
		{
			name: "BothOpens",
			meta: &DirMeta{
				DatabaseID:       testDBID,
				DirectoryID:      testDirID,
				LastCompleteOpen: &OpenRef{ID: 4, UUID: openUUID1},
				InProgressOpen:   &OpenRef{ID: 5, UUID: openUUID2},
			},
		},
		{
			name: "ZeroOpenID",
			meta: &DirMeta{
				DirectoryID:    testDirID,
				InProgressOpen: &OpenRef{UUID: openUUID1},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			block, err := MarshalBlock(tc.meta)
			require.NoError(t, err)
			require.Len(t, block, BlockSize)

			got, err := UnmarshalBlock(block)
			require.NoError(t, err)
			assert.Equal(t, tc.meta, got)
		})
	}
}

// A directory that has never been opened carries only its identity: the
// block is a one-byte varint header, the two UUID fields, then NUL padding
// all the way to 512.
func TestMarshalBlockFreshDirectoryLayout(t *testing.T) {
	t.Parallel()

	meta := &DirMeta{DatabaseID: testDBID, DirectoryID: testDirID}
	block, err := MarshalBlock(meta)
	require.NoError(t, err)
	require.Len(t, block, BlockSize)

	// Two bytes-type fields of 16 bytes each: (1 tag + 1 len + 16) * 2.
	const recordLen = 36
	assert.Equal(t, byte(recordLen), block[0])
	assert.True(t, bytes.Equal(block[1+recordLen:], make([]byte, BlockSize-1-recordLen)),
		"everything after the record must be NUL padding")

	got, err := UnmarshalBlock(block)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestMarshalBlockEmptyRecordLayout(t *testing.T) {
	t.Parallel()

	block, err := MarshalBlock(&DirMeta{})
	require.NoError(t, err)
	require.Len(t, block, BlockSize)
	assert.Equal(t, byte(0), block[0])
	assert.True(t, bytes.Equal(block, make([]byte, BlockSize)))

	got, err := UnmarshalBlock(block)
	require.NoError(t, err)
	assert.Equal(t, &DirMeta{}, got)
}

func TestFrameBlockSizeBound(t *testing.T) {
	t.Parallel()

	t.Run("MaximumFits", func(t *testing.T) {
		t.Parallel()
		// 510-byte record + 2-byte varint prefix = exactly 512.
		block, err := frameBlock(bytes.Repeat([]byte{0x01}, 510))
		require.NoError(t, err)
		assert.Len(t, block, BlockSize)
	})

	t.Run("OneOverFails", func(t *testing.T) {
		t.Parallel()
		_, err := frameBlock(bytes.Repeat([]byte{0x01}, 511))
		require.Error(t, err)
		assert.True(t, IsFormatError(err), "oversize must be a FormatError, not a silent truncation")
	})

	t.Run("WayOverFails", func(t *testing.T) {
		t.Parallel()
		_, err := frameBlock(make([]byte, 4096))
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})
}

func TestUnmarshalBlockPaddingTolerance(t *testing.T) {
	t.Parallel()

	meta := &DirMeta{
		DatabaseID:       testDBID,
		DirectoryID:      testDirID,
		LastCompleteOpen: &OpenRef{ID: 7, UUID: openUUID1},
		InProgressOpen:   &OpenRef{ID: 7, UUID: openUUID1},
	}
	block, err := MarshalBlock(meta)
	require.NoError(t, err)

	// Scribble over every padding byte; the declared length fences them off.
	declared := int(block[0])
	for i := 1 + declared; i < BlockSize; i++ {
		block[i] = byte(i)
	}

	got, err := UnmarshalBlock(block)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestUnmarshalBlockErrors(t *testing.T) {
	t.Parallel()

	t.Run("DeclaredLengthExceedsBlock", func(t *testing.T) {
		t.Parallel()
		block := make([]byte, BlockSize)
		copy(block, protowire.AppendVarint(nil, 600))
		_, err := UnmarshalBlock(block)
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})

	t.Run("Truncated", func(t *testing.T) {
		t.Parallel()
		block, err := MarshalBlock(&DirMeta{DatabaseID: testDBID, DirectoryID: testDirID})
		require.NoError(t, err)

		// A partial copy that cuts into the declared record.
		_, err = UnmarshalBlock(block[:20])
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})

	t.Run("MalformedRecord", func(t *testing.T) {
		t.Parallel()
		// Declares 3 content bytes that do not form a valid field.
		block := make([]byte, BlockSize)
		block[0] = 3
		block[1] = 0xff
		block[2] = 0xff
		block[3] = 0xff
		_, err := UnmarshalBlock(block)
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})

	t.Run("WrongUUIDLength", func(t *testing.T) {
		t.Parallel()
		var record []byte
		record = protowire.AppendTag(record, fieldDirectoryID, protowire.BytesType)
		record = protowire.AppendBytes(record, []byte{1, 2, 3})
		block, err := frameBlock(record)
		require.NoError(t, err)

		_, err = UnmarshalBlock(block)
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
		assert.Contains(t, err.Error(), "directory_id")
	})

	t.Run("OpenIDOverflow", func(t *testing.T) {
		t.Parallel()
		var open []byte
		open = protowire.AppendTag(open, openFieldID, protowire.VarintType)
		open = protowire.AppendVarint(open, 1<<40)
		var record []byte
		record = protowire.AppendTag(record, fieldInProgress, protowire.BytesType)
		record = protowire.AppendBytes(record, open)
		block, err := frameBlock(record)
		require.NoError(t, err)

		_, err = UnmarshalBlock(block)
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})

	t.Run("WrongWireTypeForIdentity", func(t *testing.T) {
		t.Parallel()
		var record []byte
		record = protowire.AppendTag(record, fieldDatabaseID, protowire.VarintType)
		record = protowire.AppendVarint(record, 12)
		block, err := frameBlock(record)
		require.NoError(t, err)

		_, err = UnmarshalBlock(block)
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})
}

// Records written by a newer version may carry fields this version does not
// know about; they must decode cleanly with the known fields intact.
func TestUnmarshalBlockSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	record := appendRecord(nil, &DirMeta{DatabaseID: testDBID, DirectoryID: testDirID})
	record = protowire.AppendTag(record, 9, protowire.VarintType)
	record = protowire.AppendVarint(record, 42)
	record = protowire.AppendTag(record, 10, protowire.BytesType)
	record = protowire.AppendBytes(record, []byte("future"))

	block, err := frameBlock(record)
	require.NoError(t, err)

	got, err := UnmarshalBlock(block)
	require.NoError(t, err)
	assert.Equal(t, testDBID, got.DatabaseID)
	assert.Equal(t, testDirID, got.DirectoryID)
	assert.Nil(t, got.LastCompleteOpen)
	assert.Nil(t, got.InProgressOpen)
}

func TestOpenRefEqual(t *testing.T) {
	t.Parallel()

	a := &OpenRef{ID: 3, UUID: openUUID1}
	b := &OpenRef{ID: 3, UUID: openUUID1}
	c := &OpenRef{ID: 3, UUID: openUUID2}
	d := &OpenRef{ID: 4, UUID: openUUID1}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))

	var nilRef *OpenRef
	assert.True(t, nilRef.Equal(nil))
	assert.False(t, nilRef.Equal(a))
}

func TestDirMetaClone(t *testing.T) {
	t.Parallel()

	orig := &DirMeta{
		DatabaseID:       testDBID,
		DirectoryID:      testDirID,
		LastCompleteOpen: &OpenRef{ID: 9, UUID: openUUID1},
		InProgressOpen:   &OpenRef{ID: 10, UUID: openUUID2},
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.InProgressOpen.ID = 99
	assert.Equal(t, uint32(10), orig.InProgressOpen.ID, "clone must not share OpenRef pointers")

	var nilMeta *DirMeta
	assert.Nil(t, nilMeta.Clone())
}
