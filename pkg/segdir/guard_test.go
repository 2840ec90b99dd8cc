package segdir

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goshawk-nvr/goshawk/pkg/dirmeta"
)

func TestCheckIdentity(t *testing.T) {
	t.Parallel()

	dbID := uuid.MustParse("6c9aa995-a0d6-4a2c-8f5a-3a2f6b2c9d01")
	dirID := uuid.MustParse("e2b3f5a1-67a3-4b8a-9d2e-1f4c5b6a7d02")
	otherDB := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	otherDir := uuid.MustParse("99999999-8888-7777-6666-555555555555")

	record := func(db, dir uuid.UUID) *dirmeta.DirMeta {
		return &dirmeta.DirMeta{DatabaseID: db, DirectoryID: dir}
	}

	t.Run("Match", func(t *testing.T) {
		t.Parallel()
		check := CheckIdentity(record(dbID, dirID), dbID, dirID)
		assert.True(t, check.OK())
		assert.False(t, check.Authoritative())
		assert.NoError(t, check.Err("verify", "/data/a"))
	})

	t.Run("DatabaseMismatchIsDiagnostic", func(t *testing.T) {
		t.Parallel()
		check := CheckIdentity(record(otherDB, dirID), dbID, dirID)
		assert.False(t, check.OK())
		assert.Equal(t, MismatchDatabase, check.Kind)
		assert.False(t, check.Authoritative())
		assert.Equal(t, dbID, check.Expected)
		assert.Equal(t, otherDB, check.Actual)

		err := check.Err("verify", "/data/a")
		require.Error(t, err)
		assert.True(t, IsIdentityMismatch(err))
		assert.Contains(t, err.Error(), otherDB.String())
	})

	t.Run("DirectoryMismatchIsAuthoritative", func(t *testing.T) {
		t.Parallel()
		check := CheckIdentity(record(dbID, otherDir), dbID, dirID)
		assert.False(t, check.OK())
		assert.Equal(t, MismatchDirectory, check.Kind)
		assert.True(t, check.Authoritative())

		err := check.Err("verify", "/data/a")
		require.Error(t, err)
		assert.True(t, IsIdentityMismatch(err))
	})

	t.Run("DirectoryMismatchWinsOverDatabase", func(t *testing.T) {
		t.Parallel()
		check := CheckIdentity(record(otherDB, otherDir), dbID, dirID)
		assert.Equal(t, MismatchDirectory, check.Kind)
		assert.True(t, check.Authoritative())
	})

	t.Run("ZeroDatabaseIDPredatesAttachment", func(t *testing.T) {
		t.Parallel()
		check := CheckIdentity(record(uuid.Nil, dirID), dbID, dirID)
		assert.True(t, check.OK(), "unattached directory must not read as foreign")
	})

	t.Run("ZeroDirectoryIDNeverMatches", func(t *testing.T) {
		t.Parallel()
		check := CheckIdentity(record(dbID, uuid.Nil), dbID, dirID)
		assert.Equal(t, MismatchDirectory, check.Kind)
		assert.True(t, check.Authoritative())
	})
}
