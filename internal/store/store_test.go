package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeweld/weld/internal/ir"
)

func imagePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "app"+ImageExt)
}

func TestOpenWritableConfiguresDatabase(t *testing.T) {
	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1")) // NORMAL
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpenWritableIsIdempotent(t *testing.T) {
	path := imagePath(t)

	s, err := OpenWritable(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenWritable(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
}

func TestOpenRequiresExistingImage(t *testing.T) {
	_, err := Open(imagePath(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open image")
}

func TestOpenReadOnlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	path := imagePath(t)

	s, err := OpenWritable(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteModule(ctx, ir.NewModule("app", "1.0")))
	require.NoError(t, s.Close())

	ro, err := Open(path)
	require.NoError(t, err)
	defer ro.Close()

	err = ro.WriteModule(ctx, ir.NewModule("app", "2.0"))
	require.ErrorIs(t, err, ErrReadOnly)

	// The stored module is still the original.
	m, err := ro.ReadModule(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0", m.Version)
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := imagePath(t)

	s, err := OpenWritable(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")

	_, err = OpenWritable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestEmptyImageHoldsNoModule(t *testing.T) {
	s, err := OpenWritable(imagePath(t))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadModule(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds no module")

	_, err = s.Fingerprint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds no module")
}
