package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridx/internal/base"
)

func TestOpenMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "nope"), false)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestCreateAndReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pages")
	f, err := Open(path, true)
	require.NoError(t, err)

	assert.Equal(t, base.InvalidPageID, f.FirstPageNo())
	assert.Equal(t, base.PageID(0), f.NumPages())

	id, err := f.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, base.PageID(1), id)
	assert.Equal(t, base.PageID(1), f.FirstPageNo())

	page := &base.Page{}
	copy(page.Data[:], "hello")
	require.NoError(t, f.WritePage(id, page))
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	f, err = Open(path, false)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, base.PageID(1), f.NumPages())
	got := &base.Page{}
	require.NoError(t, f.ReadPage(id, got))
	assert.Equal(t, page.Data, got.Data)
}

func TestCreateExistingFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pages")
	f, err := Open(path, true)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(path, true)
	assert.Error(t, err)
}

func TestReadOutOfRange(t *testing.T) {
	t.Parallel()

	f, err := Open(filepath.Join(t.TempDir(), "pages"), true)
	require.NoError(t, err)
	defer f.Close()

	page := &base.Page{}
	assert.ErrorIs(t, f.ReadPage(1, page), ErrInvalidPage)
	assert.ErrorIs(t, f.ReadPage(base.InvalidPageID, page), ErrInvalidPage)
	assert.ErrorIs(t, f.WritePage(1, page), ErrInvalidPage)
}

func TestOpenRejectsUnalignedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ragged")
	require.NoError(t, os.WriteFile(path, make([]byte, base.PageSize+1), 0600))

	_, err := Open(path, false)
	assert.ErrorIs(t, err, ErrCorruptFile)
}

func TestClosedFile(t *testing.T) {
	t.Parallel()

	f, err := Open(filepath.Join(t.TempDir(), "pages"), true)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close()) // idempotent

	_, err = f.AllocatePage()
	assert.ErrorIs(t, err, ErrFileClosed)
	assert.ErrorIs(t, f.Sync(), ErrFileClosed)
}
