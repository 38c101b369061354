package ioutils

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, EnsureDir(fs, "/root/Biology/Revision Notes"))
	require.NoError(t, EnsureDir(fs, "/root/Biology/Revision Notes"))

	ok, err := Exists(fs, "/root/Biology/Revision Notes")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEnsureDir_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := EnsureDir(fs, "/root/Biology")
	require.Error(t, err)

	var fsErr *FilesystemError
	require.True(t, errors.As(err, &fsErr))
	require.Equal(t, "mkdir", fsErr.Op)
	require.Equal(t, "/root/Biology", fsErr.Path)
}

func TestExists_Missing(t *testing.T) {
	ok, err := Exists(afero.NewMemMapFs(), "/nope.pdf")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveIfExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.pdf.part", []byte("x"), 0644))

	require.NoError(t, RemoveIfExists(fs, "/a.pdf.part"))
	require.NoError(t, RemoveIfExists(fs, "/a.pdf.part"))

	ok, err := Exists(fs, "/a.pdf.part")
	require.NoError(t, err)
	require.False(t, ok)
}
