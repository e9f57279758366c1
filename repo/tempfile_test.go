package repo

import (
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, opts Options) *Repository {
	t.Helper()
	fs := osfs.New(t.TempDir())
	r, err := New(fs, opts)
	require.NoError(t, err)
	return r
}

func TestCreateTempFile(t *testing.T) {
	r := newTestRepo(t, Options{})

	f, err := r.createTempFile()
	require.NoError(t, err)
	defer f.Close()

	_, err = r.fs.Stat(f.Name())
	require.NoError(t, err)
}

func TestCreateTempSymlink(t *testing.T) {
	r := newTestRepo(t, Options{})

	relpath, err := r.createTempSymlink("some/target")
	require.NoError(t, err)

	target, err := r.fs.Readlink(relpath)
	require.NoError(t, err)
	require.Equal(t, "some/target", target)
}

func TestInstallTempFileCreatesFanoutDir(t *testing.T) {
	r := newTestRepo(t, Options{})

	tmp, err := r.createTempFile()
	require.NoError(t, err)
	_, err = tmp.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, tmp.Close())

	objPath := "objects/aa/bbbb.file"
	require.NoError(t, r.installTempFile(tmp.Name(), objPath))

	fi, err := r.fs.Stat(objPath)
	require.NoError(t, err)
	require.Equal(t, int64(len("payload")), fi.Size())
}

func TestInstallTempFileDuplicateIsNoOp(t *testing.T) {
	r := newTestRepo(t, Options{})
	objPath := "objects/aa/bbbb.file"

	tmp1, err := r.createTempFile()
	require.NoError(t, err)
	require.NoError(t, tmp1.Close())
	require.NoError(t, r.installTempFile(tmp1.Name(), objPath))

	tmp2, err := r.createTempFile()
	require.NoError(t, err)
	require.NoError(t, tmp2.Close())
	require.NoError(t, r.installTempFile(tmp2.Name(), objPath))

	_, err = r.fs.Stat(tmp2.Name())
	require.Error(t, err)
}
