package mtree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objstore/castore/hash"
)

func checksumOf(b byte) hash.Checksum {
	var c hash.Checksum
	c[0] = b
	return c
}

func TestTreeReplaceFile(t *testing.T) {
	tr := New()
	require.NoError(t, tr.ReplaceFile("a.txt", checksumOf(1)))

	files := tr.GetFiles()
	require.Equal(t, checksumOf(1), files["a.txt"])
}

func TestTreeReplaceFileInvalidName(t *testing.T) {
	tr := New()
	require.ErrorIs(t, tr.ReplaceFile("", checksumOf(1)), ErrInvalidName)
	require.ErrorIs(t, tr.ReplaceFile("a/b", checksumOf(1)), ErrInvalidName)
	require.ErrorIs(t, tr.ReplaceFile(".", checksumOf(1)), ErrInvalidName)
	require.ErrorIs(t, tr.ReplaceFile("..", checksumOf(1)), ErrInvalidName)

	_, err := tr.EnsureDir("..")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestTreeEnsureDirIdempotent(t *testing.T) {
	tr := New()
	sub1, err := tr.EnsureDir("sub")
	require.NoError(t, err)
	sub2, err := tr.EnsureDir("sub")
	require.NoError(t, err)
	require.Same(t, sub1, sub2)
}

func TestTreeNameCollision(t *testing.T) {
	tr := New()
	require.NoError(t, tr.ReplaceFile("x", checksumOf(1)))
	_, err := tr.EnsureDir("x")
	require.ErrorIs(t, err, ErrNameIsFile)

	tr2 := New()
	_, err = tr2.EnsureDir("y")
	require.NoError(t, err)
	require.ErrorIs(t, tr2.ReplaceFile("y", checksumOf(1)), ErrNameIsDir)
}

func TestTreeContentsChecksumInvalidatedByMutation(t *testing.T) {
	tr := New()
	tr.SetContentsChecksum(checksumOf(9))

	_, ok := tr.GetContentsChecksum()
	require.True(t, ok)

	require.NoError(t, tr.ReplaceFile("a", checksumOf(1)))
	_, ok = tr.GetContentsChecksum()
	require.False(t, ok)
}

func TestTreeEmpty(t *testing.T) {
	tr := New()
	require.True(t, tr.Empty())

	require.NoError(t, tr.ReplaceFile("a", checksumOf(1)))
	require.False(t, tr.Empty())
}

func TestTreeMetadataChecksum(t *testing.T) {
	tr := New()
	_, ok := tr.GetMetadataChecksum()
	require.False(t, ok)

	tr.SetMetadataChecksum(checksumOf(5))
	got, ok := tr.GetMetadataChecksum()
	require.True(t, ok)
	require.Equal(t, checksumOf(5), got)
}
