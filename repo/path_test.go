package repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objstore/castore/hash"
)

func TestObjectPathFanout(t *testing.T) {
	csum, err := hash.FromHex("ab" + strings.Repeat("cd", 31))
	require.NoError(t, err)

	require.Equal(t,
		"objects/ab/"+strings.Repeat("cd", 31)+".commit",
		ObjectPath(hash.Commit, hash.Bare, csum))
	require.Equal(t,
		"objects/ab/"+strings.Repeat("cd", 31)+".file",
		ObjectPath(hash.File, hash.Bare, csum))
	require.Equal(t,
		"objects/ab/"+strings.Repeat("cd", 31)+".filez",
		ObjectPath(hash.File, hash.ArchiveZ2, csum))
}

func TestObjectPathMetadataIgnoresMode(t *testing.T) {
	csum, err := hash.FromHex(strings.Repeat("0f", 32))
	require.NoError(t, err)

	require.Equal(t,
		ObjectPath(hash.DirTree, hash.Bare, csum),
		ObjectPath(hash.DirTree, hash.ArchiveZ2, csum))
}

func TestUncompressedObjectCachePath(t *testing.T) {
	csum, err := hash.FromHex("ab" + strings.Repeat("cd", 31))
	require.NoError(t, err)

	require.Equal(t,
		"uncompressed-objects-cache/objects/ab/"+strings.Repeat("cd", 31)+".file",
		UncompressedObjectCachePath(csum))
}

func TestFanoutDir(t *testing.T) {
	csum, err := hash.FromHex("ab" + strings.Repeat("cd", 31))
	require.NoError(t, err)
	require.Equal(t, "objects/ab", fanoutDir(csum))
}
