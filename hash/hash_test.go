package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromHexRoundTrip(t *testing.T) {
	in := strings.Repeat("ab", Size)
	c, err := FromHex(in)
	require.NoError(t, err)
	require.Equal(t, in, c.String())
}

func TestFromHexWrongLength(t *testing.T) {
	_, err := FromHex("ab")
	require.ErrorIs(t, err, ErrInvalidChecksumLength)
}

func TestFanout(t *testing.T) {
	c, err := FromHex(strings.Repeat("ab", Size))
	require.NoError(t, err)

	prefix, rest := c.Fanout()
	require.Equal(t, "ab", prefix)
	require.Len(t, rest, 62)
}

func TestSortIsStrcmp(t *testing.T) {
	a, _ := FromHex(strings.Repeat("aa", Size))
	b, _ := FromHex(strings.Repeat("bb", Size))
	c, _ := FromHex(strings.Repeat("cc", Size))

	cs := []Checksum{c, a, b}
	Sort(cs)

	require.Equal(t, []Checksum{a, b, c}, cs)
}

func TestSuffixByModeAndType(t *testing.T) {
	require.Equal(t, ".commit", Commit.Suffix(Bare))
	require.Equal(t, ".dirtree", DirTree.Suffix(Bare))
	require.Equal(t, ".dirmeta", DirMeta.Suffix(Bare))
	require.Equal(t, ".file", File.Suffix(Bare))
	require.Equal(t, ".filez", File.Suffix(ArchiveZ2))
}

func TestZero(t *testing.T) {
	require.True(t, Zero.IsZero())

	var other Checksum
	other[0] = 1
	require.False(t, other.IsZero())
}
