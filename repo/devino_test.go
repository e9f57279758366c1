package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/object"
)

func TestScanHardlinksPopulatesCache(t *testing.T) {
	r := newTestRepo(t, Options{})
	_, err := r.PrepareTransaction()
	require.NoError(t, err)

	info := object.FileInfo{Kind: object.Regular, Mode: 0644}
	csum, err := r.WriteContent(context.Background(), info, nil, strings.NewReader("payload"), 7)
	require.NoError(t, err)

	require.NoError(t, r.ScanHardlinks(context.Background()))

	relpath := ObjectPath(hash.File, r.opts.Mode, csum)
	fi, err := os.Stat(filepath.Join(r.fs.Root(), relpath))
	require.NoError(t, err)

	dev, ino, ok := devinoFromFileInfo(fi)
	require.True(t, ok)

	got, found := r.DevinoLookup(dev, ino)
	require.True(t, found)
	require.Equal(t, csum, got)
}

func TestScanHardlinksParentFirst(t *testing.T) {
	parent := newTestRepo(t, Options{})
	_, err := parent.PrepareTransaction()
	require.NoError(t, err)

	info := object.FileInfo{Kind: object.Regular, Mode: 0644}
	csum, err := parent.WriteContent(context.Background(), info, nil, strings.NewReader("shared"), 6)
	require.NoError(t, err)

	child := newTestRepo(t, Options{ParentStore: parent})
	_, err = child.PrepareTransaction()
	require.NoError(t, err)

	require.NoError(t, child.ScanHardlinks(context.Background()))

	relpath := ObjectPath(hash.File, parent.opts.Mode, csum)
	fi, err := os.Stat(filepath.Join(parent.fs.Root(), relpath))
	require.NoError(t, err)
	dev, ino, ok := devinoFromFileInfo(fi)
	require.True(t, ok)

	got, found := child.DevinoLookup(dev, ino)
	require.True(t, found)
	require.Equal(t, csum, got)
}

// TestScanHardlinksIgnoresArchiveMode documents the bug-for-bug behavior:
// under ArchiveZ2 the on-disk suffix is ".filez", so the scan — which
// only ever looks for ".file" — never finds anything to cache.
func TestScanHardlinksIgnoresArchiveMode(t *testing.T) {
	r := newTestRepo(t, Options{Mode: hash.ArchiveZ2})
	_, err := r.PrepareTransaction()
	require.NoError(t, err)

	info := object.FileInfo{Kind: object.Regular, Mode: 0644}
	csum, err := r.WriteContent(context.Background(), info, nil, strings.NewReader("payload"), 7)
	require.NoError(t, err)

	require.NoError(t, r.ScanHardlinks(context.Background()))

	relpath := ObjectPath(hash.File, r.opts.Mode, csum)
	_, err = os.Stat(filepath.Join(r.fs.Root(), relpath))
	require.NoError(t, err)

	fi, err := os.Stat(filepath.Join(r.fs.Root(), relpath))
	require.NoError(t, err)
	dev, ino, _ := devinoFromFileInfo(fi)

	_, found := r.DevinoLookup(dev, ino)
	require.False(t, found)
}
