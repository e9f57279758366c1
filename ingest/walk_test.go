package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/require"

	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/mtree"
	"github.com/objstore/castore/object"
)

type fakeWriter struct {
	objects  map[hash.Checksum][]byte
	next     byte
	devinoOK map[[2]uint64]hash.Checksum
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		objects:  make(map[hash.Checksum][]byte),
		devinoOK: make(map[[2]uint64]hash.Checksum),
	}
}

func (w *fakeWriter) WriteMetadata(_ context.Context, _ hash.ObjectType, data io.Reader) (hash.Checksum, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return hash.Checksum{}, err
	}
	return w.store(b), nil
}

func (w *fakeWriter) WriteContent(_ context.Context, _ object.FileInfo, _ []object.XAttr, payload io.Reader, _ int64) (hash.Checksum, error) {
	var b []byte
	if payload != nil {
		var err error
		b, err = io.ReadAll(payload)
		if err != nil {
			return hash.Checksum{}, err
		}
	}
	return w.store(b), nil
}

func (w *fakeWriter) store(b []byte) hash.Checksum {
	var c hash.Checksum
	w.next++
	c[0] = w.next
	c[1] = byte(len(b))
	w.objects[c] = b
	return c
}

func (w *fakeWriter) DevinoLookup(dev, ino uint64) (hash.Checksum, bool) {
	csum, ok := w.devinoOK[[2]uint64{dev, ino}]
	return csum, ok
}

func TestWriteDirectoryToMtreeBasic(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0644))

	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	err := WriteDirectoryToMtree(context.Background(), w, Dir{FS: fs, Path: "."}, tree, nil)
	require.NoError(t, err)

	_, ok := tree.GetMetadataChecksum()
	require.True(t, ok)

	files := tree.GetFiles()
	require.Contains(t, files, "a.txt")

	subdirs := tree.GetSubdirs()
	require.Contains(t, subdirs, "sub")
	subFiles := subdirs["sub"].GetFiles()
	require.Contains(t, subFiles, "b.txt")
}

func TestWriteDirectoryToMtreeFilterSkipsPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.txt"), []byte("b"), 0644))

	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	modifier := &Modifier{
		Filter: func(path string, info *Info) Verdict {
			if path == "/skip.txt" {
				return Skip
			}
			return Allow
		},
	}

	err := WriteDirectoryToMtree(context.Background(), w, Dir{FS: fs, Path: "."}, tree, modifier)
	require.NoError(t, err)

	files := tree.GetFiles()
	require.Contains(t, files, "keep.txt")
	require.NotContains(t, files, "skip.txt")
}

func TestWriteDirectoryToMtreeFilterPrunesSubtree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "pruned"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pruned", "hidden.txt"), []byte("h"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.txt"), []byte("k"), 0644))

	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	var prunedInfo Info
	modifier := &Modifier{
		Filter: func(path string, info *Info) Verdict {
			if path == "/pruned" {
				prunedInfo = *info
				return Skip
			}
			return Allow
		},
	}

	err := WriteDirectoryToMtree(context.Background(), w, Dir{FS: fs, Path: "."}, tree, modifier)
	require.NoError(t, err)

	require.NotContains(t, tree.GetSubdirs(), "pruned")
	require.Contains(t, tree.GetFiles(), "kept.txt")

	// The filter saw the directory's real mode, not a zeroed probe.
	require.Equal(t, uint32(0700), prunedInfo.Mode&0777)
}

func TestWriteDirectoryToMtreeReusesKnownSubtree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("c"), 0644))

	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	known := Resolved{Contents: hash.Checksum{9}, Metadata: hash.Checksum{8}}

	err := WriteDirectoryToMtree(context.Background(), w, Dir{FS: fs, Path: ".", Known: &known}, tree, nil)
	require.NoError(t, err)

	contents, ok := tree.GetContentsChecksum()
	require.True(t, ok)
	require.Equal(t, known.Contents, contents)

	meta, ok := tree.GetMetadataChecksum()
	require.True(t, ok)
	require.Equal(t, known.Metadata, meta)

	require.True(t, tree.Empty())
}

func TestWriteDirectoryToMtreeSkipsXAttrsFlag(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0644))

	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	modifier := &Modifier{Flags: SkipXAttrs}
	err := WriteDirectoryToMtree(context.Background(), w, Dir{FS: fs, Path: "."}, tree, modifier)
	require.NoError(t, err)

	files := tree.GetFiles()
	require.Contains(t, files, "f.txt")
}

func TestWriteDirectoryToMtreeSymlink(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target.txt"), []byte("t"), 0644))
	require.NoError(t, os.Symlink("target.txt", filepath.Join(root, "link")))

	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	err := WriteDirectoryToMtree(context.Background(), w, Dir{FS: fs, Path: "."}, tree, nil)
	require.NoError(t, err)

	files := tree.GetFiles()
	require.Contains(t, files, "link")
	require.Contains(t, files, "target.txt")
}

func TestWriteDirectoryToMtreeCancelledContext(t *testing.T) {
	root := t.TempDir()
	fs := osfs.New(root)
	w := newFakeWriter()
	tree := mtree.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteDirectoryToMtree(ctx, w, Dir{FS: fs, Path: "."}, tree, nil)
	require.Error(t, err)
}
