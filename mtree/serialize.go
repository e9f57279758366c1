package mtree

import (
	"context"
	"fmt"
	"io"

	"github.com/objstore/castore/internal/bufpool"
	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/object"
)

// MetadataWriter is the subset of *repo.Repository that serialization
// needs. Accepting the interface here rather than a concrete type
// avoids an import cycle between mtree and repo (ingest wires the two
// together).
type MetadataWriter interface {
	WriteMetadata(ctx context.Context, kind hash.ObjectType, data io.Reader) (hash.Checksum, error)
}

// Write folds t, recursively, into a sorted DIR_TREE object and writes
// it through w. It returns the checksum of the root DIR_TREE. Each
// subdirectory's DIR_TREE is written exactly once regardless of how
// many times Write revisits a node with an unchanged cache, since a
// previously computed contents checksum short-circuits the recursion.
//
// A subdirectory with no metadata checksum set is an internal
// invariant violation: every directory the ingest walk stages is
// assigned metadata before or during the same walk that adds its entry
// to the parent, so this can only happen from a caller building a Tree
// by hand incorrectly. Write panics rather than returning an error for
// that case.
func Write(ctx context.Context, w MetadataWriter, t *Tree) (hash.Checksum, error) {
	if csum, ok := t.GetContentsChecksum(); ok {
		return csum, nil
	}

	var tree object.DirTree

	for name, csum := range t.files {
		tree.Files = append(tree.Files, object.FileEntry{Name: name, Checksum: csum})
	}

	for name, sub := range t.subdirs {
		contentsCsum, err := Write(ctx, w, sub)
		if err != nil {
			return hash.Checksum{}, fmt.Errorf("mtree: write subdir %q: %w", name, err)
		}

		metaCsum, ok := sub.GetMetadataChecksum()
		if !ok {
			panic(fmt.Sprintf("mtree: subdir %q has no metadata checksum", name))
		}

		tree.Subdirs = append(tree.Subdirs, object.SubdirEntry{
			Name:     name,
			Contents: contentsCsum,
			Metadata: metaCsum,
		})
	}

	buf := bufpool.GetBytesBuffer()
	defer bufpool.PutBytesBuffer(buf)
	if err := object.EncodeDirTree(buf, tree); err != nil {
		return hash.Checksum{}, fmt.Errorf("mtree: encode dir tree: %w", err)
	}

	csum, err := w.WriteMetadata(ctx, hash.DirTree, buf)
	if err != nil {
		return hash.Checksum{}, fmt.Errorf("mtree: write dir tree: %w", err)
	}

	t.SetContentsChecksum(csum)
	return csum, nil
}
