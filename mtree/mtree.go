// Package mtree implements the in-memory staging tree that directory
// ingest writes into before it is folded down into DIR_TREE objects.
package mtree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/objstore/castore/hash"
)

var (
	// ErrInvalidName is returned for a name that is empty, "." or "..",
	// or contains a path separator.
	ErrInvalidName = errors.New("mtree: invalid name")
	// ErrNameIsDir is returned when a file operation targets a name that
	// is already a subdirectory.
	ErrNameIsDir = errors.New("mtree: name is a directory")
	// ErrNameIsFile is returned when a directory operation targets a
	// name that is already a file.
	ErrNameIsFile = errors.New("mtree: name is a file")
)

// Tree is a mutable, in-memory directory: the staging structure the
// ingest walk populates and Write folds into a DIR_TREE object graph.
// A Tree is not
// safe for concurrent use; callers serialize access to a given
// subtree themselves (ingest walks one directory at a time).
type Tree struct {
	files   map[string]hash.Checksum
	subdirs map[string]*Tree

	metadataChecksum *hash.Checksum
	contentsChecksum *hash.Checksum
}

// New returns an empty Tree with no metadata checksum set.
func New() *Tree {
	return &Tree{
		files:   make(map[string]hash.Checksum),
		subdirs: make(map[string]*Tree),
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// ReplaceFile sets (or overwrites) the checksum of the regular file or
// symlink named name, content-addressed by csum.
func (t *Tree) ReplaceFile(name string, csum hash.Checksum) error {
	if err := validName(name); err != nil {
		return err
	}
	if _, isDir := t.subdirs[name]; isDir {
		return fmt.Errorf("%w: %q", ErrNameIsDir, name)
	}

	t.files[name] = csum
	t.contentsChecksum = nil
	return nil
}

// EnsureDir returns the subdirectory named name, creating an empty one
// if it does not already exist.
func (t *Tree) EnsureDir(name string) (*Tree, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if _, isFile := t.files[name]; isFile {
		return nil, fmt.Errorf("%w: %q", ErrNameIsFile, name)
	}

	sub, ok := t.subdirs[name]
	if !ok {
		sub = New()
		t.subdirs[name] = sub
		t.contentsChecksum = nil
	}
	return sub, nil
}

// SetMetadataChecksum records the DIR_META checksum applicable to this
// directory's own attributes (not its contents).
func (t *Tree) SetMetadataChecksum(csum hash.Checksum) {
	t.metadataChecksum = &csum
}

// GetMetadataChecksum returns the directory's DIR_META checksum, if
// one has been set.
func (t *Tree) GetMetadataChecksum() (hash.Checksum, bool) {
	if t.metadataChecksum == nil {
		return hash.Checksum{}, false
	}
	return *t.metadataChecksum, true
}

// SetContentsChecksum caches the DIR_TREE checksum for this directory,
// as computed by a prior Write call. Any further mutation
// (ReplaceFile, EnsureDir of a new name) invalidates the cache.
func (t *Tree) SetContentsChecksum(csum hash.Checksum) {
	t.contentsChecksum = &csum
}

// GetContentsChecksum returns the cached DIR_TREE checksum, if the
// tree has not been mutated since it was last computed.
func (t *Tree) GetContentsChecksum() (hash.Checksum, bool) {
	if t.contentsChecksum == nil {
		return hash.Checksum{}, false
	}
	return *t.contentsChecksum, true
}

// GetFiles returns a snapshot of the directory's direct file entries.
func (t *Tree) GetFiles() map[string]hash.Checksum {
	out := make(map[string]hash.Checksum, len(t.files))
	for name, csum := range t.files {
		out[name] = csum
	}
	return out
}

// GetSubdirs returns the directory's direct subdirectories, keyed by
// name. The returned map aliases the tree's own storage; callers must
// not mutate it directly.
func (t *Tree) GetSubdirs() map[string]*Tree {
	return t.subdirs
}

// Empty reports whether the directory has no files and no
// subdirectories.
func (t *Tree) Empty() bool {
	return len(t.files) == 0 && len(t.subdirs) == 0
}
