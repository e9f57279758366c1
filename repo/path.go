package repo

import (
	"path"

	"github.com/objstore/castore/hash"
)

// objectsDir and tmpDir are the two top-level directories a Repository
// owns, relative to its billy.Filesystem root.
const (
	objectsDir = "objects"
	tmpDir     = "tmp"
)

// ObjectPath returns the canonical relative path of the object
// identified by csum, for the given kind stored under mode. Fanout is
// always exactly two hex characters.
func ObjectPath(kind hash.ObjectType, mode hash.Mode, csum hash.Checksum) string {
	prefix, rest := csum.Fanout()
	suffix := kind.Suffix(mode)
	return path.Join(objectsDir, prefix, rest+suffix)
}

// fanoutDir returns the relative directory that ObjectPath's file
// lives in, i.e. "objects/<prefix>".
func fanoutDir(csum hash.Checksum) string {
	prefix, _ := csum.Fanout()
	return path.Join(objectsDir, prefix)
}

// uncompressedObjectsCacheDir is the companion tree archive-mode callers
// keep uncompressed copies of content objects under.
const uncompressedObjectsCacheDir = "uncompressed-objects-cache"

// UncompressedObjectCachePath returns the relative path where an
// archive-mode caller would cache the uncompressed copy of the content
// object identified by csum. This core never writes that path; the
// helper only resolves it.
func UncompressedObjectCachePath(csum hash.Checksum) string {
	prefix, rest := csum.Fanout()
	return path.Join(uncompressedObjectsCacheDir, objectsDir, prefix, rest+hash.File.Suffix(hash.Bare))
}
