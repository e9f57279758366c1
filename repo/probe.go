package repo

import "github.com/objstore/castore/hash"

// hasLooseObject answers "does the store already hold object csum of
// kind?", walking to the parent repository on miss. It is side-effect
// free. The object path is probed with Lstat, so a stored symlink
// object counts as present even when its target does not resolve.
func (r *Repository) hasLooseObject(csum hash.Checksum, kind hash.ObjectType) (bool, string) {
	relpath := ObjectPath(kind, r.opts.Mode, csum)
	if _, err := r.fs.Lstat(relpath); err == nil {
		return true, relpath
	}

	if r.opts.ParentStore != nil {
		return r.opts.ParentStore.hasLooseObject(csum, kind)
	}

	return false, relpath
}

// HasObject reports whether this repository (or a parent) already
// stores the object identified by csum under kind.
func (r *Repository) HasObject(csum hash.Checksum, kind hash.ObjectType) bool {
	ok, _ := r.hasLooseObject(csum, kind)
	return ok
}
