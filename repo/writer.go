package repo

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"

	castorebinary "github.com/objstore/castore/internal/binary"
	"github.com/objstore/castore/internal/bufpool"
	"github.com/objstore/castore/internal/iocopy"
	castoreioutil "github.com/objstore/castore/internal/ioutil"
	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/object"
	"github.com/objstore/castore/objfile"
	"github.com/objstore/castore/trace"
	"github.com/objstore/castore/xattrs"
)

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

func sumHasher(h interface{ Sum([]byte) []byte }) hash.Checksum {
	var c hash.Checksum
	copy(c[:], h.Sum(nil))
	return c
}

// WriteMetadata hashes data to completion and installs it as a
// COMMIT/DIR_TREE/DIR_META object, returning its checksum.
func (r *Repository) WriteMetadata(ctx context.Context, kind hash.ObjectType, data io.Reader) (hash.Checksum, error) {
	return r.writeMetadata(ctx, kind, nil, data)
}

// WriteMetadataTrusted installs data as a kind object under the
// caller-supplied expected checksum. If the object already exists, data
// is never read.
func (r *Repository) WriteMetadataTrusted(ctx context.Context, kind hash.ObjectType, expected hash.Checksum, data io.Reader) (hash.Checksum, error) {
	return r.writeMetadata(ctx, kind, &expected, data)
}

func (r *Repository) writeMetadata(ctx context.Context, kind hash.ObjectType, expected *hash.Checksum, data io.Reader) (hash.Checksum, error) {
	if err := r.requireTransaction(); err != nil {
		return hash.Checksum{}, err
	}
	if err := checkCancelled(ctx); err != nil {
		return hash.Checksum{}, err
	}

	if expected != nil {
		if ok, _ := r.hasLooseObject(*expected, kind); ok {
			r.stats.recordMetadata(false)
			return *expected, nil
		}
	}

	tmp, err := r.createTempFile()
	if err != nil {
		return hash.Checksum{}, err
	}
	tmpName := tmp.Name()
	installed := false
	defer func() {
		if !installed {
			_ = tmp.Close()
			r.removeTempFile(tmpName)
		}
	}()

	if cf, ok := r.fs.(billy.Change); ok {
		_ = cf.Chmod(tmpName, 0644)
	}

	hw := objfile.NewWriter(tmp)
	if _, err := castoreioutil.Copy(hw, data); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: write tempfile: %w", err)
	}
	actual := hw.Hash()

	if expected != nil && actual != *expected {
		return hash.Checksum{}, fmt.Errorf("%w: metadata checksum mismatch: got %s want %s", ErrCorruptedObject, actual, expected)
	}

	if ok, _ := r.hasLooseObject(actual, kind); ok {
		r.stats.recordMetadata(false)
		return actual, nil
	}

	if err := tmp.Close(); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: close tempfile: %w", err)
	}

	relpath := ObjectPath(kind, r.opts.Mode, actual)
	if err := r.installTempFile(tmpName, relpath); err != nil {
		return hash.Checksum{}, err
	}
	installed = true

	r.stats.recordMetadata(true)
	trace.Object.Printf("wrote metadata object %s (%s)", actual, kind)
	return actual, nil
}

// WriteContent hashes info/xattrs/payload to completion and installs
// the resulting FILE object, returning its checksum. declaredLength is
// the payload's length, used only for stats accounting; pass 0 for
// symlinks (which have no payload).
func (r *Repository) WriteContent(ctx context.Context, info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64) (hash.Checksum, error) {
	return r.writeContent(ctx, nil, info, xattrList, payload, declaredLength)
}

// WriteContentTrusted installs payload as a FILE object under the
// caller-supplied expected checksum. If the object already exists,
// payload is never read.
func (r *Repository) WriteContentTrusted(ctx context.Context, expected hash.Checksum, info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64) (hash.Checksum, error) {
	return r.writeContent(ctx, &expected, info, xattrList, payload, declaredLength)
}

func (r *Repository) writeContent(ctx context.Context, expected *hash.Checksum, info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64) (hash.Checksum, error) {
	if err := r.requireTransaction(); err != nil {
		return hash.Checksum{}, err
	}
	if err := checkCancelled(ctx); err != nil {
		return hash.Checksum{}, err
	}
	if info.Kind != object.Regular && info.Kind != object.Symlink {
		return hash.Checksum{}, ErrUnsupportedFileType
	}

	var (
		csum hash.Checksum
		err  error
	)

	switch r.opts.Mode {
	case hash.ArchiveZ2:
		csum, err = r.writeArchiveContent(info, xattrList, payload, declaredLength, expected)
	default:
		if info.Kind == object.Symlink {
			csum, err = r.writeBareSymlink(info, xattrList, expected)
		} else {
			csum, err = r.writeBareRegular(info, xattrList, payload, declaredLength, expected)
		}
	}
	if err != nil {
		return hash.Checksum{}, err
	}

	trace.Object.Printf("wrote content object %s", csum)
	return csum, nil
}

// writeBareRegular stages a regular file for bare storage: the
// checksum covers the canonical header plus raw payload, but only the
// payload is written to the installed file — the header's
// uid/gid/mode/xattrs are applied to the filesystem entry itself, only
// after the checksum has been validated.
func (r *Repository) writeBareRegular(info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64, expected *hash.Checksum) (hash.Checksum, error) {
	if expected != nil {
		if ok, _ := r.hasLooseObject(*expected, hash.File); ok {
			r.stats.recordContent(false, declaredLength)
			return *expected, nil
		}
	}

	tmp, err := r.createTempFile()
	if err != nil {
		return hash.Checksum{}, err
	}
	tmpName := tmp.Name()
	installed := false
	defer func() {
		if !installed {
			_ = tmp.Close()
			r.removeTempFile(tmpName)
		}
	}()

	if cf, ok := r.fs.(billy.Change); ok {
		if err := cf.Chmod(tmpName, 0644); err != nil {
			return hash.Checksum{}, fmt.Errorf("repo: chmod tempfile: %w", err)
		}
	}

	h := hash.New()
	if err := object.EncodeContentHeader(h, info, xattrList); err != nil {
		return hash.Checksum{}, err
	}

	if _, err := castoreioutil.Copy(io.MultiWriter(h, tmp), payload); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: stream content payload: %w", err)
	}

	actual := sumHasher(h)
	if expected != nil && actual != *expected {
		return hash.Checksum{}, fmt.Errorf("%w: content checksum mismatch: got %s want %s", ErrCorruptedObject, actual, expected)
	}

	if ok, _ := r.hasLooseObject(actual, hash.File); ok {
		r.stats.recordContent(false, declaredLength)
		return actual, nil
	}

	if err := r.applyBareFileAttributes(tmpName, info, xattrList); err != nil {
		return hash.Checksum{}, err
	}
	if sf, ok := tmp.(interface{ Sync() error }); ok {
		if err := sf.Sync(); err != nil {
			return hash.Checksum{}, fmt.Errorf("repo: fsync tempfile: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: close tempfile: %w", err)
	}

	relpath := ObjectPath(hash.File, hash.Bare, actual)
	if err := r.installTempFile(tmpName, relpath); err != nil {
		return hash.Checksum{}, err
	}
	installed = true

	r.stats.recordContent(true, declaredLength)
	return actual, nil
}

// writeBareSymlink stages a symlink for bare storage. The checksum is
// a pure function of the header (symlinks carry no payload), so it is
// computed before any filesystem mutation, letting an already-stored
// symlink short-circuit without ever creating a temp symlink.
func (r *Repository) writeBareSymlink(info object.FileInfo, xattrList []object.XAttr, expected *hash.Checksum) (hash.Checksum, error) {
	h := hash.New()
	if err := object.EncodeContentHeader(h, info, xattrList); err != nil {
		return hash.Checksum{}, err
	}
	actual := sumHasher(h)

	if expected != nil && actual != *expected {
		return hash.Checksum{}, fmt.Errorf("%w: content checksum mismatch: got %s want %s", ErrCorruptedObject, actual, expected)
	}

	if ok, _ := r.hasLooseObject(actual, hash.File); ok {
		r.stats.recordContent(false, 0)
		return actual, nil
	}

	tmpRel, err := r.createTempSymlink(info.LinkTarget)
	if err != nil {
		return hash.Checksum{}, err
	}
	installed := false
	defer func() {
		if !installed {
			r.removeTempFile(tmpRel)
		}
	}()

	if err := r.applyBareSymlinkAttributes(tmpRel, info, xattrList); err != nil {
		return hash.Checksum{}, err
	}

	relpath := ObjectPath(hash.File, hash.Bare, actual)
	if err := r.installTempFile(tmpRel, relpath); err != nil {
		return hash.Checksum{}, err
	}
	installed = true

	r.stats.recordContent(true, 0)
	return actual, nil
}

// applyBareFileAttributes applies ownership, xattrs and the real mode
// to a regular file, in that order. A truncated or tampered stream
// could otherwise leave a transiently setuid tempfile on disk, so mode
// is the very last attribute applied.
func (r *Repository) applyBareFileAttributes(relpath string, info object.FileInfo, xattrList []object.XAttr) error {
	if cf, ok := r.fs.(billy.Change); ok {
		if err := cf.Chown(relpath, int(info.UID), int(info.GID)); err != nil {
			return fmt.Errorf("repo: chown %s: %w", relpath, err)
		}
	}
	if err := r.setXAttrs(relpath, xattrList); err != nil {
		return err
	}
	if cf, ok := r.fs.(billy.Change); ok {
		if err := cf.Chmod(relpath, modeFromUint32(info.Mode)); err != nil {
			return fmt.Errorf("repo: chmod %s: %w", relpath, err)
		}
	}
	return nil
}

// applyBareSymlinkAttributes applies ownership and xattrs to a symlink.
// Mode and fsync are skipped: lchmod has no portable equivalent and
// symlinks carry no permissions of their own.
func (r *Repository) applyBareSymlinkAttributes(relpath string, info object.FileInfo, xattrList []object.XAttr) error {
	if cf, ok := r.fs.(billy.Change); ok {
		if err := cf.Lchown(relpath, int(info.UID), int(info.GID)); err != nil {
			return fmt.Errorf("repo: lchown %s: %w", relpath, err)
		}
	}
	return r.setXAttrs(relpath, xattrList)
}

func (r *Repository) setXAttrs(relpath string, xattrList []object.XAttr) error {
	if len(xattrList) == 0 {
		return nil
	}
	pairs := make([]xattrs.Pair, len(xattrList))
	for i, x := range xattrList {
		pairs[i] = xattrs.Pair{Name: x.Name, Value: x.Value}
	}
	if err := xattrs.Set(r.osPath(relpath), pairs); err != nil {
		return fmt.Errorf("repo: set xattrs on %s: %w", relpath, err)
	}
	return nil
}

// writeArchiveContent stages a content object for archive-z2 storage:
// a length-prefixed header variant followed (for regular files only)
// by a raw-deflate level-9 payload, all hashed as one stream. The
// tempfile is set to mode 0644 when it is created; the entry's own
// ownership, xattrs and mode are never applied to the installed file,
// which stays owned by the current process.
func (r *Repository) writeArchiveContent(info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64, expected *hash.Checksum) (hash.Checksum, error) {
	if expected != nil {
		if ok, _ := r.hasLooseObject(*expected, hash.File); ok {
			r.stats.recordContent(false, declaredLength)
			return *expected, nil
		}
	}

	headerBuf := bufpool.GetBytesBuffer()
	defer bufpool.PutBytesBuffer(headerBuf)
	if err := object.EncodeContentHeader(headerBuf, info, xattrList); err != nil {
		return hash.Checksum{}, err
	}

	tmp, err := r.createTempFile()
	if err != nil {
		return hash.Checksum{}, err
	}
	tmpName := tmp.Name()
	installed := false
	defer func() {
		if !installed {
			_ = tmp.Close()
			r.removeTempFile(tmpName)
		}
	}()

	if cf, ok := r.fs.(billy.Change); ok {
		_ = cf.Chmod(tmpName, 0644)
	}

	hw := objfile.NewWriter(tmp)
	if err := castorebinary.WriteUint32(hw, uint32(headerBuf.Len())); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: write archive header size: %w", err)
	}
	if _, err := hw.Write(headerBuf.Bytes()); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: write archive header: %w", err)
	}

	if info.Kind == object.Regular {
		fw := bufpool.GetFlateWriter(hw)
		if _, err := iocopy.Copy(fw, payload); err != nil {
			bufpool.PutFlateWriter(fw)
			return hash.Checksum{}, fmt.Errorf("repo: compress content payload: %w", err)
		}
		if err := fw.Close(); err != nil {
			bufpool.PutFlateWriter(fw)
			return hash.Checksum{}, fmt.Errorf("repo: flush content payload: %w", err)
		}
		bufpool.PutFlateWriter(fw)
	}

	actual := hw.Hash()
	if expected != nil && actual != *expected {
		return hash.Checksum{}, fmt.Errorf("%w: content checksum mismatch: got %s want %s", ErrCorruptedObject, actual, expected)
	}

	if ok, _ := r.hasLooseObject(actual, hash.File); ok {
		r.stats.recordContent(false, declaredLength)
		return actual, nil
	}

	if err := tmp.Close(); err != nil {
		return hash.Checksum{}, fmt.Errorf("repo: close tempfile: %w", err)
	}

	relpath := ObjectPath(hash.File, hash.ArchiveZ2, actual)
	if err := r.installTempFile(tmpName, relpath); err != nil {
		return hash.Checksum{}, err
	}
	installed = true

	r.stats.recordContent(true, declaredLength)
	return actual, nil
}

// modeFromUint32 converts a raw POSIX mode (as gathered from a stat
// call or an ingested FileInfo) to os.FileMode, translating the
// setuid/setgid/sticky bits to Go's non-numerically-compatible
// encoding of them.
func modeFromUint32(m uint32) os.FileMode {
	mode := os.FileMode(m & 0777)
	if m&04000 != 0 {
		mode |= os.ModeSetuid
	}
	if m&02000 != 0 {
		mode |= os.ModeSetgid
	}
	if m&01000 != 0 {
		mode |= os.ModeSticky
	}
	return mode
}
