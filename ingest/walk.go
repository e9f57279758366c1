package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"syscall"

	"github.com/go-git/go-billy/v5"

	"github.com/objstore/castore/internal/bufpool"
	"github.com/objstore/castore/hash"
	"github.com/objstore/castore/mtree"
	"github.com/objstore/castore/object"
	"github.com/objstore/castore/xattrs"
)

// Writer is the subset of *repo.Repository a directory walk needs.
// Accepting an interface here, rather than the concrete type, keeps
// ingest free of a dependency cycle with repo while still letting
// *repo.Repository satisfy it directly.
type Writer interface {
	WriteMetadata(ctx context.Context, kind hash.ObjectType, data io.Reader) (hash.Checksum, error)
	WriteContent(ctx context.Context, info object.FileInfo, xattrList []object.XAttr, payload io.Reader, declaredLength int64) (hash.Checksum, error)
	DevinoLookup(dev, ino uint64) (hash.Checksum, bool)
}

// Resolved names the checksums of an already-committed subtree, used
// to short-circuit re-hashing a directory that is known to be an
// unmodified copy of existing repository content.
type Resolved struct {
	Contents hash.Checksum
	Metadata hash.Checksum
}

// Dir is a source directory to ingest: either a plain filesystem
// directory, or (when Known is set) a subtree already resolved to an
// existing DIR_TREE/DIR_META pair, allowing the walk to reuse it
// wholesale instead of re-reading every entry.
type Dir struct {
	FS    billy.Filesystem
	Path  string
	Known *Resolved
}

// File is a source regular file or symlink. Known, if set, is the
// already-computed content checksum (used when the caller has other
// means — e.g. a manifest — of knowing the content address without
// opening the file).
type File struct {
	FS    billy.Filesystem
	Path  string
	Known *hash.Checksum
}

// Entry is one child of a directory being walked: exactly one of Dir
// or File is set.
type Entry struct {
	Name string
	Dir  *Dir
	File *File
}

// WriteDirectoryToMtree walks dir and stages its contents into tree,
// applying modifier (which may be nil) at every logical path. Every
// visited directory's DIR_META is written along the way, the root's
// included; the DIR_TREE objects are not — callers fold the staged
// tree afterwards with mtree.Write, which yields the root contents
// checksum.
func WriteDirectoryToMtree(ctx context.Context, w Writer, dir Dir, tree *mtree.Tree, modifier *Modifier) error {
	return writeDir(ctx, w, dir, tree, modifier, nil)
}

func writeDir(ctx context.Context, w Writer, dir Dir, tree *mtree.Tree, modifier *Modifier, stack []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if dir.Known != nil && modifier == nil {
		tree.SetContentsChecksum(dir.Known.Contents)
		tree.SetMetadataChecksum(dir.Known.Metadata)
		return nil
	}

	entries, err := listEntries(dir)
	if err != nil {
		return fmt.Errorf("ingest: list %s: %w", dir.Path, err)
	}

	meta, err := statDirMeta(dir)
	if err != nil {
		return fmt.Errorf("ingest: stat %s: %w", dir.Path, err)
	}

	if modifier != nil && modifier.Filter != nil {
		info := Info{UID: meta.UID, GID: meta.GID, Mode: meta.Mode}
		if modifier.Filter(renderPath(stack), &info) == Skip {
			return nil
		}
		meta.UID, meta.GID, meta.Mode = info.UID, info.GID, info.Mode
	}
	if modifier != nil && modifier.Flags&SkipXAttrs != 0 {
		meta.XAttrs = nil
	}

	metaCsum, err := writeDirMeta(ctx, w, meta)
	if err != nil {
		return err
	}
	tree.SetMetadataChecksum(metaCsum)

	for _, entry := range entries {
		childStack := append(stack, entry.Name) //nolint:gocritic // each iteration owns its own slice below.

		if entry.Dir != nil {
			if modifier != nil && modifier.Filter != nil {
				fi, err := entry.Dir.FS.Lstat(entry.Dir.Path)
				if err != nil {
					return fmt.Errorf("ingest: stat %s: %w", entry.Dir.Path, err)
				}
				uid, gid, mode, _ := statOwnership(fi)
				probe := Info{UID: uid, GID: gid, Mode: mode}
				if modifier.Filter(renderPath(childStack), &probe) == Skip {
					continue
				}
			}

			subTree, err := tree.EnsureDir(entry.Name)
			if err != nil {
				return fmt.Errorf("ingest: stage dir %q: %w", entry.Name, err)
			}
			if err := writeDir(ctx, w, *entry.Dir, subTree, modifier, childStack); err != nil {
				return err
			}
			continue
		}

		csum, err := writeFile(ctx, w, *entry.File, modifier, childStack)
		if err != nil {
			return fmt.Errorf("ingest: stage file %q: %w", entry.Name, err)
		}
		if csum == nil {
			continue
		}
		if err := tree.ReplaceFile(entry.Name, *csum); err != nil {
			return fmt.Errorf("ingest: stage file %q: %w", entry.Name, err)
		}
	}

	return nil
}

func writeFile(ctx context.Context, w Writer, f File, modifier *Modifier, stack []string) (*hash.Checksum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fi, err := f.FS.Lstat(f.Path)
	if err != nil {
		return nil, err
	}

	info, err := fileInfoFromStat(fi)
	if err != nil {
		return nil, err
	}

	if modifier != nil && modifier.Filter != nil {
		probe := Info{UID: info.UID, GID: info.GID, Mode: info.Mode}
		if modifier.Filter(renderPath(stack), &probe) == Skip {
			return nil, nil
		}
		info.UID, info.GID, info.Mode = probe.UID, probe.GID, probe.Mode
	}

	if f.Known != nil {
		return f.Known, nil
	}

	var xattrList []object.XAttr
	if modifier == nil || modifier.Flags&SkipXAttrs == 0 {
		xattrList, err = readXAttrs(f.FS, f.Path)
		if err != nil {
			return nil, err
		}
	}

	if info.Kind == object.Symlink {
		target, err := f.FS.Readlink(f.Path)
		if err != nil {
			return nil, err
		}
		info.LinkTarget = target
		csum, err := w.WriteContent(ctx, info, xattrList, nil, 0)
		if err != nil {
			return nil, err
		}
		return &csum, nil
	}

	if dev, ino, ok := fileDevino(fi); ok {
		if csum, found := w.DevinoLookup(dev, ino); found {
			return &csum, nil
		}
	}

	handle, err := f.FS.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	csum, err := w.WriteContent(ctx, info, xattrList, handle, fi.Size())
	if err != nil {
		return nil, err
	}
	return &csum, nil
}

func writeDirMeta(ctx context.Context, w Writer, meta object.DirMeta) (hash.Checksum, error) {
	buf := bufpool.GetBytesBuffer()
	defer bufpool.PutBytesBuffer(buf)
	if err := object.EncodeDirMeta(buf, meta); err != nil {
		return hash.Checksum{}, fmt.Errorf("ingest: encode dirmeta: %w", err)
	}
	return w.WriteMetadata(ctx, hash.DirMeta, buf)
}

func statDirMeta(dir Dir) (object.DirMeta, error) {
	fi, err := dir.FS.Lstat(dir.Path)
	if err != nil {
		return object.DirMeta{}, err
	}

	uid, gid, mode, ok := statOwnership(fi)
	if !ok {
		mode = uint32(fi.Mode().Perm())
	}

	xattrList, err := readXAttrs(dir.FS, dir.Path)
	if err != nil {
		return object.DirMeta{}, err
	}

	return object.DirMeta{UID: uid, GID: gid, Mode: mode, XAttrs: xattrList}, nil
}

func fileInfoFromStat(fi os.FileInfo) (object.FileInfo, error) {
	uid, gid, mode, _ := statOwnership(fi)

	kind := object.Regular
	if fi.Mode()&os.ModeSymlink != 0 {
		kind = object.Symlink
	} else if fi.Mode()&os.ModeType != 0 {
		return object.FileInfo{}, object.ErrUnsupportedFileType
	}

	return object.FileInfo{Kind: kind, UID: uid, GID: gid, Mode: mode}, nil
}

func statOwnership(fi os.FileInfo) (uid, gid, mode uint32, ok bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, uint32(fi.Mode().Perm()), false
	}
	return st.Uid, st.Gid, st.Mode & 07777, true
}

func fileDevino(fi os.FileInfo) (dev, ino uint64, ok bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return uint64(st.Dev), st.Ino, true //nolint:unconvert // Dev's width varies by platform.
}

func readXAttrs(fs billy.Filesystem, relpath string) ([]object.XAttr, error) {
	pairs, err := xattrs.List(fs.Join(fs.Root(), relpath))
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make([]object.XAttr, len(pairs))
	for i, p := range pairs {
		out[i] = object.XAttr{Name: p.Name, Value: p.Value}
	}
	return out, nil
}

func listEntries(dir Dir) ([]Entry, error) {
	fis, err := dir.FS.ReadDir(dir.Path)
	if err != nil {
		return nil, err
	}

	sort.Slice(fis, func(i, j int) bool { return fis[i].Name() < fis[j].Name() })

	entries := make([]Entry, 0, len(fis))
	for _, fi := range fis {
		childPath := path.Join(dir.Path, fi.Name())
		if fi.IsDir() {
			entries = append(entries, Entry{Name: fi.Name(), Dir: &Dir{FS: dir.FS, Path: childPath}})
			continue
		}
		entries = append(entries, Entry{Name: fi.Name(), File: &File{FS: dir.FS, Path: childPath}})
	}
	return entries, nil
}
