package object

import (
	"io"
	"sort"

	castorebinary "github.com/objstore/castore/internal/binary"
	"github.com/objstore/castore/hash"
)

// FileEntry names a file within a DirTree by its content checksum.
type FileEntry struct {
	Name     string
	Checksum hash.Checksum
}

// SubdirEntry names a subdirectory within a DirTree by its contents and
// metadata checksums.
type SubdirEntry struct {
	Name     string
	Contents hash.Checksum
	Metadata hash.Checksum
}

// DirTree is the canonical, sorted manifest of a directory: the
// DIR_TREE object.
type DirTree struct {
	Files   []FileEntry
	Subdirs []SubdirEntry
}

// EncodeDirTree writes the canonical encoding of t to w. Both entry
// arrays are written in ascending strcmp order on Name, which is a
// correctness requirement: identical trees must produce identical
// bytes on every platform regardless of insertion order.
func EncodeDirTree(w io.Writer, t DirTree) error {
	files := append([]FileEntry(nil), t.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	subdirs := append([]SubdirEntry(nil), t.Subdirs...)
	sort.Slice(subdirs, func(i, j int) bool { return subdirs[i].Name < subdirs[j].Name })

	if err := castorebinary.WriteUint32(w, uint32(len(files))); err != nil {
		return err
	}
	for _, f := range files {
		if err := writeLenPrefixed(w, []byte(f.Name)); err != nil {
			return err
		}
		if _, err := w.Write(f.Checksum.Bytes()); err != nil {
			return err
		}
	}

	if err := castorebinary.WriteUint32(w, uint32(len(subdirs))); err != nil {
		return err
	}
	for _, d := range subdirs {
		if err := writeLenPrefixed(w, []byte(d.Name)); err != nil {
			return err
		}
		if _, err := w.Write(d.Contents.Bytes()); err != nil {
			return err
		}
		if _, err := w.Write(d.Metadata.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// DecodeDirTree is the inverse of EncodeDirTree.
func DecodeDirTree(r io.Reader) (DirTree, error) {
	var t DirTree

	var nFiles uint32
	if err := readFields(r, &nFiles); err != nil {
		return t, err
	}
	for i := uint32(0); i < nFiles; i++ {
		name, err := readLenPrefixed32(r)
		if err != nil {
			return t, err
		}
		csumBytes, err := readExactly(r, hash.Size)
		if err != nil {
			return t, err
		}
		csum, err := hash.FromBytes(csumBytes)
		if err != nil {
			return t, err
		}
		t.Files = append(t.Files, FileEntry{Name: string(name), Checksum: csum})
	}

	var nSubdirs uint32
	if err := readFields(r, &nSubdirs); err != nil {
		return t, err
	}
	for i := uint32(0); i < nSubdirs; i++ {
		name, err := readLenPrefixed32(r)
		if err != nil {
			return t, err
		}
		contentsBytes, err := readExactly(r, hash.Size)
		if err != nil {
			return t, err
		}
		contents, err := hash.FromBytes(contentsBytes)
		if err != nil {
			return t, err
		}
		metaBytes, err := readExactly(r, hash.Size)
		if err != nil {
			return t, err
		}
		meta, err := hash.FromBytes(metaBytes)
		if err != nil {
			return t, err
		}
		t.Subdirs = append(t.Subdirs, SubdirEntry{Name: string(name), Contents: contents, Metadata: meta})
	}

	return t, nil
}
