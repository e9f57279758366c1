package object

import (
	"io"

	castorebinary "github.com/objstore/castore/internal/binary"
)

// DirMeta is a directory's ownership/mode/xattrs — the DIR_META object.
type DirMeta struct {
	UID    uint32
	GID    uint32
	Mode   uint32
	XAttrs []XAttr
}

// EncodeDirMeta writes the canonical encoding of m to w.
func EncodeDirMeta(w io.Writer, m DirMeta) error {
	if err := castorebinary.Write(w, m.UID, m.GID, m.Mode); err != nil {
		return err
	}

	if err := castorebinary.WriteUint16(w, uint16(len(m.XAttrs))); err != nil {
		return err
	}
	for _, x := range m.XAttrs {
		if err := writeLenPrefixed(w, []byte(x.Name)); err != nil {
			return err
		}
		if err := writeLenPrefixed(w, x.Value); err != nil {
			return err
		}
	}

	return nil
}

// DecodeDirMeta is the inverse of EncodeDirMeta.
func DecodeDirMeta(r io.Reader) (DirMeta, error) {
	var m DirMeta
	if err := readFields(r, &m.UID, &m.GID, &m.Mode); err != nil {
		return m, err
	}

	var count uint16
	if err := readFields(r, &count); err != nil {
		return m, err
	}

	m.XAttrs = make([]XAttr, 0, count)
	for i := uint16(0); i < count; i++ {
		name, err := readLenPrefixed32(r)
		if err != nil {
			return m, err
		}
		value, err := readLenPrefixed32(r)
		if err != nil {
			return m, err
		}
		m.XAttrs = append(m.XAttrs, XAttr{Name: string(name), Value: value})
	}

	return m, nil
}
