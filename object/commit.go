package object

import (
	"errors"
	"io"

	castorebinary "github.com/objstore/castore/internal/binary"
	"github.com/objstore/castore/hash"
)

// ErrCommitMissingField is returned by EncodeCommit when a required
// field is the zero value.
var ErrCommitMissingField = errors.New("object: commit missing required field")

// Commit is the normalized commit variant: the COMMIT object.
//
// Parent is the zero Checksum when the commit has no parent. Metadata
// and Related have no representation here because every commit built
// by this repository writes them empty; EncodeCommit always emits the
// empty dict and empty array the variant signature requires.
type Commit struct {
	Parent       hash.Checksum
	Subject      string
	Body         string
	Timestamp    uint64
	RootContents hash.Checksum
	RootMeta     hash.Checksum
}

// EncodeCommit writes the canonical encoding of c to w.
func EncodeCommit(w io.Writer, c Commit) error {
	if c.Subject == "" {
		return ErrCommitMissingField
	}
	if c.RootContents.IsZero() || c.RootMeta.IsZero() {
		return ErrCommitMissingField
	}

	// metadata_dict: always empty.
	if err := castorebinary.WriteUint32(w, 0); err != nil {
		return err
	}

	var parentBytes []byte
	if !c.Parent.IsZero() {
		parentBytes = c.Parent.Bytes()
	}
	if err := writeLenPrefixed(w, parentBytes); err != nil {
		return err
	}

	// related_array: always empty.
	if err := castorebinary.WriteUint32(w, 0); err != nil {
		return err
	}

	if err := writeLenPrefixed(w, []byte(c.Subject)); err != nil {
		return err
	}
	if err := writeLenPrefixed(w, []byte(c.Body)); err != nil {
		return err
	}

	if err := castorebinary.WriteUint64(w, c.Timestamp); err != nil {
		return err
	}

	if _, err := w.Write(c.RootContents.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(c.RootMeta.Bytes()); err != nil {
		return err
	}

	return nil
}

// DecodeCommit is the inverse of EncodeCommit.
func DecodeCommit(r io.Reader) (Commit, error) {
	var c Commit

	var metaCount uint32
	if err := readFields(r, &metaCount); err != nil {
		return c, err
	}
	for i := uint32(0); i < metaCount; i++ {
		if _, err := readLenPrefixed32(r); err != nil {
			return c, err
		}
		if _, err := readLenPrefixed32(r); err != nil {
			return c, err
		}
	}

	parentBytes, err := readLenPrefixed32(r)
	if err != nil {
		return c, err
	}
	if len(parentBytes) > 0 {
		c.Parent, err = hash.FromBytes(parentBytes)
		if err != nil {
			return c, err
		}
	}

	var relatedCount uint32
	if err := readFields(r, &relatedCount); err != nil {
		return c, err
	}
	for i := uint32(0); i < relatedCount; i++ {
		if _, err := readLenPrefixed32(r); err != nil {
			return c, err
		}
	}

	subject, err := readLenPrefixed32(r)
	if err != nil {
		return c, err
	}
	c.Subject = string(subject)

	body, err := readLenPrefixed32(r)
	if err != nil {
		return c, err
	}
	c.Body = string(body)

	if err := readFields(r, &c.Timestamp); err != nil {
		return c, err
	}

	rootContents, err := readExactly(r, hash.Size)
	if err != nil {
		return c, err
	}
	c.RootContents, err = hash.FromBytes(rootContents)
	if err != nil {
		return c, err
	}

	rootMeta, err := readExactly(r, hash.Size)
	if err != nil {
		return c, err
	}
	c.RootMeta, err = hash.FromBytes(rootMeta)
	if err != nil {
		return c, err
	}

	return c, nil
}
