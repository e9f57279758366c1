// Package objfile is the hashing writer the repository streams every
// object kind through: it tees writes to a SHA-256 hasher and an
// underlying tempfile, so an object's identifier is computed in the
// same pass that materializes it.
package objfile

import (
	"io"

	"github.com/objstore/castore/hash"
)

// Writer hashes everything written to it while forwarding the bytes to
// the wrapped io.Writer.
type Writer struct {
	w   io.Writer
	h   io.Writer // sha256 hash.Hash, stored as io.Writer for the Write fast path
	sum func() hash.Checksum
}

// NewWriter returns a Writer forwarding to w.
func NewWriter(w io.Writer) *Writer {
	h := hash.New()
	return &Writer{
		w: w,
		h: h,
		sum: func() hash.Checksum {
			var c hash.Checksum
			copy(c[:], h.Sum(nil))
			return c
		},
	}
}

// Write writes p to the underlying writer and the hasher.
func (w *Writer) Write(p []byte) (int, error) {
	if _, err := w.h.Write(p); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// Hash returns the checksum of everything written so far.
func (w *Writer) Hash() hash.Checksum {
	return w.sum()
}

// Close is a no-op: the underlying writer (typically a tempfile) is
// owned and closed by the caller, which needs to rename it afterward.
func (w *Writer) Close() error {
	return nil
}
