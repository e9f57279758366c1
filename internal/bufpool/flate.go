package bufpool

import (
	"compress/flate"
	"io"
	"sync"
)

var flateWriter = sync.Pool{
	New: func() any {
		w, _ := flate.NewWriter(nil, flate.BestCompression)
		return w
	},
}

// GetFlateWriter returns a level-9 ("best compression") raw-deflate
// writer managed by a sync.Pool, reset to write to w.
//
// After use, the writer should be put back into the pool by calling
// PutFlateWriter.
func GetFlateWriter(w io.Writer) *flate.Writer {
	fw := flateWriter.Get().(*flate.Writer)
	fw.Reset(w)
	return fw
}

// PutFlateWriter puts fw back into its sync.Pool.
func PutFlateWriter(fw *flate.Writer) {
	flateWriter.Put(fw)
}
