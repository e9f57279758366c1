package ioutil

import (
	"io"

	"github.com/objstore/castore/internal/bufpool"
)

// Copy calls io.CopyBuffer and uses a buffer from bufpool.GetByteSlice,
// to reduce the complexity when using it while avoiding the allocation
// of a new buffer per call.
func Copy(dst io.Writer, src io.Reader) (n int64, err error) {
	buf := bufpool.GetByteSlice()
	n, err = io.CopyBuffer(dst, src, *buf)
	bufpool.PutByteSlice(buf, int(n))

	return
}
