package object

import (
	"encoding/binary"
	"io"
)

// readFields reads each of dst in order, BigEndian, stopping at the
// first error.
func readFields(r io.Reader, dst ...any) error {
	for _, d := range dst {
		if err := binary.Read(r, binary.BigEndian, d); err != nil {
			return err
		}
	}
	return nil
}
