package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, Write(buf, int64(42), int32(42)))
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 42, 0, 0, 0, 42}, buf.Bytes())
}

func TestWriteUint64(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, WriteUint64(buf, 1))
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, buf.Bytes())
}

func TestWriteUint32(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, WriteUint32(buf, 42))
	require.Equal(t, []byte{0, 0, 0, 42}, buf.Bytes())
}

func TestWriteUint16(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	require.NoError(t, WriteUint16(buf, 42))
	require.Equal(t, []byte{0, 42}, buf.Bytes())
}
