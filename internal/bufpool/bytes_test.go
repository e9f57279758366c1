package bufpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndPutByteSlice(t *testing.T) {
	t.Parallel()
	slice := GetByteSlice()
	require.NotNil(t, slice)

	wantLen := 16 * 1024
	assert.Len(t, *slice, wantLen)

	PutByteSlice(slice, 0)
}

func TestGetAndPutBytesBuffer(t *testing.T) {
	t.Parallel()
	buf := GetBytesBuffer()
	require.NotNil(t, buf)
	require.Zero(t, buf.Len())

	buf.WriteString("scratch")
	PutBytesBuffer(buf)

	again := GetBytesBuffer()
	require.Zero(t, again.Len())
	PutBytesBuffer(again)
}
