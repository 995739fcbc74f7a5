package base

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	require.NoError(t, writeFrame(&wire, 7, 42, []byte("payload")))
	require.NoError(t, writeFrame(&wire, 1, 43, nil))

	// the pooled buffer is too small for the first payload
	shard, id, data, err := readFrame(&wire, make([]byte, 3))
	require.NoError(t, err)
	require.Equal(t, uint64(7), shard)
	require.Equal(t, uint64(42), id)
	require.Equal(t, []byte("payload"), data)

	shard, id, data, err = readFrame(&wire, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), shard)
	require.Equal(t, uint64(43), id)
	require.Empty(t, data)
}

func TestFrameRejectsOversizedPayload(t *testing.T) {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header[16:], MaxFrameSize+1)

	_, _, _, err := readFrame(bytes.NewReader(header), nil)
	require.Error(t, err)
}

func TestFrameTruncated(t *testing.T) {
	var wire bytes.Buffer
	require.NoError(t, writeFrame(&wire, 1, 1, []byte("abcdef")))
	truncated := wire.Bytes()[:wire.Len()-2]

	_, _, _, err := readFrame(bytes.NewReader(truncated), nil)
	require.Error(t, err)
}
