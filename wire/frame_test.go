package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("hi"),
		bytes.Repeat([]byte{0xAB}, 4096),
	}
	for _, p := range payloads {
		var buf bytes.Buffer
		require.NoError(t, WriteFrame(&buf, p))

		got, err := ReadFrame(&buf, 0)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestReadFrameExceedsCap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 100)))

	_, err := ReadFrame(&buf, 10)
	require.Error(t, err)
	var violation *ErrProtocolViolation
	assert.ErrorAs(t, err, &violation)
}

func TestReadFramePartialReadsResumable(t *testing.T) {
	var full bytes.Buffer
	payload := bytes.Repeat([]byte{0x42}, 10000)
	require.NoError(t, WriteFrame(&full, payload))

	// Simulate a reader that only ever yields a few bytes per Read call.
	r := &slowReader{data: full.Bytes(), chunk: 3}
	got, err := ReadFrame(r, 0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), 0)
	assert.True(t, errors.Is(err, io.EOF))
}

type slowReader struct {
	data  []byte
	chunk int
}

func (s *slowReader) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := s.chunk
	if n > len(p) {
		n = len(p)
	}
	if n > len(s.data) {
		n = len(s.data)
	}
	copy(p, s.data[:n])
	s.data = s.data[n:]
	return n, nil
}
