// Package wire implements the length-prefixed frame codec (spec §4.1) and
// the typed wire envelope (spec §4.2) that CoreRemoting layers on top of
// any bidirectional byte stream.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes is the default cap on a single frame's payload size
// (128 MiB), matching spec §4.1.
const DefaultMaxFrameBytes uint32 = 128 << 20

// HardMaxFrameBytes is the hard ceiling no configuration may exceed (1 GiB).
const HardMaxFrameBytes uint32 = 1 << 30

// ErrProtocolViolation is returned by ReadFrame/WriteFrame when a frame
// exceeds the configured cap, and by Decode for a malformed envelope; a
// truncated stream surfaces as an io error instead.
type ErrProtocolViolation struct {
	Reason string
}

func (e *ErrProtocolViolation) Error() string {
	return fmt.Sprintf("protocol_violation: %s", e.Reason)
}

// WriteFrame writes one length-prefixed frame: a 4-byte little-endian
// length N followed by exactly N payload bytes, as a single Write call so
// concurrent writers never interleave a length header with another
// goroutine's payload. Callers serialize writes on a connection with their
// own lock (spec §5); WriteFrame itself performs no locking.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > uint64(HardMaxFrameBytes) {
		return &ErrProtocolViolation{Reason: fmt.Sprintf("frame of %d bytes exceeds hard ceiling %d", len(payload), HardMaxFrameBytes)}
	}

	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)

	_, err := w.Write(buf)
	return err
}

// ReadFrame reads one length-prefixed frame, resuming partial reads until
// the full N bytes arrive. A clean peer close before any bytes of the
// length header are read yields io.EOF; a close mid-frame yields
// io.ErrUnexpectedEOF via io.ReadFull. maxBytes of 0 selects
// DefaultMaxFrameBytes.
func ReadFrame(r io.Reader, maxBytes uint32) ([]byte, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	if maxBytes > HardMaxFrameBytes {
		maxBytes = HardMaxFrameBytes
	}

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint32(header[:])
	if n > maxBytes {
		return nil, &ErrProtocolViolation{Reason: fmt.Sprintf("frame of %d bytes exceeds configured max %d", n, maxBytes)}
	}

	payload := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}
