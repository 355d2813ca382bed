package transport

import (
	"context"
	"net"
	"sync"

	"github.com/coreremoting/coreremoting/wire"
)

// StreamTransport frames envelopes over a net.Conn using the 4-byte
// length-prefix grammar of spec §4.1. It is the default transport for a
// TCP listener.
type StreamTransport struct {
	conn          net.Conn
	maxFrameBytes uint32

	sendMu sync.Mutex
}

// NewStreamTransport wraps conn. maxFrameBytes caps inbound frame size;
// 0 selects wire.DefaultMaxFrameBytes.
func NewStreamTransport(conn net.Conn, maxFrameBytes uint32) *StreamTransport {
	if maxFrameBytes == 0 {
		maxFrameBytes = wire.DefaultMaxFrameBytes
	}
	return &StreamTransport{conn: conn, maxFrameBytes: maxFrameBytes}
}

// Send writes one frame under the per-connection send lock so length
// prefix and payload are never interleaved with a concurrent Send (spec §5).
func (t *StreamTransport) Send(ctx context.Context, envelope []byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	type result struct{ err error }
	done := make(chan result, 1)
	go func() {
		done <- result{wire.WriteFrame(t.conn, envelope)}
	}()

	select {
	case <-ctx.Done():
		_ = t.conn.Close()
		return ctx.Err()
	case r := <-done:
		return r.err
	}
}

// Receive reads one frame, resuming partial reads transparently (spec §4.1).
func (t *StreamTransport) Receive(ctx context.Context) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := wire.ReadFrame(t.conn, t.maxFrameBytes)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		_ = t.conn.Close()
		return nil, ctx.Err()
	case r := <-done:
		return r.data, r.err
	}
}

// Close closes the underlying connection.
func (t *StreamTransport) Close() error {
	return t.conn.Close()
}

// RemoteAddr returns the peer's network address.
func (t *StreamTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

var _ Transport = (*StreamTransport)(nil)
