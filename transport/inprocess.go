package transport

import (
	"context"
	"errors"
	"io"
	"sync"
)

// InProcessTransport is a channel-backed Transport with no framing,
// already message-oriented like the native-message transports spec §4.1
// allows to skip the length prefix. Used for tests and local demos.
type InProcessTransport struct {
	name string
	out  chan<- []byte
	in   <-chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewInProcessPair returns two InProcessTransport endpoints wired to each
// other: everything sent on a is received on b and vice versa.
func NewInProcessPair() (a, b *InProcessTransport) {
	abToBa := make(chan []byte, 64)
	baToAb := make(chan []byte, 64)

	a = &InProcessTransport{name: "a", out: abToBa, in: baToAb, closed: make(chan struct{})}
	b = &InProcessTransport{name: "b", out: baToAb, in: abToBa, closed: make(chan struct{})}
	return a, b
}

// Send enqueues envelope for the peer. It never blocks past ctx
// cancellation or the transport being closed.
func (t *InProcessTransport) Send(ctx context.Context, envelope []byte) error {
	select {
	case <-t.closed:
		return errors.New("transport: send on closed in-process transport")
	default:
	}

	select {
	case t.out <- envelope:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closed:
		return errors.New("transport: send on closed in-process transport")
	}
}

// Receive blocks for the next envelope sent by the peer.
func (t *InProcessTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-t.in:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, io.EOF
	}
}

// Close marks the transport closed. Idempotent.
func (t *InProcessTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// RemoteAddr returns a synthetic address identifying the paired endpoint.
func (t *InProcessTransport) RemoteAddr() string {
	return "inprocess:" + t.name
}

var _ Transport = (*InProcessTransport)(nil)
