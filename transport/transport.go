// Package transport defines the byte-pipe contract CoreRemoting sessions
// are built on (spec §4.1/§9's "session is sole owner of its transport").
// Concrete transports are non-authoritative reference implementations --
// the core depends only on the Transport interface.
package transport

import "context"

// Transport is a bidirectional, message-framed byte pipe. One Transport
// belongs to exactly one Session for its entire lifetime.
type Transport interface {
	// Send writes one complete wire envelope. Implementations serialize
	// concurrent callers so a length prefix and its payload are never
	// interleaved (spec §5).
	Send(ctx context.Context, envelope []byte) error

	// Receive blocks until the next complete wire envelope arrives, or ctx
	// is cancelled, or the peer closes the connection (io.EOF).
	Receive(ctx context.Context) ([]byte, error)

	// Close releases the underlying connection. Close is idempotent.
	Close() error

	// RemoteAddr identifies the peer for logging/session bookkeeping.
	RemoteAddr() string
}

// Listener accepts inbound Transports. *net.TCPListener is adapted to
// this via StreamListener; the in-process transport has no listener
// analog since it is always paired directly.
type Listener interface {
	Accept(ctx context.Context) (Transport, error)
	Close() error
	Addr() string
}
