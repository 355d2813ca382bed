// Package client implements the client-side session object of spec
// §4.12: transport + handshake + dispatcher (of delegate invocations) +
// pending-call table composed behind connect/disconnect/invoke, modeled
// on the teacher's client-session lifecycle idiom (explicit connected
// state, idempotent disconnect, background receive loop feeding
// in-memory completion channels rather than callbacks threaded through
// the caller's stack).
package client

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreremoting/coreremoting/delegate"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/handshake"
	"github.com/coreremoting/coreremoting/internal/logger"
	"github.com/coreremoting/coreremoting/internal/telemetry"
	"github.com/coreremoting/coreremoting/pendingcall"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/transport"
	"github.com/coreremoting/coreremoting/wire"
)

// Dialer establishes a fresh transport to the server, used for the
// initial Connect and for auto-reconnect (spec §4.12).
type Dialer func(ctx context.Context) (transport.Transport, error)

// Config holds what a Session needs to connect and authenticate (spec
// §4.7, §6's connection_timeout_s/auth_timeout_s/invocation_timeout_s
// configuration keys).
type Config struct {
	Dial       Dialer
	Serializer protocol.Serializer

	// ClientKey and RequestEncryption drive the hello exchange (spec
	// §4.7 step 1). RequestEncryption false yields a plaintext session
	// regardless of whether ClientKey is set.
	ClientKey         *rsa.PrivateKey
	RequestEncryption bool

	Credentials []protocol.Credential

	// ConnectionTimeout/AuthTimeout bound the two handshake phases
	// independently; both surface as call_timeout distinguished by
	// phase (spec §4.12). Zero means no deadline.
	ConnectionTimeout time.Duration
	AuthTimeout       time.Duration

	// InvocationTimeout is the default per-call ceiling applied by
	// Invoke when the caller's context carries no earlier deadline.
	// Zero means no default ceiling.
	InvocationTimeout time.Duration

	// AutoReconnect redials via Dial when Invoke is attempted on a
	// disconnected session; false surfaces not_connected instead (spec
	// §4.12).
	AutoReconnect bool
}

// Session is the client-side connection to one CoreRemoting server (spec
// §4.12).
type Session struct {
	cfg Config

	mu              sync.RWMutex
	transport       transport.Transport
	connected       bool
	sessionID       uuid.UUID
	sharedSecret    []byte
	serverPublicKey *rsa.PublicKey

	pending  *pendingcall.Table
	handlers *delegate.HandlerMap

	stopReceive chan struct{}
	receiveDone chan struct{}
}

// New constructs a disconnected Session. Call Connect before Invoke.
func New(cfg Config) *Session {
	return &Session{
		cfg:      cfg,
		pending:  pendingcall.NewTable(),
		handlers: delegate.NewHandlerMap(),
	}
}

// IsConnected reports whether the session currently holds a live
// transport.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Connect dials a transport via cfg.Dial (if t is nil) or adopts t,
// then runs the hello and auth phases of spec §4.7 and starts the
// background receive loop. Connect is not idempotent; calling it on an
// already-connected session returns an error.
func (s *Session) Connect(ctx context.Context, t transport.Transport) error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return faults.New(faults.KindInternalError, "client session already connected")
	}
	s.mu.Unlock()

	if t == nil {
		if s.cfg.Dial == nil {
			return faults.New(faults.KindConnectionRefused, "no transport supplied and no dialer configured")
		}
		dialed, err := s.cfg.Dial(ctx)
		if err != nil {
			return faults.New(faults.KindConnectionRefused, fmt.Sprintf("dial: %v", err))
		}
		t = dialed
	}

	connectCtx := ctx
	if s.cfg.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, s.cfg.ConnectionTimeout)
		defer cancel()
	}

	bareSend := func(ctx context.Context, env *wire.Envelope) error { return t.Send(ctx, env.Encode()) }
	bareRecv := func(ctx context.Context) (*wire.Envelope, error) {
		raw, err := t.Receive(ctx)
		if err != nil {
			return nil, err
		}
		return wire.Decode(raw)
	}

	helloCtx, helloSpan := telemetry.StartHandshakeSpan(connectCtx, "hello")
	helloResult, err := handshake.RunClientHello(helloCtx, bareSend, bareRecv, s.cfg.ClientKey, s.cfg.RequestEncryption)
	if err != nil {
		telemetry.RecordError(helloCtx, err)
		helloSpan.End()
		if connectCtx.Err() != nil {
			return faults.New(faults.KindCallTimeout, "connection handshake timed out")
		}
		_ = t.Close()
		return err
	}
	helloSpan.End()

	var sessionID uuid.UUID
	if len(helloResult.SessionID) == 16 {
		copy(sessionID[:], helloResult.SessionID)
	}

	s.mu.Lock()
	s.transport = t
	s.sessionID = sessionID
	s.sharedSecret = helloResult.SharedSecret
	s.serverPublicKey = helloResult.ServerPublicKey
	s.mu.Unlock()

	authCtx := ctx
	if s.cfg.AuthTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, s.cfg.AuthTimeout)
		defer cancel()
	}
	authCtx, authSpan := telemetry.StartHandshakeSpan(authCtx, "auth")
	_, err = handshake.RunClientAuth(authCtx, s.sendEnvelope, s.receiveEnvelope, s.cfg.Serializer, s.cfg.Credentials)
	if err != nil {
		telemetry.RecordError(authCtx, err)
		authSpan.End()
		_ = t.Close()
		if authCtx.Err() != nil {
			return faults.New(faults.KindCallTimeout, "auth handshake timed out")
		}
		return err
	}
	authSpan.End()

	s.mu.Lock()
	s.connected = true
	s.stopReceive = make(chan struct{})
	s.receiveDone = make(chan struct{})
	s.mu.Unlock()

	go s.receiveLoop()
	return nil
}

// Disconnect closes the transport and drains every pending call with
// connection_lost. It is idempotent (spec §4.12).
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	t := s.transport
	stop := s.stopReceive
	done := s.receiveDone
	s.mu.Unlock()

	close(stop)
	_ = t.Close()
	<-done

	s.pending.DrainWithError(faults.New(faults.KindConnectionLost, "session disconnected"))
	return nil
}

// Dispose disconnects the session and discards its handler registrations.
// A disposed Session must not be reused.
func (s *Session) Dispose() error {
	err := s.Disconnect()
	s.handlers = delegate.NewHandlerMap()
	return err
}

func (s *Session) reconnectIfNeeded(ctx context.Context) error {
	if s.IsConnected() {
		return nil
	}
	if !s.cfg.AutoReconnect || s.cfg.Dial == nil {
		return faults.New(faults.KindNotConnected, "session is not connected")
	}
	logger.Debug("client: auto-reconnecting")
	return s.Connect(ctx, nil)
}
