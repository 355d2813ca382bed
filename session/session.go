// Package session implements the server-side session registry of spec
// §4.6: a concurrent table of connected peers, each tracked for activity
// and swept when idle past a configured ceiling.
package session

import (
	"crypto/rsa"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreremoting/coreremoting/delegate"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/pendingcall"
	"github.com/coreremoting/coreremoting/pkg/metrics"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/transport"
)

// State is the lifecycle stage of a session (spec §4.6): a session moves
// from active through disposing to disposed exactly once.
type State int

const (
	StateActive State = iota
	StateDisposing
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisposing:
		return "disposing"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// BeforeDisposeFunc is invoked once, synchronously, as a session begins
// disposal but before its transport is closed -- the hook pending-delegate
// proxies use to tear themselves down (spec §4.6).
type BeforeDisposeFunc func(*Session)

// Session is one connected peer: its transport, its negotiated crypto
// state, and the bookkeeping the registry and sweeper need.
type Session struct {
	ID uuid.UUID

	PeerAddress string
	Transport   transport.Transport

	// ClientPublicKey is set only when the session negotiated encryption
	// during handshake (spec §4.7).
	ClientPublicKey *rsa.PublicKey
	SharedSecret    []byte // nil iff the session is plaintext

	Identity any // set by the auth exchange; concrete type is authprovider.Identity

	// Serializer and SigningKey configure outbound delegate invocations
	// (spec §4.9); both are set by the server at session creation, never
	// by the session itself.
	Serializer protocol.Serializer
	SigningKey *rsa.PrivateKey // server's own key, used to sign outbound encrypted envelopes

	// Metrics records outcome counters for this session's server-to-client
	// delegate invocations (spec §4.9). Set by the server at session
	// creation; nil records nothing.
	Metrics *metrics.DelegateMetrics

	// Pending tracks server-initiated delegate calls awaiting the
	// client's matching result envelope (spec §4.11, server direction).
	Pending *pendingcall.Table

	// Proxies holds the server-side proxy delegates this session's
	// service invocations have materialized (spec §4.9). Disposing the
	// session unsubscribes every proxy exactly once.
	Proxies *delegate.ProxyRegistry

	mu             sync.RWMutex
	state          State
	lastActivityAt time.Time
	scoped         map[string]any
	beforeDispose  []BeforeDisposeFunc
}

// New constructs a Session in StateActive with a fresh 128-bit id (spec
// §4.6 create()). It does not insert the session into any Registry --
// callers do that explicitly, mirroring the register-on-create /
// unregister-on-dispose lifetime contract of spec §9.
func New(peerAddress string, t transport.Transport) *Session {
	s := &Session{
		ID:             uuid.New(),
		PeerAddress:    peerAddress,
		Transport:      t,
		state:          StateActive,
		lastActivityAt: time.Now(),
		scoped:         make(map[string]any),
		Pending:        pendingcall.NewTable(),
	}
	s.Proxies = delegate.NewProxyRegistry(nil)
	s.OnBeforeDispose(func(*Session) { s.Proxies.Close() })
	s.OnBeforeDispose(func(*Session) {
		s.Pending.DrainWithError(faults.New(faults.KindConnectionLost, "session disposed"))
	})
	return s
}

// IsEncrypted reports whether this session negotiated a shared secret.
func (s *Session) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.SharedSecret) > 0
}

// Touch updates last_activity_at. The dispatcher touches the session once
// for each inbound call it dispatches; other received envelopes and
// outbound calls on the session do not touch it.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivityAt = time.Now()
	s.mu.Unlock()
}

// LastActivityAt returns the last touch time under a read lock, the
// sweeper's only interaction with session state (spec §5).
func (s *Session) LastActivityAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivityAt
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ScopedInstance implements registry.SessionScope: it returns a
// previously cached Scoped service instance for serviceName, if any.
func (s *Session) ScopedInstance(serviceName string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.scoped[serviceName]
	return inst, ok
}

// SetScopedInstance implements registry.SessionScope.
func (s *Session) SetScopedInstance(serviceName string, instance any) {
	s.mu.Lock()
	s.scoped[serviceName] = instance
	s.mu.Unlock()
}

// OnBeforeDispose registers a hook run once during Dispose, before the
// transport is closed (spec §4.6 before_dispose). Used by the delegate
// proxy registry to unsubscribe every proxy on session teardown.
func (s *Session) OnBeforeDispose(fn BeforeDisposeFunc) {
	s.mu.Lock()
	s.beforeDispose = append(s.beforeDispose, fn)
	s.mu.Unlock()
}

// Dispose transitions the session disposing -> disposed exactly once,
// firing every before_dispose hook before closing the transport (spec
// §4.6). Calling Dispose more than once is a no-op after the first call.
func (s *Session) Dispose() error {
	s.mu.Lock()
	if s.state == StateDisposing || s.state == StateDisposed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisposing
	hooks := append([]BeforeDisposeFunc(nil), s.beforeDispose...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(s)
	}

	err := s.Transport.Close()

	s.mu.Lock()
	s.state = StateDisposed
	s.mu.Unlock()

	return err
}
