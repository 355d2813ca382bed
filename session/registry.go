package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/transport"
)

// CreatedHook is invoked synchronously after a new session is inserted
// (spec §4.6 session_created event).
type CreatedHook func(*Session)

// Registry is the concurrent session table of spec §4.6.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	onCreated []CreatedHook
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// OnCreated registers a hook fired whenever Create inserts a new session.
func (r *Registry) OnCreated(hook CreatedHook) {
	r.mu.Lock()
	r.onCreated = append(r.onCreated, hook)
	r.mu.Unlock()
}

// Create builds a new Session over t, assigns it a fresh id, inserts it,
// and fires every registered CreatedHook (spec §4.6 create()).
func (r *Registry) Create(peerAddress string, t transport.Transport) *Session {
	sess := New(peerAddress, t)

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	hooks := append([]CreatedHook(nil), r.onCreated...)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(sess)
	}
	return sess
}

// Get returns the session registered under id, if any.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Remove deletes id from the registry without disposing it -- callers
// that want disposal too should call Session.Dispose themselves
// (separated so the sweeper can dispose outside the registry lock).
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Iterate returns a snapshot of every session currently registered.
func (r *Registry) Iterate() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// MustGet is a convenience for callers that have already validated id
// exists (e.g. right after Create); it panics otherwise, so it is never
// used on attacker-controlled ids.
func (r *Registry) MustGet(id uuid.UUID) *Session {
	sess, ok := r.Get(id)
	if !ok {
		panic("session: MustGet on unknown id " + id.String())
	}
	return sess
}

// errNotFound is a faults.Kind-typed "no such session" error, using
// faults.KindNotConnected as the closest matching closed-set kind; no code
// in the package returns it (Get reports a missing session with a bool).
var errNotFound = faults.New(faults.KindNotConnected, "no such session")
