// Package delegate implements the remote-delegate registry of spec §4.9:
// client-side handlers keyed by handler key with ref-counted subscription,
// and server-side proxy delegates bound to the session that created them.
package delegate

import (
	"sync"

	"github.com/google/uuid"
)

// Callback is a client-registered handler invoked when a delegate
// envelope arrives referencing its handler key.
type Callback func(argBlobs [][]byte) (replyBlob []byte, err error)

type handlerEntry struct {
	callback Callback
	signature string
	refCount  int
}

// HandlerMap is the client-side table of registered delegate callbacks
// (spec §4.9). A handler is created on first Subscribe and removed when
// its ref-count returns to zero via Unsubscribe.
type HandlerMap struct {
	mu       sync.Mutex
	handlers map[[16]byte]*handlerEntry
}

// NewHandlerMap returns an empty HandlerMap.
func NewHandlerMap() *HandlerMap {
	return &HandlerMap{handlers: make(map[[16]byte]*handlerEntry)}
}

// Subscribe registers cb under a fresh handler key and returns it. Each
// call to Subscribe for what the caller considers "the same" delegate
// must be paired with one Unsubscribe of the returned key; this package
// does not deduplicate by callback identity, matching spec §4.9's "fresh
// handler_key" wording -- identity-based reuse is the caller's concern.
func (h *HandlerMap) Subscribe(signature string, cb Callback) [16]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := uuid.New()
	h.handlers[key] = &handlerEntry{callback: cb, signature: signature, refCount: 1}
	return key
}

// AddRef increments the ref-count of an already-registered handler key,
// used when a second subscribe operation references the same key (spec
// §4.9's "tracks a ref-count per handler_key across outstanding
// subscriptions").
func (h *HandlerMap) AddRef(key [16]byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.handlers[key]
	if !ok {
		return false
	}
	entry.refCount++
	return true
}

// Unsubscribe decrements the ref-count for key, removing the handler once
// it reaches zero (testable property 9). It returns false if key is not
// registered.
func (h *HandlerMap) Unsubscribe(key [16]byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.handlers[key]
	if !ok {
		return false
	}
	entry.refCount--
	if entry.refCount <= 0 {
		delete(h.handlers, key)
	}
	return true
}

// Lookup returns the callback registered under key, if present. A missing
// key (e.g. after the ref-count dropped to zero) means the caller should
// discard the inbound delegate invocation with a warning (spec §4.9).
func (h *HandlerMap) Lookup(key [16]byte) (Callback, string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.handlers[key]
	if !ok {
		return nil, "", false
	}
	return entry.callback, entry.signature, true
}

// Len reports the number of distinct handler keys currently registered.
func (h *HandlerMap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers)
}
