// Package pendingcall implements the client-side pending-call table of
// spec §4.11: one slot per outstanding call, keyed by correlation id,
// completed exactly once by a result, a timeout, a cancellation, or a
// transport close.
package pendingcall

import (
	"sync"

	"github.com/coreremoting/coreremoting/faults"
)

// Result is what a slot resolves to: either a decoded return value/out
// parameters (opaque to this package) or a fault.
type Result struct {
	Value any
	Err   error
}

// slot is a single-fire completion channel plus the bookkeeping needed to
// guarantee at-most-one completion (testable property 6).
type slot struct {
	done chan Result
	once sync.Once
}

func newSlot() *slot {
	return &slot{done: make(chan Result, 1)}
}

func (s *slot) complete(r Result) bool {
	fired := false
	s.once.Do(func() {
		s.done <- r
		fired = true
	})
	return fired
}

// Table is the per-session pending-call table (spec §4.11).
type Table struct {
	mu    sync.Mutex
	slots map[[16]byte]*slot
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{slots: make(map[[16]byte]*slot)}
}

// Register inserts a new slot for correlationID before the caller sends
// its call envelope (spec §4.11 "On send: insert before writing"). It
// returns faults.KindProtocolViolation if correlationID is already in use,
// since correlation ids must be unique within a session (testable
// property 5) and a generator collision is a protocol-level bug.
func (t *Table) Register(correlationID [16]byte) (<-chan Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.slots[correlationID]; exists {
		return nil, faults.New(faults.KindProtocolViolation, "correlation id collision within session")
	}
	s := newSlot()
	t.slots[correlationID] = s
	return s.done, nil
}

// Complete removes and completes the slot for correlationID with a
// result. It is a no-op if no such slot exists (e.g. a duplicate or
// late-arriving result for an already-completed/timed-out call).
func (t *Table) Complete(correlationID [16]byte, value any, err error) {
	t.mu.Lock()
	s, ok := t.slots[correlationID]
	if ok {
		delete(t.slots, correlationID)
	}
	t.mu.Unlock()

	if ok {
		s.complete(Result{Value: value, Err: err})
	}
}

// Cancel removes and completes correlationID's slot with
// faults.KindCancelled, if it is still pending.
func (t *Table) Cancel(correlationID [16]byte) {
	t.Complete(correlationID, nil, faults.New(faults.KindCancelled, "call cancelled by caller"))
}

// Timeout removes and completes correlationID's slot with
// faults.KindCallTimeout, if it is still pending.
func (t *Table) Timeout(correlationID [16]byte) {
	t.Complete(correlationID, nil, faults.New(faults.KindCallTimeout, "call timed out"))
}

// DrainWithError completes every still-pending slot with err and empties
// the table, used when the owning transport closes (spec §4.11 "On
// transport close: drain the table and complete every slot with
// connection_lost").
func (t *Table) DrainWithError(err error) {
	t.mu.Lock()
	slots := t.slots
	t.slots = make(map[[16]byte]*slot)
	t.mu.Unlock()

	for _, s := range slots {
		s.complete(Result{Err: err})
	}
}

// Len returns the number of pending slots, for tests and diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
