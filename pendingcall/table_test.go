package pendingcall

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/faults"
)

func corrID() [16]byte {
	return uuid.New()
}

func TestRegisterCompleteRoundTrip(t *testing.T) {
	table := NewTable()
	id := corrID()

	done, err := table.Register(id)
	require.NoError(t, err)

	table.Complete(id, "the result", nil)

	r := <-done
	assert.Equal(t, "the result", r.Value)
	assert.NoError(t, r.Err)
	assert.Equal(t, 0, table.Len())
}

func TestRegisterDuplicateCorrelationIDFails(t *testing.T) {
	table := NewTable()
	id := corrID()

	_, err := table.Register(id)
	require.NoError(t, err)

	_, err = table.Register(id)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.KindProtocolViolation))
}

// TestAtMostOneCompletion exercises testable property 6: a slot produces
// at most one completion even if Complete/Timeout/Cancel race.
func TestAtMostOneCompletion(t *testing.T) {
	table := NewTable()
	id := corrID()

	done, err := table.Register(id)
	require.NoError(t, err)

	table.Complete(id, "first", nil)
	table.Complete(id, "second", nil) // no-op: slot already removed
	table.Timeout(id)                 // no-op: slot already removed

	r := <-done
	assert.Equal(t, "first", r.Value)

	select {
	case <-done:
		t.Fatal("expected no second completion")
	default:
	}
}

func TestTimeoutCompletesWithCallTimeout(t *testing.T) {
	table := NewTable()
	id := corrID()
	done, err := table.Register(id)
	require.NoError(t, err)

	table.Timeout(id)
	r := <-done
	require.Error(t, r.Err)
	assert.True(t, faults.Is(r.Err, faults.KindCallTimeout))
}

func TestCancelCompletesWithCancelled(t *testing.T) {
	table := NewTable()
	id := corrID()
	done, err := table.Register(id)
	require.NoError(t, err)

	table.Cancel(id)
	r := <-done
	require.Error(t, r.Err)
	assert.True(t, faults.Is(r.Err, faults.KindCancelled))
}

func TestDrainWithErrorCompletesAllPending(t *testing.T) {
	table := NewTable()
	id1, id2 := corrID(), corrID()
	done1, err := table.Register(id1)
	require.NoError(t, err)
	done2, err := table.Register(id2)
	require.NoError(t, err)

	connLost := faults.New(faults.KindConnectionLost, "transport closed")
	table.DrainWithError(connLost)

	r1 := <-done1
	r2 := <-done2
	assert.True(t, faults.Is(r1.Err, faults.KindConnectionLost))
	assert.True(t, faults.Is(r2.Err, faults.KindConnectionLost))
	assert.Equal(t, 0, table.Len())
}

func TestCompleteOnUnknownIDIsNoOp(t *testing.T) {
	table := NewTable()
	assert.NotPanics(t, func() {
		table.Complete(corrID(), "x", nil)
	})
}
