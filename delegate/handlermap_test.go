package delegate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeLookupInvoke(t *testing.T) {
	m := NewHandlerMap()
	var gotArgs [][]byte
	key := m.Subscribe("func(string)", func(argBlobs [][]byte) ([]byte, error) {
		gotArgs = argBlobs
		return nil, nil
	})

	cb, sig, ok := m.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "func(string)", sig)

	_, err := cb([][]byte{[]byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("hi")}, gotArgs)
}

// TestRefCountLifecycle exercises testable property 9: a handler
// registered by N subscribes and released by N unsubscribes is removed;
// the N+1st subscribe produces a fresh handler key.
func TestRefCountLifecycle(t *testing.T) {
	m := NewHandlerMap()
	key := m.Subscribe("sig", func([][]byte) ([]byte, error) { return nil, nil })

	require.True(t, m.AddRef(key))
	require.True(t, m.AddRef(key))
	assert.Equal(t, 1, m.Len())

	assert.True(t, m.Unsubscribe(key))
	assert.True(t, m.Unsubscribe(key))
	_, _, ok := m.Lookup(key)
	assert.True(t, ok, "handler still referenced once more")

	assert.True(t, m.Unsubscribe(key))
	_, _, ok = m.Lookup(key)
	assert.False(t, ok, "handler should be removed once ref-count reaches zero")

	newKey := m.Subscribe("sig", func([][]byte) ([]byte, error) { return nil, nil })
	assert.NotEqual(t, key, newKey)
}

func TestUnsubscribeUnknownKeyIsFalse(t *testing.T) {
	m := NewHandlerMap()
	var key [16]byte
	assert.False(t, m.Unsubscribe(key))
}

func TestLookupDiscardsRemovedHandler(t *testing.T) {
	m := NewHandlerMap()
	key := m.Subscribe("sig", func([][]byte) ([]byte, error) { return nil, nil })
	m.Unsubscribe(key)

	_, _, ok := m.Lookup(key)
	assert.False(t, ok)
}
