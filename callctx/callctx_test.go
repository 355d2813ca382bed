package callctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAndGet(t *testing.T) {
	c := New().With("k", "v1")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestWithIsImmutable(t *testing.T) {
	base := New().With("k", "v1")
	derived := base.With("k", "v2")

	v, _ := base.Get("k")
	assert.Equal(t, "v1", v, "original context must not be mutated")

	v, _ = derived.Get("k")
	assert.Equal(t, "v2", v)
}

// TestCallContextFlow exercises testable property 7: a client that sets
// k=v1 and receives k=v2 back observes v2 in its own context afterwards.
func TestCallContextFlow(t *testing.T) {
	clientCtx := New().With("k", "v1")

	// ... call travels to the server, which mutates its own copy ...
	serverCtx := clientCtx.Clone().With("k", "v2")

	merged := clientCtx.Merge(serverCtx)
	v, ok := merged.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestRoundTripEntries(t *testing.T) {
	c := New().With("a", "1").With("b", "2")
	entries := c.Entries()
	rebuilt := FromEntries(entries)

	a, _ := rebuilt.Get("a")
	b, _ := rebuilt.Get("b")
	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestContextAttachment(t *testing.T) {
	cc := New().With("trace", "abc")
	ctx := WithContext(context.Background(), cc)

	got := FromContext(ctx)
	v, ok := got.Get("trace")
	require.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestFromContextEmptyWhenAbsent(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got.Entries())
}
