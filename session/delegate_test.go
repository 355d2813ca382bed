package session

import (
	"context"
	"time"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
	"github.com/coreremoting/coreremoting/transport"
	"github.com/coreremoting/coreremoting/wire"
)

func TestInvokeDelegateOneWayDoesNotWaitForReply(t *testing.T) {
	a, b := transport.NewInProcessPair()
	defer a.Close()
	defer b.Close()

	sess := New("peer", a)
	sess.Serializer = xdrcodec.New()

	reply, err := sess.InvokeDelegate(context.Background(), protocol.RemoteDelegateInvocationMessage{ArgBlobs: [][]byte{[]byte("x")}}, true)
	require.NoError(t, err)
	assert.Nil(t, reply)

	data, err := b.Receive(context.Background())
	require.NoError(t, err)
	env, err := wire.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, wire.MessageDelegate, env.Type)
	assert.Empty(t, env.CorrelationID)
}

func TestInvokeDelegateSynchronousWaitsForResult(t *testing.T) {
	a, b := transport.NewInProcessPair()
	defer a.Close()
	defer b.Close()

	sess := New("peer", a)
	sess.Serializer = xdrcodec.New()

	resultCh := make(chan []byte, 1)
	errCh := make(chan error, 1)
	go func() {
		reply, err := sess.InvokeDelegate(context.Background(), protocol.RemoteDelegateInvocationMessage{}, false)
		resultCh <- reply
		errCh <- err
	}()

	data, err := b.Receive(context.Background())
	require.NoError(t, err)
	env, err := wire.Decode(data)
	require.NoError(t, err)
	require.Len(t, env.CorrelationID, 16)

	var corrID [16]byte
	copy(corrID[:], env.CorrelationID)
	sess.Pending.Complete(corrID, []byte("callback-reply"), nil)

	select {
	case reply := <-resultCh:
		require.NoError(t, <-errCh)
		assert.Equal(t, []byte("callback-reply"), reply)
	case <-time.After(time.Second):
		t.Fatal("InvokeDelegate did not return")
	}
}

func TestInvokeDelegateCancelledByContext(t *testing.T) {
	a, b := transport.NewInProcessPair()
	defer a.Close()
	defer b.Close()
	_ = b

	sess := New("peer", a)
	sess.Serializer = xdrcodec.New()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := sess.InvokeDelegate(ctx, protocol.RemoteDelegateInvocationMessage{}, false)
	require.Error(t, err)
}
