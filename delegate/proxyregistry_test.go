package delegate

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/protocol"
)

type recordingInvoker struct {
	calls []protocol.RemoteDelegateInvocationMessage
}

func (r *recordingInvoker) InvokeDelegate(ctx context.Context, msg protocol.RemoteDelegateInvocationMessage, oneWay bool) ([]byte, error) {
	r.calls = append(r.calls, msg)
	if oneWay {
		return nil, nil
	}
	return []byte("reply"), nil
}

func TestGetOrCreateReturnsSameProxyForKey(t *testing.T) {
	reg := NewProxyRegistry(nil)
	key := uuid.New()

	p1 := reg.GetOrCreate(key, []string{"string"}, &recordingInvoker{})
	p2 := reg.GetOrCreate(key, []string{"string"}, &recordingInvoker{})

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, reg.Len())
}

func TestProxyInvokeOneWay(t *testing.T) {
	reg := NewProxyRegistry(nil)
	inv := &recordingInvoker{}
	p := reg.GetOrCreate(uuid.New(), nil, inv)

	reply, err := p.Invoke(context.Background(), [][]byte{[]byte("arg")}, true)
	require.NoError(t, err)
	assert.Nil(t, reply)
	require.Len(t, inv.calls, 1)
}

func TestProxyInvokeSynchronous(t *testing.T) {
	reg := NewProxyRegistry(nil)
	inv := &recordingInvoker{}
	p := reg.GetOrCreate(uuid.New(), nil, inv)

	reply, err := p.Invoke(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("reply"), reply)
}

func TestCloseFiresUnsubscribeExactlyOncePerProxy(t *testing.T) {
	var unsubscribed [][16]byte
	reg := NewProxyRegistry(func(p *Proxy) {
		unsubscribed = append(unsubscribed, p.HandlerKey)
	})

	k1, k2 := uuid.New(), uuid.New()
	reg.GetOrCreate(k1, nil, &recordingInvoker{})
	reg.GetOrCreate(k2, nil, &recordingInvoker{})

	reg.Close()
	assert.Len(t, unsubscribed, 2)
	assert.Equal(t, 0, reg.Len())

	reg.Close()
	assert.Len(t, unsubscribed, 2, "second Close must not re-fire hooks")
}
