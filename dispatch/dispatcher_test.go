package dispatch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/delegate"
	"github.com/coreremoting/coreremoting/faults"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
	"github.com/coreremoting/coreremoting/registry"
)

type greeter interface {
	Say(name string) (string, error)
	Shout(msg string, loud *bool) error
	Fail() error
	Panic() error
	Notify(cb func(string)) error
	FireAndForget(name string)
}

type greeterImpl struct {
	mu          sync.Mutex
	fireLog     []string
	notifyCalls int
}

func (g *greeterImpl) Say(name string) (string, error) { return "hello " + name, nil }

func (g *greeterImpl) Shout(msg string, loud *bool) error {
	*loud = len(msg) > 3
	return nil
}

func (g *greeterImpl) Fail() error { return errors.New("boom") }

func (g *greeterImpl) Panic() error { panic("kaboom") }

func (g *greeterImpl) Notify(cb func(string)) error {
	g.mu.Lock()
	g.notifyCalls++
	g.mu.Unlock()
	cb("event")
	return nil
}

func (g *greeterImpl) FireAndForget(name string) {
	g.mu.Lock()
	g.fireLog = append(g.fireLog, name)
	g.mu.Unlock()
}

type fakeSession struct {
	scoped  map[string]any
	proxies *delegate.ProxyRegistry

	mu      sync.Mutex
	invoked []protocol.RemoteDelegateInvocationMessage
}

func newFakeSession() *fakeSession {
	return &fakeSession{scoped: map[string]any{}, proxies: delegate.NewProxyRegistry(nil)}
}

func (f *fakeSession) ScopedInstance(name string) (any, bool) { v, ok := f.scoped[name]; return v, ok }
func (f *fakeSession) SetScopedInstance(name string, inst any) { f.scoped[name] = inst }
func (f *fakeSession) DelegateProxies() *delegate.ProxyRegistry { return f.proxies }
func (f *fakeSession) InvokeDelegate(ctx context.Context, msg protocol.RemoteDelegateInvocationMessage, oneWay bool) ([]byte, error) {
	f.mu.Lock()
	f.invoked = append(f.invoked, msg)
	f.mu.Unlock()
	return nil, nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *greeterImpl) {
	t.Helper()
	impl := &greeterImpl{}
	ifaceType := reflect.TypeOf((*greeter)(nil)).Elem()
	descriptor, err := registry.NewInterfaceDescriptor("Greeter", ifaceType, map[string]bool{"FireAndForget": true})
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, reg.Register("Greeter", descriptor, func() (any, error) { return impl, nil }, registry.Singleton))

	d := New(reg, xdrcodec.New(), 2, nil)
	t.Cleanup(d.Stop)
	return d, impl
}

func scalarParam(t *testing.T, codec *xdrcodec.Codec, name, typeName string, v any) protocol.ParamMsg {
	t.Helper()
	blob, err := protocol.EncodeValue(codec, v)
	require.NoError(t, err)
	return protocol.ParamMsg{Name: name, TypeName: typeName, ValueBlob: blob}
}

func TestDispatchReturnsValue(t *testing.T) {
	d, _ := newTestDispatcher(t)
	codec := xdrcodec.New()

	call := protocol.MethodCallMessage{
		ServiceName: "Greeter",
		MethodName:  "Say",
		Parameters:  []protocol.ParamMsg{scalarParam(t, codec, "name", "string", "alice")},
	}

	outcome := d.Dispatch(context.Background(), newFakeSession(), call)
	require.Nil(t, outcome.Fault)
	require.NotNil(t, outcome.Result)
	assert.False(t, outcome.Result.IsReturnNull)

	got, err := protocol.DecodeValue(codec, outcome.Result.ReturnBlob, reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "hello alice", got.Interface())
}

func TestDispatchPopulatesOutParameter(t *testing.T) {
	d, _ := newTestDispatcher(t)
	codec := xdrcodec.New()

	call := protocol.MethodCallMessage{
		ServiceName: "Greeter",
		MethodName:  "Shout",
		Parameters: []protocol.ParamMsg{
			scalarParam(t, codec, "msg", "string", "hello"),
			{Name: "loud", TypeName: "*bool", IsOut: true, IsNull: true},
		},
	}

	outcome := d.Dispatch(context.Background(), newFakeSession(), call)
	require.Nil(t, outcome.Fault)
	require.NotNil(t, outcome.Result)
	require.Len(t, outcome.Result.OutParameters, 1)

	got, err := protocol.DecodeValue(codec, outcome.Result.OutParameters[0].ValueBlob, reflect.TypeOf(false))
	require.NoError(t, err)
	assert.Equal(t, true, got.Interface())
}

func TestDispatchServiceErrorProducesFault(t *testing.T) {
	d, _ := newTestDispatcher(t)

	call := protocol.MethodCallMessage{ServiceName: "Greeter", MethodName: "Fail"}
	outcome := d.Dispatch(context.Background(), newFakeSession(), call)

	require.Nil(t, outcome.Result)
	require.NotNil(t, outcome.Fault)
	fault := faults.FromChain(*outcome.Fault)
	assert.Equal(t, "boom", fault.Message)
}

func TestDispatchRecoversPanicAsFault(t *testing.T) {
	d, _ := newTestDispatcher(t)

	call := protocol.MethodCallMessage{ServiceName: "Greeter", MethodName: "Panic"}
	outcome := d.Dispatch(context.Background(), newFakeSession(), call)

	require.Nil(t, outcome.Result)
	require.NotNil(t, outcome.Fault)
	fault := faults.FromChain(*outcome.Fault)
	assert.True(t, faults.Is(fault, faults.KindServiceFaulted))
	assert.NotEmpty(t, fault.StackText)
}

func TestDispatchUnknownServiceProducesFault(t *testing.T) {
	d, _ := newTestDispatcher(t)

	call := protocol.MethodCallMessage{ServiceName: "Missing", MethodName: "Anything"}
	outcome := d.Dispatch(context.Background(), newFakeSession(), call)

	require.NotNil(t, outcome.Fault)
	fault := faults.FromChain(*outcome.Fault)
	assert.True(t, faults.Is(fault, faults.KindServiceUnknown))
}

func TestDispatchOneWayMethodProducesNoOutcome(t *testing.T) {
	d, impl := newTestDispatcher(t)

	call := protocol.MethodCallMessage{
		ServiceName: "Greeter",
		MethodName:  "FireAndForget",
		Parameters:  []protocol.ParamMsg{scalarParam(t, xdrcodec.New(), "name", "string", "bob")},
	}

	outcome := d.Dispatch(context.Background(), newFakeSession(), call)
	assert.True(t, outcome.OneWay)
	assert.Nil(t, outcome.Result)
	assert.Nil(t, outcome.Fault)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		impl.mu.Lock()
		n := len(impl.fireLog)
		impl.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	impl.mu.Lock()
	defer impl.mu.Unlock()
	require.Len(t, impl.fireLog, 1)
	assert.Equal(t, "bob", impl.fireLog[0])
}

func TestDispatchMaterializesDelegateProxy(t *testing.T) {
	d, impl := newTestDispatcher(t)
	codec := xdrcodec.New()

	handle := protocol.DelegateHandle{HandlerKey: uuid.New(), Signature: "func(string)"}
	handleBlob, err := codec.Serialize(&handle)
	require.NoError(t, err)

	call := protocol.MethodCallMessage{
		ServiceName: "Greeter",
		MethodName:  "Notify",
		Parameters:  []protocol.ParamMsg{{Name: "cb", TypeName: "func(string)", ValueBlob: handleBlob}},
	}

	sess := newFakeSession()
	outcome := d.Dispatch(context.Background(), sess, call)
	require.Nil(t, outcome.Fault)
	require.NotNil(t, outcome.Result)

	assert.Equal(t, 1, impl.notifyCalls)
	require.Len(t, sess.invoked, 1)
	assert.Equal(t, handle.HandlerKey, sess.invoked[0].HandlerKey)
	assert.Equal(t, 1, sess.proxies.Len())
}

func TestSubmitDeliversOutcomeAsynchronously(t *testing.T) {
	d, _ := newTestDispatcher(t)
	codec := xdrcodec.New()

	call := protocol.MethodCallMessage{
		ServiceName: "Greeter",
		MethodName:  "Say",
		Parameters:  []protocol.ParamMsg{scalarParam(t, codec, "name", "string", "carol")},
	}

	done := make(chan Outcome, 1)
	d.Submit(context.Background(), newFakeSession(), call, func(o Outcome) { done <- o })

	select {
	case o := <-done:
		require.NotNil(t, o.Result)
	case <-time.After(time.Second):
		t.Fatal("Submit did not deliver an outcome")
	}
}
