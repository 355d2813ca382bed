package server

import (
	"context"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/authprovider"
	"github.com/coreremoting/coreremoting/handshake"
	"github.com/coreremoting/coreremoting/protocol"
	"github.com/coreremoting/coreremoting/protocol/xdrcodec"
	"github.com/coreremoting/coreremoting/registry"
	"github.com/coreremoting/coreremoting/transport"
	"github.com/coreremoting/coreremoting/wire"
)

// chanListener adapts a single pre-connected transport.Transport to the
// transport.Listener contract: Accept yields it exactly once.
type chanListener struct {
	ch chan transport.Transport
}

func newChanListener(t transport.Transport) *chanListener {
	l := &chanListener{ch: make(chan transport.Transport, 1)}
	l.ch <- t
	return l
}

func (l *chanListener) Accept(ctx context.Context) (transport.Transport, error) {
	select {
	case t, ok := <-l.ch:
		if !ok {
			return nil, io.EOF
		}
		return t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *chanListener) Close() error {
	close(l.ch)
	return nil
}

func (l *chanListener) Addr() string { return "inprocess:server" }

type allowAllProvider struct{}

func (allowAllProvider) CanHandle(creds []authprovider.Credential) bool { return true }
func (allowAllProvider) Authenticate(ctx context.Context, creds []authprovider.Credential) (*authprovider.Identity, error) {
	return &authprovider.Identity{Name: "tester", AuthenticationType: "test"}, nil
}
func (allowAllProvider) Name() string { return "allow-all" }

type greeter interface {
	Say(name string) (string, error)
}

type greeterImpl struct{}

func (greeterImpl) Say(name string) (string, error) { return "hello " + name, nil }

func newTestServer(t *testing.T, clientSide transport.Transport) *Server {
	t.Helper()
	ifaceType := reflect.TypeOf((*greeter)(nil)).Elem()
	descriptor, err := registry.NewInterfaceDescriptor("Greeter", ifaceType, nil)
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, reg.Register("Greeter", descriptor, func() (any, error) { return greeterImpl{}, nil }, registry.Singleton))

	cfg := Config{AuthProvider: allowAllProvider{}, Serializer: xdrcodec.New(), Workers: 2}
	return New(newChanListener(clientSide), reg, cfg)
}

type clientDriver struct {
	t     *testing.T
	conn  transport.Transport
	codec *xdrcodec.Codec
}

func (c *clientDriver) send(ctx context.Context, env *wire.Envelope) error {
	return c.conn.Send(ctx, env.Encode())
}

func (c *clientDriver) recv(ctx context.Context) (*wire.Envelope, error) {
	raw, err := c.conn.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return wire.Decode(raw)
}

func (c *clientDriver) handshakeAndAuth(ctx context.Context) {
	_, err := handshake.RunClientHello(ctx, c.send, c.recv, nil, false)
	require.NoError(c.t, err)

	_, err = handshake.RunClientAuth(ctx, c.send, c.recv, c.codec, []protocol.Credential{{Name: "token", Value: "x"}})
	require.NoError(c.t, err)
}

func (c *clientDriver) call(ctx context.Context, corrID uuid.UUID, callMsg protocol.MethodCallMessage) *wire.Envelope {
	payload, err := c.codec.Serialize(&callMsg)
	require.NoError(c.t, err)
	require.NoError(c.t, c.send(ctx, &wire.Envelope{Type: wire.MessageCall, CorrelationID: corrID[:], Payload: payload}))

	env, err := c.recv(ctx)
	require.NoError(c.t, err)
	return env
}

func TestServerDispatchesCallEndToEnd(t *testing.T) {
	serverSide, clientSide := transport.NewInProcessPair()
	defer serverSide.Close()
	defer clientSide.Close()

	srv := newTestServer(t, serverSide)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx) }()

	driver := &clientDriver{t: t, conn: clientSide, codec: xdrcodec.New()}
	driver.handshakeAndAuth(ctx)

	nameBlob, err := protocol.EncodeValue(driver.codec, "alice")
	require.NoError(t, err)

	corrID := uuid.New()
	resultEnv := driver.call(ctx, corrID, protocol.MethodCallMessage{
		ServiceName: "Greeter",
		MethodName:  "Say",
		Parameters:  []protocol.ParamMsg{{Name: "name", TypeName: "string", ValueBlob: nameBlob}},
	})

	require.Equal(t, wire.MessageResult, resultEnv.Type)
	assert.False(t, resultEnv.Error)
	assert.Equal(t, corrID[:], resultEnv.CorrelationID)

	var result protocol.MethodCallResultMessage
	require.NoError(t, driver.codec.Deserialize(resultEnv.Payload, &result))
	assert.False(t, result.IsReturnNull)

	got, err := protocol.DecodeValue(driver.codec, result.ReturnBlob, reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "hello alice", got.Interface())

	require.NoError(t, driver.send(ctx, &wire.Envelope{Type: wire.MessageGoodbye}))
	srv.Stop()

	select {
	case <-serveErr:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestServerReportsUnknownServiceAsFault(t *testing.T) {
	serverSide, clientSide := transport.NewInProcessPair()
	defer serverSide.Close()
	defer clientSide.Close()

	srv := newTestServer(t, serverSide)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer srv.Stop()

	go srv.Serve(ctx)

	driver := &clientDriver{t: t, conn: clientSide, codec: xdrcodec.New()}
	driver.handshakeAndAuth(ctx)

	resultEnv := driver.call(ctx, uuid.New(), protocol.MethodCallMessage{ServiceName: "Missing", MethodName: "Whatever"})
	require.Equal(t, wire.MessageResult, resultEnv.Type)
	assert.True(t, resultEnv.Error)

	var chain protocol.FaultChain
	require.NoError(t, driver.codec.Deserialize(resultEnv.Payload, &chain))
	require.NotEmpty(t, chain.Frames)
	assert.Equal(t, "service_unknown", chain.Frames[0].TypeName)
}
