package xdrcodec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreremoting/coreremoting/protocol"
)

func TestMethodCallMessageRoundTrip(t *testing.T) {
	codec := New()

	msg := protocol.MethodCallMessage{
		ServiceName:         "Greeter",
		MethodName:          "SayHello",
		GenericTypeArgNames: []string{"string"},
		Parameters: []protocol.ParamMsg{
			{Name: "name", TypeName: "string", ValueBlob: []byte("world")},
			{Name: "loud", TypeName: "bool", IsOut: true},
		},
		CallContextEntries: []protocol.CallContextEntry{
			{Name: "trace_id", ValueBlob: []byte("abc123")},
		},
	}

	data, err := codec.Serialize(&msg)
	require.NoError(t, err)

	var got protocol.MethodCallMessage
	require.NoError(t, codec.Deserialize(data, &got))

	assert.Equal(t, msg, got)
}

func TestResultMessageRoundTrip(t *testing.T) {
	codec := New()

	msg := protocol.MethodCallResultMessage{
		IsReturnNull: false,
		ReturnBlob:   []byte("hello world"),
		OutParameters: []protocol.OutParamMsg{
			{Name: "loud", ValueBlob: []byte{0x01}},
		},
	}

	data, err := codec.Serialize(&msg)
	require.NoError(t, err)

	var got protocol.MethodCallResultMessage
	require.NoError(t, codec.Deserialize(data, &got))
	assert.Equal(t, msg, got)
}

func TestEnvelopeWrapsScalar(t *testing.T) {
	codec := New()
	assert.True(t, codec.NeedsEnvelope())

	data, err := protocol.EncodeValue(codec, "plain string argument")
	require.NoError(t, err)

	got, err := protocol.DecodeValue(codec, data, reflect.TypeOf(""))
	require.NoError(t, err)
	assert.Equal(t, "plain string argument", got.Interface())
}

func TestEnvelopeWrapsInt32(t *testing.T) {
	codec := New()

	data, err := protocol.EncodeValue(codec, int32(42))
	require.NoError(t, err)

	got, err := protocol.DecodeValue(codec, data, reflect.TypeOf(int32(0)))
	require.NoError(t, err)
	assert.Equal(t, int32(42), got.Interface())
}

func TestFaultChainRoundTrip(t *testing.T) {
	codec := New()

	chain := protocol.FaultChain{
		Frames: []protocol.FaultFrame{
			{TypeName: "service_faulted", Message: "outer", Data: []protocol.FaultDatum{{Key: "k", Value: "v"}}},
			{TypeName: "internal_error", Message: "inner"},
		},
	}

	data, err := codec.Serialize(&chain)
	require.NoError(t, err)

	var got protocol.FaultChain
	require.NoError(t, codec.Deserialize(data, &got))
	assert.Equal(t, chain, got)
}
