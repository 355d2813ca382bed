package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "coreremoting", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("Channel", func(t *testing.T) {
		attr := Channel("coreremoting")
		assert.Equal(t, AttrChannel, string(attr.Key))
		assert.Equal(t, "coreremoting", attr.Value.AsString())
	})

	t.Run("ServiceName", func(t *testing.T) {
		attr := ServiceName("Greeter")
		assert.Equal(t, AttrServiceName, string(attr.Key))
		assert.Equal(t, "Greeter", attr.Value.AsString())
	})

	t.Run("MethodName", func(t *testing.T) {
		attr := MethodName("SayHello")
		assert.Equal(t, AttrMethodName, string(attr.Key))
		assert.Equal(t, "SayHello", attr.Value.AsString())
	})

	t.Run("CorrelationID", func(t *testing.T) {
		attr := CorrelationID("deadbeef")
		assert.Equal(t, AttrCorrelationID, string(attr.Key))
		assert.Equal(t, "deadbeef", attr.Value.AsString())
	})

	t.Run("SessionID", func(t *testing.T) {
		attr := SessionID("abc123")
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, "abc123", attr.Value.AsString())
	})

	t.Run("OneWay", func(t *testing.T) {
		attr := OneWay(true)
		assert.Equal(t, AttrOneWay, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("IdentityName", func(t *testing.T) {
		attr := IdentityName("alice")
		assert.Equal(t, AttrIdentityName, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("AuthType", func(t *testing.T) {
		attr := AuthType("token")
		assert.Equal(t, AttrAuthType, string(attr.Key))
		assert.Equal(t, "token", attr.Value.AsString())
	})

	t.Run("HandlerKey", func(t *testing.T) {
		attr := HandlerKey("OnProgress")
		assert.Equal(t, AttrHandlerKey, string(attr.Key))
		assert.Equal(t, "OnProgress", attr.Value.AsString())
	})

	t.Run("Signature", func(t *testing.T) {
		attr := Signature("OnProgress(int32)")
		assert.Equal(t, AttrSignature, string(attr.Key))
		assert.Equal(t, "OnProgress(int32)", attr.Value.AsString())
	})

	t.Run("FaultKind", func(t *testing.T) {
		attr := FaultKind("Timeout")
		assert.Equal(t, AttrFaultKind, string(attr.Key))
		assert.Equal(t, "Timeout", attr.Value.AsString())
	})
}

func TestStartHandshakeSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartHandshakeSpan(ctx, "hello", ClientAddr("127.0.0.1:5000"))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartHandshakeSpan(ctx, "auth", AuthType("token"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartCallSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartCallSpan(ctx, "Greeter", "SayHello")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartCallSpan(ctx, "Greeter", "SayHello", SessionID("abc123"), CorrelationID("deadbeef"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartDelegateSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDelegateSpan(ctx, "OnProgress(int32)")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartDelegateSpan(ctx, "OnProgress(int32)", HandlerKey("OnProgress"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
