package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for RPC operations, following OpenTelemetry
// semantic conventions where applicable.
const (
	// ========================================================================
	// Client / transport attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrChannel    = "rpc.channel"

	// ========================================================================
	// Call attributes (spec §4.6/§4.8)
	// ========================================================================
	AttrServiceName   = "rpc.service"
	AttrMethodName    = "rpc.method"
	AttrCorrelationID = "rpc.correlation_id"
	AttrSessionID     = "rpc.session_id"
	AttrOneWay        = "rpc.one_way"

	// ========================================================================
	// Auth / identity attributes
	// ========================================================================
	AttrIdentityName = "rpc.identity"
	AttrAuthType     = "rpc.auth_type"

	// ========================================================================
	// Delegate invocation attributes (spec §4.9)
	// ========================================================================
	AttrHandlerKey = "rpc.delegate.handler_key"
	AttrSignature  = "rpc.delegate.signature"

	// ========================================================================
	// Outcome attributes
	// ========================================================================
	AttrFaultKind = "rpc.fault_kind"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Channel returns an attribute for the transport channel name
func Channel(name string) attribute.KeyValue {
	return attribute.String(AttrChannel, name)
}

// ServiceName returns an attribute for the target service name
func ServiceName(name string) attribute.KeyValue {
	return attribute.String(AttrServiceName, name)
}

// MethodName returns an attribute for the target method name
func MethodName(name string) attribute.KeyValue {
	return attribute.String(AttrMethodName, name)
}

// CorrelationID returns an attribute for a pending-call correlation id
func CorrelationID(id string) attribute.KeyValue {
	return attribute.String(AttrCorrelationID, id)
}

// SessionID returns an attribute for a session id
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// OneWay returns an attribute marking a call as fire-and-forget
func OneWay(oneWay bool) attribute.KeyValue {
	return attribute.Bool(AttrOneWay, oneWay)
}

// IdentityName returns an attribute for an authenticated identity's name
func IdentityName(name string) attribute.KeyValue {
	return attribute.String(AttrIdentityName, name)
}

// AuthType returns an attribute for the authentication provider/type
func AuthType(authType string) attribute.KeyValue {
	return attribute.String(AttrAuthType, authType)
}

// HandlerKey returns an attribute for a delegate handler key
func HandlerKey(key string) attribute.KeyValue {
	return attribute.String(AttrHandlerKey, key)
}

// Signature returns an attribute for a delegate wire signature
func Signature(sig string) attribute.KeyValue {
	return attribute.String(AttrSignature, sig)
}

// FaultKind returns an attribute for a faults.Kind value
func FaultKind(kind string) attribute.KeyValue {
	return attribute.String(AttrFaultKind, kind)
}

// StartHandshakeSpan starts a span for a hello/auth handshake phase
// ("hello" or "auth").
func StartHandshakeSpan(ctx context.Context, phase string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "handshake."+phase, trace.WithAttributes(attrs...))
}

// StartCallSpan starts a span for a dispatched method invocation, setting
// the service/method attributes common to every call.
func StartCallSpan(ctx context.Context, serviceName, methodName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ServiceName(serviceName),
		MethodName(methodName),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "dispatch.invoke", trace.WithAttributes(allAttrs...))
}

// StartDelegateSpan starts a span for a server-to-client delegate
// invocation.
func StartDelegateSpan(ctx context.Context, signature string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Signature(signature),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "delegate.invoke", trace.WithAttributes(allAttrs...))
}
