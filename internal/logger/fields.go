package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// RPC call identity (spec §4.6/§4.8)
	// ========================================================================
	KeyServiceName   = "service"        // target service name
	KeyMethodName    = "method"         // target method name
	KeyCorrelationID = "correlation_id" // pending-call correlation id (hex)
	KeyGenericArgs   = "generic_args"   // generic type argument names, joined

	// ========================================================================
	// Session / transport
	// ========================================================================
	KeySessionID   = "session_id"   // session.Session id (hex)
	KeyChannel     = "channel"      // transport channel name
	KeyClientIP    = "client_ip"    // client address
	KeyClientPort  = "client_port"  // client source port
	KeyFrameBytes  = "frame_bytes"  // wire frame payload size
	KeyMessageType = "message_type" // wire.MessageType

	// ========================================================================
	// Auth / identity
	// ========================================================================
	KeyIdentityName = "identity_name" // authprovider.Identity.Name
	KeyAuthType     = "auth_type"     // authprovider.Identity.AuthenticationType
	KeyCredentials  = "credentials"   // credential names presented, joined

	// ========================================================================
	// Delegate invocation (spec §4.9)
	// ========================================================================
	KeyHandlerKey = "handler_key" // delegate.HandlerMap key
	KeySignature  = "signature"   // delegate wire signature

	// ========================================================================
	// Outcome / diagnostics
	// ========================================================================
	KeyFaultKind  = "fault_kind"  // faults.Kind
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyAttempt    = "attempt"     // retry/reconnect attempt number
	KeyMaxRetries = "max_retries" // configured retry ceiling
	KeyErrorCode  = "error_code"  // numeric error code, where one exists
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for the OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ServiceName returns a slog.Attr for the target service name
func ServiceName(name string) slog.Attr {
	return slog.String(KeyServiceName, name)
}

// MethodName returns a slog.Attr for the target method name
func MethodName(name string) slog.Attr {
	return slog.String(KeyMethodName, name)
}

// CorrelationID returns a slog.Attr for a pending-call correlation id
func CorrelationID(id string) slog.Attr {
	return slog.String(KeyCorrelationID, id)
}

// SessionID returns a slog.Attr for a session id
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Channel returns a slog.Attr for a transport channel name
func Channel(name string) slog.Attr {
	return slog.String(KeyChannel, name)
}

// ClientIP returns a slog.Attr for a client address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for a client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// FrameBytes returns a slog.Attr for a wire frame payload size
func FrameBytes(n int) slog.Attr {
	return slog.Int(KeyFrameBytes, n)
}

// MessageType returns a slog.Attr for a wire message type
func MessageType(t string) slog.Attr {
	return slog.String(KeyMessageType, t)
}

// IdentityName returns a slog.Attr for an authenticated identity's name
func IdentityName(name string) slog.Attr {
	return slog.String(KeyIdentityName, name)
}

// AuthType returns a slog.Attr for an authentication provider/type
func AuthType(authType string) slog.Attr {
	return slog.String(KeyAuthType, authType)
}

// HandlerKey returns a slog.Attr for a delegate handler key
func HandlerKey(key string) slog.Attr {
	return slog.String(KeyHandlerKey, key)
}

// Signature returns a slog.Attr for a delegate wire signature
func Signature(sig string) slog.Attr {
	return slog.String(KeySignature, sig)
}

// FaultKind returns a slog.Attr for a faults.Kind value
func FaultKind(kind string) slog.Attr {
	return slog.String(KeyFaultKind, kind)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Attempt returns a slog.Attr for a retry/reconnect attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for a configured retry ceiling
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// ErrorCode returns a slog.Attr for a numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Err returns a slog.Attr for an error value, or a no-op attr if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
