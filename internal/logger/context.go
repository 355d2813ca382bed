package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single method
// invocation (spec §4.8) as it flows through handshake, dispatch, and the
// delegate-invocation paths.
type LogContext struct {
	TraceID       string    // OpenTelemetry trace ID
	SpanID        string    // OpenTelemetry span ID
	ServiceName   string    // target service name (spec §4.6)
	MethodName    string    // target method name
	SessionID     string    // session.Session id, hex-encoded
	CorrelationID string    // pending-call correlation id, hex-encoded
	ClientIP      string    // client address (without port)
	IdentityName  string    // authprovider.Identity.Name once authenticated
	StartTime     time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client address
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:       lc.TraceID,
		SpanID:        lc.SpanID,
		ServiceName:   lc.ServiceName,
		MethodName:    lc.MethodName,
		SessionID:     lc.SessionID,
		CorrelationID: lc.CorrelationID,
		ClientIP:      lc.ClientIP,
		IdentityName:  lc.IdentityName,
		StartTime:     lc.StartTime,
	}
}

// WithCall returns a copy with the target service/method set
func (lc *LogContext) WithCall(serviceName, methodName string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ServiceName = serviceName
		clone.MethodName = methodName
	}
	return clone
}

// WithSession returns a copy with the session id set
func (lc *LogContext) WithSession(sessionID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = sessionID
	}
	return clone
}

// WithCorrelation returns a copy with the correlation id set
func (lc *LogContext) WithCorrelation(correlationID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.CorrelationID = correlationID
	}
	return clone
}

// WithIdentity returns a copy with the authenticated identity name set
func (lc *LogContext) WithIdentity(identityName string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.IdentityName = identityName
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
