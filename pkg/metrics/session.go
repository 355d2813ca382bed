package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SessionMetrics tracks session lifecycle counts (spec §4.11).
type SessionMetrics struct {
	active prometheus.Gauge
	opened prometheus.Counter
	closed *prometheus.CounterVec
}

// NewSessionMetrics returns a SessionMetrics bound to the process registry,
// or nil if metrics are disabled. Callers pass nil straight through to
// server.Server (its Config.SessionMetrics), which treats a nil *SessionMetrics as a no-op.
func NewSessionMetrics() *SessionMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	return &SessionMetrics{
		active: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "coreremoting_sessions_active",
			Help: "Number of currently connected sessions.",
		}),
		opened: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "coreremoting_sessions_opened_total",
			Help: "Total number of sessions that completed the handshake.",
		}),
		closed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "coreremoting_sessions_closed_total",
			Help: "Total number of sessions closed, by reason.",
		}, []string{"reason"}),
	}
}

// RecordOpened increments the opened-session counter. No-op on a nil
// receiver so call sites never need an IsEnabled check.
func (m *SessionMetrics) RecordOpened() {
	if m == nil {
		return
	}
	m.opened.Inc()
	m.active.Inc()
}

// RecordClosed decrements the active gauge and increments the closed
// counter for reason (one of "client_disconnect", "idle_timeout",
// "handshake_failed", "server_shutdown").
func (m *SessionMetrics) RecordClosed(reason string) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.closed.WithLabelValues(reason).Inc()
}
