package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CallMetrics tracks method-invocation counts and latency (spec §4.8).
type CallMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCallMetrics returns a CallMetrics bound to the process registry, or
// nil if metrics are disabled.
func NewCallMetrics() *CallMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	return &CallMetrics{
		total: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "coreremoting_calls_total",
			Help: "Total number of method invocations dispatched, by service, method, and outcome.",
		}, []string{"service", "method", "outcome"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "coreremoting_call_duration_seconds",
			Help: "Method invocation duration in seconds, from dispatch to result.",
			Buckets: []float64{
				0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30,
			},
		}, []string{"service", "method"}),
	}
}

// Observe records one invocation of service.method with the given outcome
// ("success", "fault", "timeout", "cancelled") and its wall-clock duration.
func (m *CallMetrics) Observe(service, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.total.WithLabelValues(service, method, outcome).Inc()
	m.duration.WithLabelValues(service, method).Observe(duration.Seconds())
}
