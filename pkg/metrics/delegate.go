package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DelegateMetrics tracks server-to-client delegate invocation outcomes
// (spec §4.9).
type DelegateMetrics struct {
	invocations *prometheus.CounterVec
}

// NewDelegateMetrics returns a DelegateMetrics bound to the process
// registry, or nil if metrics are disabled.
func NewDelegateMetrics() *DelegateMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	return &DelegateMetrics{
		invocations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "coreremoting_delegate_invocations_total",
			Help: "Total number of server-to-client delegate invocations, by outcome.",
		}, []string{"outcome"}),
	}
}

// Observe records one delegate invocation outcome ("success", "fault",
// "connection_lost", "cancelled").
func (m *DelegateMetrics) Observe(outcome string) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(outcome).Inc()
}
