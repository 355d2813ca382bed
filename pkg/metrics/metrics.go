// Package metrics wires session, call, and delegate-invocation counters and
// histograms into a Prometheus registry, following the teacher's pattern of
// an explicit Init step plus nil-safe "New*Metrics" constructors rather than
// package-global collectors recording into the default registry.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry. Metrics
// constructors (NewSessionMetrics, NewCallMetrics, NewDelegateMetrics)
// return nil until this has been called with enabled=true, giving callers
// zero overhead when metrics are turned off.
func InitRegistry(metricsEnabled bool) *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	enabled = metricsEnabled
	if !enabled {
		registry = nil
		return nil
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// IsEnabled reports whether InitRegistry was last called with enabled=true.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format. Safe to call even when metrics are disabled; it then
// serves an empty registry.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
