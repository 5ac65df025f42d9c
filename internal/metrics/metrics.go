// Package metrics declares the Prometheus collectors of the front end.
// Collectors are usable before registration; Register exposes them.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shopsearch"

var (
	// HTTPRequestDuration observes front-end request latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts front-end requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendRequestsTotal counts search backend calls by operation and outcome.
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total search backend requests by operation and status.",
		},
		[]string{"operation", "status"},
	)

	// BackendRequestDuration observes search backend latency.
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Search backend request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// ResultCacheTotal counts result cache lookups.
	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"kind", "result"}, // kind: text/image, result: hit/miss
	)

	// StoreTransitionsTotal counts reducer transitions. Discarded stale
	// completions are counted with accepted="false".
	StoreTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_transitions_total",
			Help:      "Search state transitions by action",
		},
		[]string{"action", "accepted"},
	)

	// ActiveSessions tracks live browser sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live search sessions",
		},
	)
)

var (
	registerMu sync.Mutex
	registered = map[prometheus.Registerer]bool{}
)

// Register registers all collectors on reg. Calling it again for the same
// registerer is a no-op.
func Register(reg prometheus.Registerer) error {
	registerMu.Lock()
	defer registerMu.Unlock()

	if registered[reg] {
		return nil
	}
	collectors := []prometheus.Collector{
		HTTPRequestDuration,
		HTTPRequestsTotal,
		BackendRequestsTotal,
		BackendRequestDuration,
		ResultCacheTotal,
		StoreTransitionsTotal,
		ActiveSessions,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register metric: %w", err)
		}
	}
	registered[reg] = true
	return nil
}
