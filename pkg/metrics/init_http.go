package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP and auth metrics for the serve command's API.
func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)
	labels := []string{"method", "path", "status"}

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: "frlayout",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "API requests by route and status code",
	}, labels)
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "frlayout",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "API latency by route and status code",
		Buckets:   prometheus.DefBuckets,
	}, labels)
	r.HTTPRequestsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: "frlayout",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "API requests currently being served",
	})
	// layout responses scale with the node count
	r.HTTPResponseSizeBytes = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "frlayout",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "API response body size",
		Buckets:   prometheus.ExponentialBuckets(256, 8, 6),
	}, []string{"method", "path"})

	r.AuthFailuresTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: "frlayout",
		Name:      "auth_failures_total",
		Help:      "Bearer tokens that failed validation",
	})
	r.SecurityUnauthorizedAccessTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: "frlayout",
		Subsystem: "security",
		Name:      "unauthorized_access_total",
		Help:      "Requests to protected routes without an allowed role",
	})
}
