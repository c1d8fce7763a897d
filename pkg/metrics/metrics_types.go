package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns a private Prometheus registry and every collector the
// layout service exports. Collectors are registered in NewRegistry and are
// never nil afterwards.
type Registry struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	LayoutRunsTotal       *prometheus.CounterVec
	LayoutRunDuration     prometheus.Histogram
	LayoutIterationsTotal prometheus.Counter
	LayoutActiveRuns      prometheus.Gauge
	LayoutGraphNodes      prometheus.Histogram
	LayoutGraphEdges      prometheus.Histogram
	LayoutErrorsTotal     *prometheus.CounterVec

	OffloadSnapshotsTotal   *prometheus.CounterVec
	OffloadFrameSizeBytes   prometheus.Histogram
	OffloadPublishersActive prometheus.Gauge

	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	AuthFailuresTotal               prometheus.Counter
	SecurityUnauthorizedAccessTotal prometheus.Counter

	// process
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

// NewRegistry builds a registry with all collectors registered. Each call is
// independent, so tests and separate servers never share counters.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initHTTPMetrics()
	r.initLayoutMetrics()
	r.initOffloadMetrics()
	r.initSystemMetrics()
	return r
}

// GetPrometheusRegistry exposes the registry for promhttp.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
