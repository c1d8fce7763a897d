package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.LayoutRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "frlayout_layout_runs_total",
			Help: "Total number of finished layout runs",
		},
		[]string{"result"}, // completed, stopped
	)

	r.LayoutRunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frlayout_layout_run_duration_seconds",
			Help:    "Wall time from layoutstart to layoutstop in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)

	r.LayoutIterationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "frlayout_layout_iterations_total",
			Help: "Total number of force iterations performed",
		},
	)

	r.LayoutActiveRuns = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "frlayout_layout_active_runs",
			Help: "Number of layout runs currently in progress",
		},
	)

	r.LayoutGraphNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frlayout_layout_graph_nodes",
			Help:    "Number of nodes per laid out graph",
			Buckets: []float64{1, 10, 100, 500, 1000, 5000},
		},
	)

	r.LayoutGraphEdges = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frlayout_layout_graph_edges",
			Help:    "Number of edges per laid out graph",
			Buckets: []float64{1, 10, 100, 1000, 10000, 50000},
		},
	)

	r.LayoutErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "frlayout_layout_errors_total",
			Help: "Total number of layout failures",
		},
		[]string{"kind"}, // structural, config, commit, canceled
	)
}
