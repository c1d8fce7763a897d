package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOffloadMetrics() {
	r.OffloadSnapshotsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "frlayout_offload_snapshots_total",
			Help: "Position snapshots handled by offloaded runs",
		},
		[]string{"outcome"}, // posted, coalesced, delivered, published
	)

	r.OffloadFrameSizeBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frlayout_offload_frame_size_bytes",
			Help:    "Compressed size of published snapshot frames",
			Buckets: []float64{64, 512, 4096, 32768, 262144, 1048576},
		},
	)

	r.OffloadPublishersActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "frlayout_offload_publishers_active",
			Help: "Number of open snapshot publishers",
		},
	)
}
