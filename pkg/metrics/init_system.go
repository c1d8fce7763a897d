package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	gauge := func(name, help string) prometheus.Gauge {
		return promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
			Namespace: "frlayout",
			Name:      name,
			Help:      help,
		})
	}
	r.UptimeSeconds = gauge("uptime_seconds", "Seconds since the process started serving")
	r.GoRoutines = gauge("goroutines", "Live goroutines, including layout workers")
	r.MemoryAllocBytes = gauge("memory_alloc_bytes", "Heap bytes currently allocated")
	r.MemorySysBytes = gauge("memory_sys_bytes", "Bytes obtained from the OS by the Go runtime")

	r.StorageOperationsTotal = promauto.With(r.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "frlayout",
		Subsystem: "storage",
		Name:      "operations_total",
		Help:      "Host store calls by backend, operation and outcome",
	}, []string{"store", "operation", "status"})
	r.StorageOperationDuration = promauto.With(r.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "frlayout",
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Host store call latency",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 10, 5),
	}, []string{"store", "operation"})
}
