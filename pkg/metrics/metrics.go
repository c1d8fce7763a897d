package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordStorageOperation records a host store operation
func (r *Registry) RecordStorageOperation(store, operation, status string, duration time.Duration) {
	r.StorageOperationsTotal.WithLabelValues(store, operation, status).Inc()
	r.StorageOperationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
}

// RecordLayoutRun records a finished run. A run that stopped with iterations
// left over is counted as "stopped".
func (r *Registry) RecordLayoutRun(iterations, remaining int, duration time.Duration) {
	result := "completed"
	if remaining > 0 {
		result = "stopped"
	}
	r.LayoutRunsTotal.WithLabelValues(result).Inc()
	r.LayoutRunDuration.Observe(duration.Seconds())
	r.LayoutIterationsTotal.Add(float64(iterations))
}

// RecordLayoutError counts a failed layout by kind
func (r *Registry) RecordLayoutError(kind string) {
	r.LayoutErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordSnapshot counts an offloaded snapshot by outcome
func (r *Registry) RecordSnapshot(outcome string) {
	r.OffloadSnapshotsTotal.WithLabelValues(outcome).Inc()
}

// RecordFrame records a published frame
func (r *Registry) RecordFrame(size int) {
	r.OffloadSnapshotsTotal.WithLabelValues("published").Inc()
	r.OffloadFrameSizeBytes.Observe(float64(size))
}

// UpdateSystemMetrics refreshes uptime and Go runtime gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// RecordResponseSize observes the bytes written for a response
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordAuthFailure counts a rejected bearer token
func (r *Registry) RecordAuthFailure() { r.AuthFailuresTotal.Inc() }

// RecordUnauthorizedAccess counts a protected request that carried no token
// or a token whose role is not allowed
func (r *Registry) RecordUnauthorizedAccess() { r.SecurityUnauthorizedAccessTotal.Inc() }
