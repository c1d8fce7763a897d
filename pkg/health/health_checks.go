package health

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

func healthy(name, msg string) Check {
	return Check{Name: name, Status: StatusHealthy, Message: msg}
}

// SimpleCheck always reports healthy.
func SimpleCheck(name string) CheckFunc {
	return func() Check { return healthy(name, "") }
}

// StoreCheck pings a graph store within timeout. A nil ping means no store
// is configured, which is healthy.
func StoreCheck(backend string, ping func(ctx context.Context) error, timeout time.Duration) CheckFunc {
	return func() Check {
		if ping == nil {
			c := healthy("store", "No store configured")
			c.Details = map[string]any{"backend": backend}
			return c
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		c := healthy("store", "Connected")
		c.Details = map[string]any{"backend": backend}
		if err := ping(ctx); err != nil {
			c.Status, c.Message = StatusUnhealthy, err.Error()
		}
		return c
	}
}

// RunsCheck degrades once active() reaches limit. Zero disables the limit.
func RunsCheck(active func() int, limit int) CheckFunc {
	return func() Check {
		n := active()
		c := healthy("layout_runs", "")
		c.Details = map[string]any{"active": n, "limit": limit}
		if limit > 0 && n >= limit {
			c.Status = StatusDegraded
			c.Message = fmt.Sprintf("%d runs in progress", n)
		}
		return c
	}
}

// PublisherCheck is unhealthy when a configured snapshot publisher is not
// bound.
func PublisherCheck(configured bool, running func() bool) CheckFunc {
	return func() Check {
		if !configured {
			return healthy("publisher", "Publishing disabled")
		}
		if running() {
			return healthy("publisher", "Listening")
		}
		return Check{Name: "publisher", Status: StatusUnhealthy, Message: "Publisher not running"}
	}
}

// MemoryCheck degrades when the heap exceeds 90% of what the runtime holds
// from the OS. A nil usage func reads runtime.MemStats.
func MemoryCheck(usage func() (alloc, sys uint64)) CheckFunc {
	if usage == nil {
		usage = readMemStats
	}
	return func() Check {
		alloc, sys := usage()
		c := healthy("memory", "Memory usage normal")
		c.Details = map[string]any{"alloc_bytes": alloc, "sys_bytes": sys}
		if sys > 0 && alloc*10 > sys*9 {
			c.Status, c.Message = StatusDegraded, "High memory usage"
		}
		return c
	}
}

func readMemStats() (uint64, uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
