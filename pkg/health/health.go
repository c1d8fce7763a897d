// Package health aggregates component checks for the layout server's
// health, readiness and liveness endpoints.
package health

import (
	"sync"
	"time"
)

// Status is the health of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one wins.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Check is one component's result.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc produces a Check. It must not block for long; wrap slow probes
// with their own timeout.
type CheckFunc func() Check

// Response is the body of every health endpoint.
type Response struct {
	Status    Status           `json:"status"`
	Version   string           `json:"version,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}

type probe int

const (
	probeHealth probe = iota
	probeReady
	probeLive
	numProbes
)

// HealthChecker holds the checks behind /health, /ready and /live.
type HealthChecker struct {
	mu      sync.RWMutex
	started time.Time
	version string
	probes  [numProbes]map[string]CheckFunc
}

// NewHealthChecker creates a checker; version is echoed in every response.
func NewHealthChecker(version string) *HealthChecker {
	hc := &HealthChecker{started: time.Now(), version: version}
	for i := range hc.probes {
		hc.probes[i] = make(map[string]CheckFunc)
	}
	return hc
}

// RegisterCheck adds a check to /health.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.add(probeHealth, name, check)
}

// RegisterReadinessCheck adds a check to /ready.
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.add(probeReady, name, check)
}

// RegisterLivenessCheck adds a check to /live.
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.add(probeLive, name, check)
}

func (hc *HealthChecker) add(p probe, name string, check CheckFunc) {
	hc.mu.Lock()
	hc.probes[p][name] = check
	hc.mu.Unlock()
}

func (hc *HealthChecker) Check() Response          { return hc.evaluate(probeHealth) }
func (hc *HealthChecker) CheckReadiness() Response { return hc.evaluate(probeReady) }
func (hc *HealthChecker) CheckLiveness() Response  { return hc.evaluate(probeLive) }

func (hc *HealthChecker) evaluate(p probe) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	now := time.Now()
	checks := hc.probes[p]
	out := Response{
		Status:    StatusHealthy,
		Version:   hc.version,
		Timestamp: now,
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    now.Sub(hc.started).Seconds(),
	}
	for name, fn := range checks {
		began := time.Now()
		c := fn()
		c.LastChecked, c.Duration = began, time.Since(began)
		if c.Name == "" {
			c.Name = name
		}
		out.Checks[name] = c
		if c.Status.severity() > out.Status.severity() {
			out.Status = c.Status
		}
	}
	return out
}
