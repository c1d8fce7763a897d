package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves /health. Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return respond(hc.Check, false)
}

// ReadinessHandler serves /ready. Anything but healthy is 503.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return respond(hc.CheckReadiness, true)
}

// LivenessHandler serves /live. Anything but healthy is 503.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return respond(hc.CheckLiveness, true)
}

func respond(check func() Response, strict bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response := check()

		code := http.StatusOK
		switch {
		case response.Status == StatusUnhealthy:
			code = http.StatusServiceUnavailable
		case strict && response.Status != StatusHealthy:
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
