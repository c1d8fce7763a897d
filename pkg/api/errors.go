package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/service"
)

var errNoService = errors.New("api: service is required")

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case "invalid_argument":
		return http.StatusBadRequest
	case "structural":
		return http.StatusUnprocessableEntity
	case "not_found":
		return http.StatusNotFound
	case "unavailable":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding response failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondServiceError classifies err. Messages of internal and commit
// failures are logged and replaced, everything else is the caller's to see.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.Kind(err)
	status := statusFor(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("layout failed", logging.String("kind", kind), logging.String("path", r.URL.Path), logging.Error(err))
		message = "internal error"
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Kind:    kind,
		Message: message,
		Code:    status,
	})
}
