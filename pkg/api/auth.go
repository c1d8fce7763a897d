package api

import (
	"net/http"

	"github.com/dd0wney/cluso-frlayout/pkg/auth"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

// requireRole admits requests whose bearer token carries one of roles.
// Without a validator the route is open.
func (s *Server) requireRole(next http.Handler, roles ...string) http.Handler {
	if s.validator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.metrics.RecordUnauthorizedAccess()
			w.Header().Set("WWW-Authenticate", `Bearer realm="frlayout"`)
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.validator.ValidateToken(r.Context(), token)
		if err != nil {
			s.metrics.RecordAuthFailure()
			s.logger.Debug("token rejected", logging.String("path", r.URL.Path), logging.Error(err))
			w.Header().Set("WWW-Authenticate", `Bearer realm="frlayout", error="invalid_token"`)
			s.respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if !claims.Allows(roles...) {
			s.metrics.RecordUnauthorizedAccess()
			s.respondError(w, http.StatusForbidden, auth.ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}
