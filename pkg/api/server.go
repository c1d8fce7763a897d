// Package api serves the layout service over HTTP: a JSON layout endpoint, a
// GraphQL endpoint, a server-sent event stream of run lifecycle events, and
// the health and metrics endpoints.
package api

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-frlayout/pkg/api/middleware"
	"github.com/dd0wney/cluso-frlayout/pkg/auth"
	gql "github.com/dd0wney/cluso-frlayout/pkg/graphql"
	"github.com/dd0wney/cluso-frlayout/pkg/health"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
	"github.com/dd0wney/cluso-frlayout/pkg/service"
)

// DefaultMaxBodyBytes bounds request bodies when Config leaves it zero.
const DefaultMaxBodyBytes = 10 << 20

// Config tunes the HTTP surface.
type Config struct {
	MaxBodyBytes  int64
	MaxQueryDepth int
	// RateLimit applies to the layout endpoints only; nil disables it.
	RateLimit      *middleware.RateLimitConfig
	TrustedProxies []*net.IPNet
	CORSOrigins    []string
	TLS            bool
}

// Options wires a Server. Service is required. A nil Validator leaves every
// route open.
type Options struct {
	Service   *service.Service
	Validator auth.TokenValidator
	Metrics   *metrics.Registry
	Health    *health.HealthChecker
	Logger    logging.Logger
	Version   string
	Config    Config
}

// Server routes HTTP requests to the layout service.
type Server struct {
	svc       *service.Service
	validator auth.TokenValidator
	metrics   *metrics.Registry
	health    *health.HealthChecker
	logger    logging.Logger
	version   string
	cfg       Config
	limiter   *middleware.RateLimiter
	handler   http.Handler
}

// New builds the routes and the middleware chain.
func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errNoService
	}
	s := &Server{
		svc:       opts.Service,
		validator: opts.Validator,
		metrics:   opts.Metrics,
		health:    opts.Health,
		logger:    opts.Logger,
		version:   opts.Version,
		cfg:       opts.Config,
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.With(logging.Component("api"))
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.health == nil {
		s.health = health.NewHealthChecker(s.version)
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.cfg.RateLimit != nil {
		s.limiter = middleware.NewRateLimiter(*s.cfg.RateLimit)
	}

	schema, err := gql.NewSchema(s.svc)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	limited := middleware.RateLimit(s.limiter, func(r *http.Request) string {
		return middleware.ClientIP(r, s.cfg.TrustedProxies)
	})

	mux.Handle("POST /layout", limited(s.requireRole(http.HandlerFunc(s.handleLayout), auth.RoleOperator)))
	mux.Handle("POST /graphql", limited(s.requireRole(gql.NewHandler(schema, s.cfg.MaxQueryDepth), auth.RoleOperator)))
	mux.Handle("GET /graphs", s.requireRole(http.HandlerFunc(s.handleListGraphs), auth.RoleViewer, auth.RoleOperator))
	mux.Handle("GET /events", s.requireRole(http.HandlerFunc(s.handleEvents), auth.RoleViewer, auth.RoleOperator))
	mux.Handle("GET /config", s.requireRole(http.HandlerFunc(s.handleDefaults), auth.RoleViewer, auth.RoleOperator))
	mux.Handle("GET /metrics", s.requireRole(
		promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}),
		auth.RoleViewer, auth.RoleOperator))
	mux.Handle("GET /health", s.health.HTTPHandler())
	mux.Handle("GET /ready", s.health.ReadinessHandler())
	mux.Handle("GET /live", s.health.LivenessHandler())
	mux.HandleFunc("GET /version", s.handleVersion)

	s.handler = middleware.Chain(mux,
		middleware.PanicRecovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Metrics(s.metrics, routeLabel(mux)),
		middleware.SecurityHeaders(s.cfg.TLS),
		middleware.CORS(s.cfg.CORSOrigins),
		middleware.BodySizeLimit(s.cfg.MaxBodyBytes),
	)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routeLabel maps a request to its registered pattern so metric labels stay
// bounded.
func routeLabel(mux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
}
