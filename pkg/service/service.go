// Package service runs layouts on behalf of the API surfaces: it builds a
// host from a request or a stored graph, wires the engine's listeners and
// returns the committed positions.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/export"
	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
	"github.com/dd0wney/cluso-frlayout/pkg/pubsub"
	"github.com/dd0wney/cluso-frlayout/pkg/validation"
)

var (
	// ErrBadRequest marks problems with the caller's input.
	ErrBadRequest = errors.New("bad request")

	// ErrNoStore is returned for stored-graph requests when no store is configured.
	ErrNoStore = errors.New("no graph store configured")
)

// Request asks for one layout. Exactly one of Graph and GraphID is set.
type Request struct {
	Graph    *validation.GraphRequest `json:"graph,omitempty"`
	GraphID  string                   `json:"graphId,omitempty"`
	Viewport *host.ViewportSize       `json:"viewport,omitempty"`
	// Seed places non-fixed nodes before the run (circular, hierarchical).
	Seed string `json:"seed,omitempty"`
	// Config is merged over the service defaults; absent fields keep them.
	Config json.RawMessage `json:"config,omitempty"`
}

// Result is a finished layout.
type Result struct {
	RunID      string                  `json:"runId"`
	Iterations int                     `json:"iterations"`
	Elapsed    time.Duration           `json:"-"`
	ElapsedMS  float64                 `json:"elapsedMs"`
	Positions  []layout.PositionUpdate `json:"positions"`
}

// Options configures a Service. Only Defaults is required.
type Options struct {
	Defaults *layout.Config
	// Timeout bounds each run; zero means no limit beyond the caller's ctx.
	Timeout  time.Duration
	Store    host.Store
	Exporter export.Writer
	Bus      *pubsub.Bus
	// Sinks receive intermediate snapshots. When any are set, runs are
	// offloaded to a worker and committed at the refresh cadence.
	Sinks   []offload.Sink
	Metrics *metrics.Registry
	Logger  logging.Logger
}

// Service runs layouts. It is safe for concurrent use; each call gets its
// own engine.
type Service struct {
	opts   Options
	logger logging.Logger
	active atomic.Int64
}

// New checks the defaults and returns a service.
func New(opts Options) (*Service, error) {
	if opts.Defaults == nil {
		return nil, layout.ErrMissingConfig
	}
	if err := opts.Defaults.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{opts: opts, logger: logger.With(logging.Component("service"))}, nil
}

// Defaults returns a copy of the default layout configuration.
func (s *Service) Defaults() layout.Config {
	return *s.opts.Defaults
}

// Bus returns the event bus, or nil.
func (s *Service) Bus() *pubsub.Bus {
	return s.opts.Bus
}

// Config merges raw over the defaults and validates the result.
func (s *Service) Config(raw json.RawMessage) (*layout.Config, error) {
	cfg := *s.opts.Defaults
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: config: %v", ErrBadRequest, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Layout runs one layout to completion.
func (s *Service) Layout(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrBadRequest)
	}
	cfg, err := s.Config(req.Config)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, req, cfg)
}

// LayoutWith runs a layout with an already-built config.
func (s *Service) LayoutWith(ctx context.Context, req *Request, cfg *layout.Config) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrBadRequest)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return s.run(ctx, req, cfg)
}

// Active reports how many layouts are running.
func (s *Service) Active() int {
	return int(s.active.Load())
}

// ListGraphs returns the ids in the configured store.
func (s *Service) ListGraphs(ctx context.Context) ([]string, error) {
	if s.opts.Store == nil {
		return nil, ErrNoStore
	}
	return s.opts.Store.ListGraphs(ctx)
}

type target interface {
	layout.Host
	SetViewport(width, height float64)
	Seed(s host.Seed) error
}

func (s *Service) open(ctx context.Context, req *Request) (target, error) {
	switch {
	case req.Graph != nil && req.GraphID != "":
		return nil, fmt.Errorf("%w: graph and graphId are exclusive", ErrBadRequest)
	case req.Graph != nil:
		if err := validation.ValidateGraphRequest(req.Graph); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return host.FromRequest(req.Graph), nil
	case req.GraphID != "":
		if s.opts.Store == nil {
			return nil, ErrNoStore
		}
		return host.OpenGraph(ctx, s.opts.Store, req.GraphID, s.opts.Metrics)
	default:
		return nil, fmt.Errorf("%w: graph or graphId is required", ErrBadRequest)
	}
}

func (s *Service) run(ctx context.Context, req *Request, cfg *layout.Config) (*Result, error) {
	s.active.Add(1)
	defer s.active.Add(-1)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	h, err := s.open(ctx, req)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if req.Viewport != nil {
		h.SetViewport(req.Viewport.Width, req.Viewport.Height)
	}
	if err := h.Seed(host.Seed(req.Seed)); err != nil {
		err = fmt.Errorf("%w: %v", ErrBadRequest, err)
		s.recordError(err)
		return nil, err
	}

	var stop layout.Event
	opts := []layout.Option{
		layout.WithLogger(s.logger),
		layout.WithListener(layout.ListenerFuncs{OnStop: func(ev layout.Event) { stop = ev }}),
	}
	if s.opts.Metrics != nil {
		opts = append(opts, layout.WithListener(metrics.NewLayoutListener(s.opts.Metrics)))
	}
	if s.opts.Bus != nil {
		opts = append(opts, layout.WithListener(s.opts.Bus))
	}
	var exporter *export.StopExporter
	if s.opts.Exporter != nil {
		exporter = export.NewStopExporter(ctx, s.opts.Exporter, h, s.logger)
		opts = append(opts, layout.WithListener(exporter))
	}

	engine, err := layout.New(h, cfg, opts...)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	if err := s.drive(ctx, engine); err != nil {
		s.recordError(err)
		return nil, err
	}
	if exporter != nil {
		if err := exporter.Err(); err != nil {
			// the layout itself succeeded
			s.logger.Warn("export after layout failed", logging.RunID(stop.RunID), logging.Error(err))
		}
	}

	nodes := h.Nodes()
	pos := make([]layout.PositionUpdate, len(nodes))
	for i, n := range nodes {
		pos[i] = layout.PositionUpdate{ID: n.ID, Position: n.Position}
	}
	return &Result{
		RunID:      stop.RunID,
		Iterations: stop.Iterations,
		Elapsed:    stop.Elapsed,
		ElapsedMS:  float64(stop.Elapsed) / float64(time.Millisecond),
		Positions:  pos,
	}, nil
}

func (s *Service) drive(ctx context.Context, engine *layout.Engine) error {
	if len(s.opts.Sinks) == 0 {
		return engine.Run(ctx)
	}
	opts := []offload.RunnerOption{offload.WithRunnerLogger(s.logger), offload.WithMetrics(s.opts.Metrics)}
	for _, sink := range s.opts.Sinks {
		opts = append(opts, offload.WithSink(sink))
	}
	return offload.NewRunner(engine, opts...).Run(ctx)
}

func (s *Service) recordError(err error) {
	if s.opts.Metrics == nil {
		return
	}
	s.opts.Metrics.RecordLayoutError(Kind(err))
}

// Kind classifies an error for metrics and status mapping.
func Kind(err error) string {
	var se *layout.StructuralError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadRequest), errors.Is(err, layout.ErrInvalidConfig),
		errors.Is(err, layout.ErrMissingConfig), errors.Is(err, layout.ErrUnknownEasing):
		return "invalid_argument"
	case errors.As(err, &se):
		return "structural"
	case errors.Is(err, host.ErrGraphNotFound):
		return "not_found"
	case errors.Is(err, ErrNoStore):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.Is(err, layout.ErrCommit):
		return "commit"
	default:
		return "internal"
	}
}
