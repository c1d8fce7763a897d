package layout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// simulation is the per-run state. It exists only between Start and Stop.
type simulation struct {
	snap      *Snapshot
	center    Position
	remaining int
	running   bool
}

// Engine is a Fruchterman-Reingold layout bound to one host.
//
// Start, AtomicGo, Step, Stop and the query methods are safe to call from
// different goroutines; Stop takes effect at the next iteration boundary.
type Engine struct {
	host      Host
	logger    logging.Logger
	listeners []Listener

	// commitMu orders intermediate commits against the final one in Stop.
	commitMu sync.Mutex

	mu        sync.Mutex
	config    Config
	state     State
	sim       *simulation
	runID     string
	startedAt time.Time
	completed int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithListener registers a lifecycle listener.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// New creates an idle engine. cfg is copied.
func New(host Host, cfg *Config, opts ...Option) (*Engine, error) {
	if host == nil {
		return nil, ErrMissingHost
	}
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		host:   host,
		logger: logging.NewNopLogger(),
		config: *cfg,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("layout"))
	return e, nil
}

// Configure replaces the configuration. It is rejected while running.
func (e *Engine) Configure(cfg *Config) error {
	if cfg == nil {
		return ErrMissingConfig
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return ErrRunning
	}
	e.config = *cfg
	return nil
}

// Host returns the graph the engine is bound to.
func (e *Engine) Host() Host {
	return e.host
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Start snapshots the host graph and enters the running state. Structural
// errors are returned before any iteration runs and leave the engine idle.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrNotIdle
	}

	snap, err := NewSnapshot(e.host.Nodes(), e.host.Edges())
	if err != nil {
		e.mu.Unlock()
		e.logger.Warn("layout rejected", logging.Error(err))
		return err
	}
	snap.resetForces()

	e.sim = &simulation{
		snap:      snap,
		center:    e.gravityCenter(),
		remaining: e.config.Iterations,
		running:   true,
	}
	e.runID = uuid.NewString()
	e.startedAt = time.Now()
	e.completed = 0
	e.state = StateRunning
	ev := e.eventLocked(EventStart)
	e.mu.Unlock()

	e.logger.Info("layout started",
		logging.RunID(ev.RunID),
		logging.Nodes(ev.Nodes),
		logging.Edges(ev.Edges),
		logging.Remaining(ev.Remaining),
	)
	e.emit(ev)
	return nil
}

// AtomicGo performs exactly one iteration and reports whether the engine is
// still running. It does nothing and returns false unless running.
func (e *Engine) AtomicGo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.atomicGoLocked()
}

func (e *Engine) atomicGoLocked() bool {
	sim := e.sim
	if e.state != StateRunning || sim == nil || !sim.running {
		return false
	}

	iterate(sim.snap, &e.config, sim.center)
	sim.remaining--
	e.completed++
	sim.running = sim.remaining > 0
	return sim.running
}

// Step runs up to batch iterations, releasing the lock between them so a
// concurrent Stop lands at the next boundary. It reports whether the engine
// is still running.
func (e *Engine) Step(batch int) bool {
	if batch < 1 {
		batch = 1
	}
	running := e.IsRunning()
	for i := 0; i < batch && running; i++ {
		running = e.AtomicGo()
	}
	if e.logger.GetLevel() == logging.DebugLevel {
		e.mu.Lock()
		runID, done := e.runID, e.completed
		e.mu.Unlock()
		e.logger.Debug("layout batch", logging.RunID(runID), logging.Iteration(done))
	}
	return running
}

// Run starts the layout, iterates until the budget is exhausted, Stop is
// called, or ctx is done, and then stops it. A cancelled ctx still commits
// the positions reached so far and returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}

	for e.AtomicGo() {
		select {
		case <-ctx.Done():
			if err := e.Stop(); err != nil {
				return err
			}
			return ctx.Err()
		default:
		}
	}
	return e.Stop()
}

// Stop ends the run from any state. Working positions are post-processed
// (rescaled when animating, fitted to the viewport when configured),
// committed to the host, and the per-run state is discarded. Calling Stop
// again is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state {
	case StateStopped:
		e.mu.Unlock()
		return nil
	case StateIdle:
		e.state = StateStopped
		ev := e.eventLocked(EventStop)
		e.mu.Unlock()
		e.emit(ev)
		return nil
	}

	sim := e.sim
	sim.running = false
	interpolate := e.finishLocked(sim)
	updates := sim.snap.flush()

	var events []Event
	if interpolate {
		events = append(events, e.eventLocked(EventInterpolate))
	}
	stopEv := e.eventLocked(EventStop)
	e.sim = nil
	e.state = StateStopped
	e.mu.Unlock()

	for _, ev := range events {
		e.emit(ev)
	}

	var err error
	e.commitMu.Lock()
	cerr := e.host.Commit(updates)
	e.commitMu.Unlock()
	if cerr != nil {
		err = fmt.Errorf("%w: %v", ErrCommit, cerr)
		e.logger.Error("layout commit failed", logging.RunID(stopEv.RunID), logging.Error(cerr))
	}

	e.logger.Info("layout stopped",
		logging.RunID(stopEv.RunID),
		logging.Iteration(stopEv.Iterations),
		logging.Remaining(stopEv.Remaining),
		logging.Latency(stopEv.Elapsed),
	)
	e.emit(stopEv)
	return err
}

// CommitSnapshot writes intermediate positions of run runID to the host.
// It reports false and writes nothing once that run has stopped, so a
// snapshot taken before Stop can never land after the final commit.
func (e *Engine) CommitSnapshot(runID string, updates []PositionUpdate) (bool, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()
	if !e.Live(runID) {
		return false, nil
	}
	if err := e.host.Commit(updates); err != nil {
		return true, fmt.Errorf("%w: %v", ErrCommit, err)
	}
	return true, nil
}

// Live reports whether runID is the current run and it has not stopped.
func (e *Engine) Live(runID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateRunning && e.runID == runID
}

// finishLocked applies the optional post-run transforms and reports whether
// the result is meant to be animated. Graphs with fixed nodes are never
// transformed, since that would move the fixed nodes.
func (e *Engine) finishLocked(sim *simulation) bool {
	cfg := &e.config
	if sim.snap.hasFixed() {
		if cfg.Animate || cfg.Fit {
			e.logger.Debug("fixed nodes present; skipping rescale and fit",
				logging.RunID(e.runID),
				logging.Nodes(sim.snap.NodeCount()),
			)
		}
		return cfg.Animate
	}
	if cfg.Animate {
		sim.snap.transform(func(pts []Position) {
			Rescale(pts, cfg.MinSpacing, cfg.MaxSpread)
		})
	}
	if cfg.Fit {
		if w, h, ok := e.viewport(); ok {
			sim.snap.transform(func(pts []Position) {
				Fit(pts, w, h, cfg.Padding)
			})
		}
	}
	return cfg.Animate
}

// Reset returns a stopped engine to idle so it can run again with a fresh
// snapshot of the host.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return ErrRunning
	}
	e.state = StateIdle
	e.completed = 0
	e.runID = ""
	e.startedAt = time.Time{}
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsRunning reports whether iterations remain and the run was not stopped.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StateRunning && e.sim != nil && e.sim.running
}

// IterationsRemaining returns the remaining budget, 0 outside a run.
func (e *Engine) IterationsRemaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim == nil {
		return 0
	}
	return e.sim.remaining
}

// Progress returns completed/configured iterations in [0,1].
func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.completed) / float64(e.config.Iterations)
}

// RunID identifies the current or most recent run. It is empty before the
// first Start and after Reset.
func (e *Engine) RunID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runID
}

// Positions copies the working coordinates at an iteration boundary.
// It returns nil outside a run.
func (e *Engine) Positions() []PositionUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sim == nil {
		return nil
	}
	return e.sim.snap.simPositions()
}

func (e *Engine) viewport() (float64, float64, bool) {
	vp, ok := e.host.(Viewport)
	if !ok {
		return 0, 0, false
	}
	w, h, ok := vp.Viewport()
	if !ok || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func (e *Engine) gravityCenter() Position {
	if !e.config.CenterOnViewport {
		return Position{}
	}
	if w, h, ok := e.viewport(); ok {
		return Position{X: w / 2, Y: h / 2}
	}
	return Position{}
}

func (e *Engine) eventLocked(t EventType) Event {
	ev := Event{
		Type:       t,
		RunID:      e.runID,
		Iterations: e.completed,
		Time:       time.Now(),
	}
	if !e.startedAt.IsZero() {
		ev.Elapsed = ev.Time.Sub(e.startedAt)
	}
	if e.sim != nil {
		ev.Nodes = e.sim.snap.NodeCount()
		ev.Edges = e.sim.snap.EdgeCount()
		ev.Remaining = e.sim.remaining
	}
	return ev
}

// Notify forwards an externally produced event (such as EventReady from an
// offloaded driver) to the engine's listeners.
func (e *Engine) Notify(ev Event) {
	e.emit(ev)
}

func (e *Engine) emit(ev Event) {
	for _, l := range e.listeners {
		l.HandleEvent(ev)
	}
}
