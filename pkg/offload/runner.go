package offload

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
)

// Sink receives every snapshot the runner delivers.
type Sink interface {
	Deliver(ctx context.Context, s Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s Snapshot) error

// Deliver calls f
func (f SinkFunc) Deliver(ctx context.Context, s Snapshot) error {
	return f(ctx, s)
}

// Runner drives an engine on a worker goroutine and delivers position
// snapshots on the calling goroutine.
//
// The worker posts a snapshot every RefreshIterationBatch iterations into a
// coalescing mailbox. The consumer applies at most one snapshot per
// RefreshInterval: it commits the positions to the host, forwards them to
// the sinks, and emits layoutready on the first delivery.
type Runner struct {
	engine   *layout.Engine
	mailbox  *Mailbox
	sinks    []Sink
	logger   logging.Logger
	metrics  *metrics.Registry
	commit   bool
	interval time.Duration
	batch    int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSink adds a snapshot sink.
func WithSink(s Sink) RunnerOption {
	return func(r *Runner) {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l logging.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records snapshot counts in reg.
func WithMetrics(reg *metrics.Registry) RunnerOption {
	return func(r *Runner) {
		r.metrics = reg
	}
}

// WithoutIntermediateCommits leaves the host untouched until the engine
// stops; snapshots only go to the sinks.
func WithoutIntermediateCommits() RunnerOption {
	return func(r *Runner) {
		r.commit = false
	}
}

// NewRunner wraps an idle engine. The cadence comes from the engine's config.
func NewRunner(engine *layout.Engine, opts ...RunnerOption) *Runner {
	cfg := engine.Config()
	r := &Runner{
		engine:   engine,
		mailbox:  NewMailbox(),
		logger:   logging.NewNopLogger(),
		commit:   true,
		interval: cfg.RefreshInterval(),
		batch:    cfg.RefreshIterationBatch,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logging.Component("offload"))
	return r
}

// Mailbox exposes the runner's hand-off slot.
func (r *Runner) Mailbox() *Mailbox {
	return r.mailbox
}

// Run starts the engine and blocks until the run ends, Stop is called on
// the engine, or ctx is done. The engine is always stopped on return.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.engine.Start(); err != nil {
		return err
	}
	runID := r.engine.RunID()
	total := r.engine.Config().Iterations

	done := make(chan struct{})
	go r.work(runID, total, done)

	var (
		last      time.Time
		delivered int
	)
	for !r.mailbox.Drained() {
		select {
		case <-ctx.Done():
			return r.abort(ctx, done)
		case <-r.mailbox.Ready():
		}

		if wait := r.interval - time.Since(last); !last.IsZero() && wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return r.abort(ctx, done)
			case <-t.C:
			}
		}

		snap, ok := r.mailbox.Take()
		if !ok {
			continue
		}
		ok, err := r.deliver(ctx, snap, delivered == 0)
		if err != nil {
			r.engine.Stop()
			<-done
			return err
		}
		if ok {
			delivered++
			last = time.Now()
		}
	}

	<-done
	r.logger.Debug("offloaded run drained",
		logging.RunID(runID),
		logging.Int("delivered", delivered),
		logging.Int("coalesced", int(r.mailbox.Dropped())),
	)
	return r.engine.Stop()
}

func (r *Runner) abort(ctx context.Context, done <-chan struct{}) error {
	err := r.engine.Stop()
	<-done
	if err != nil {
		return err
	}
	return ctx.Err()
}

// work iterates in batches and posts a snapshot after each one.
func (r *Runner) work(runID string, total int, done chan<- struct{}) {
	defer close(done)
	defer r.mailbox.Close()

	var seq uint64
	for {
		running := r.engine.Step(r.batch)
		pos := r.engine.Positions()
		if pos == nil {
			// stopped from outside
			return
		}

		seq++
		replaced, err := r.mailbox.Post(Snapshot{
			RunID:     runID,
			Seq:       seq,
			Iteration: total - r.engine.IterationsRemaining(),
			Final:     !running,
			Positions: pos,
		})
		if err != nil {
			return
		}
		r.record("posted")
		if replaced {
			r.record("coalesced")
		}
		if !running {
			return
		}
	}
}

// deliver commits snap and hands it to the sinks. A snapshot whose run has
// already been stopped is dropped and deliver reports false: Stop made the
// final commit and nothing may follow it.
func (r *Runner) deliver(ctx context.Context, snap Snapshot, first bool) (bool, error) {
	if r.commit {
		live, err := r.engine.CommitSnapshot(snap.RunID, snap.Positions)
		if err != nil {
			r.logger.Error("snapshot commit failed", logging.RunID(snap.RunID), logging.Error(err))
			return false, err
		}
		if !live {
			r.discard(snap)
			return false, nil
		}
	} else if !r.engine.Live(snap.RunID) {
		r.discard(snap)
		return false, nil
	}

	for _, s := range r.sinks {
		if err := s.Deliver(ctx, snap); err != nil {
			r.logger.Warn("snapshot sink failed",
				logging.RunID(snap.RunID),
				logging.Int("seq", int(snap.Seq)),
				logging.Error(err),
			)
		}
	}
	r.record("delivered")

	if first {
		r.engine.Notify(layout.Event{
			Type:       layout.EventReady,
			RunID:      snap.RunID,
			Nodes:      len(snap.Positions),
			Iterations: snap.Iteration,
			Time:       time.Now(),
		})
	}
	return true, nil
}

func (r *Runner) discard(snap Snapshot) {
	r.logger.Debug("dropping snapshot of stopped run",
		logging.RunID(snap.RunID),
		logging.Int("seq", int(snap.Seq)),
	)
	r.record("discarded")
}

func (r *Runner) record(outcome string) {
	if r.metrics != nil {
		r.metrics.RecordSnapshot(outcome)
	}
}
