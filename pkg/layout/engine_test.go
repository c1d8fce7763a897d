package layout

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-frlayout/pkg/logging"
)

func TestNew_InvalidArguments(t *testing.T) {
	host := newTestHost(nil, nil)

	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrMissingHost) {
		t.Errorf("nil host: err = %v", err)
	}
	if _, err := New(host, nil); !errors.Is(err, ErrMissingConfig) {
		t.Errorf("nil config: err = %v", err)
	}

	bad := DefaultConfig()
	bad.Speed = 0
	if _, err := New(host, bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad config: err = %v", err)
	}
}

func TestRun_TwoConnectedNodesAttract(t *testing.T) {
	host := newTestHost(
		[]NodeRecord{
			{ID: "A", Position: Position{X: 0, Y: 0}},
			{ID: "B", Position: Position{X: 10, Y: 0}},
		},
		[]EdgeRecord{{ID: "AB", Source: "A", Target: "B"}},
	)
	cfg := plainConfig()
	cfg.AutoArea = false
	cfg.Area = 1
	cfg.Gravity = 0
	cfg.Speed = 1
	cfg.Iterations = 1

	e := mustEngine(t, host, cfg)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	a, b := host.position("A"), host.position("B")
	d := a.Distance(b)
	if d >= 10 {
		t.Fatalf("distance after one iteration = %v, want < 10", d)
	}
	// Each node moves by the clamp sqrt(area)/10 * speed = 0.1.
	if !approx(d, 9.8, 1e-9) {
		t.Errorf("distance = %v, want 9.8", d)
	}
	if a.Y != 0 || b.Y != 0 {
		t.Errorf("nodes left the x axis: %+v %+v", a, b)
	}
}

func TestRun_EmptyAndSingleNode(t *testing.T) {
	tests := []struct {
		name  string
		nodes []NodeRecord
	}{
		{"empty", nil},
		{"single", []NodeRecord{{ID: "solo", Position: Position{X: 42, Y: -7}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newTestHost(tt.nodes, nil)
			host.width, host.height = 800, 600
			cfg := DefaultConfig()
			cfg.Animate = true
			cfg.CenterOnViewport = true
			cfg.Iterations = 25

			e := mustEngine(t, host, cfg)
			if err := e.Run(context.Background()); err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			for _, n := range tt.nodes {
				if got := host.position(n.ID); got != n.Position {
					t.Errorf("node %s moved: %+v -> %+v", n.ID, n.Position, got)
				}
			}
			if e.Progress() != 1 {
				t.Errorf("Progress() = %v, want 1", e.Progress())
			}
		})
	}
}

func TestRun_FixedNodesNeverMove(t *testing.T) {
	nodes := grid(6)
	nodes[0].Fixed = true
	nodes[3].Fixed = true
	host := newTestHost(nodes, chain(nodes))
	host.width, host.height = 500, 500

	cfg := DefaultConfig()
	cfg.Iterations = 200
	cfg.Gravity = 50
	cfg.RepulsionScale = 200
	cfg.Animate = true

	e := mustEngine(t, host, cfg)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if got := host.position(nodes[0].ID); got != nodes[0].Position {
		t.Errorf("fixed node %s moved to %+v", nodes[0].ID, got)
	}
	if got := host.position(nodes[3].ID); got != nodes[3].Position {
		t.Errorf("fixed node %s moved to %+v", nodes[3].ID, got)
	}
	if got := host.position(nodes[1].ID); got == nodes[1].Position {
		t.Error("free node did not move")
	}
}

func TestStop_LogsSkippedRescaleWithFixedNodes(t *testing.T) {
	nodes := grid(4)
	nodes[2].Fixed = true
	host := newTestHost(nodes, chain(nodes))

	cfg := plainConfig()
	cfg.Iterations = 3
	cfg.Animate = true

	var buf bytes.Buffer
	e := mustEngine(t, host, cfg, WithLogger(logging.NewJSONLogger(&buf, logging.DebugLevel)))
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "skipping rescale") {
		t.Errorf("no debug line for the skipped rescale:\n%s", buf.String())
	}

	// Without fixed nodes the rescale runs and nothing is logged about it.
	buf.Reset()
	free := grid(4)
	e = mustEngine(t, newTestHost(free, chain(free)), cfg, WithLogger(logging.NewJSONLogger(&buf, logging.DebugLevel)))
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if strings.Contains(buf.String(), "skipping rescale") {
		t.Errorf("unexpected skip line:\n%s", buf.String())
	}
}

func TestCommitSnapshot_OnlyWhileLive(t *testing.T) {
	nodes := grid(4)
	host := newTestHost(nodes, chain(nodes))
	cfg := plainConfig()
	cfg.Iterations = 100

	e := mustEngine(t, host, cfg)
	if ok, err := e.CommitSnapshot("", nil); ok || err != nil {
		t.Errorf("idle CommitSnapshot() = %v, %v", ok, err)
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	runID := e.RunID()
	e.Step(5)

	ok, err := e.CommitSnapshot(runID, e.Positions())
	if !ok || err != nil {
		t.Fatalf("live CommitSnapshot() = %v, %v", ok, err)
	}
	if ok, _ := e.CommitSnapshot("other-run", e.Positions()); ok {
		t.Error("snapshot of another run was committed")
	}

	stale := e.Positions()
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	commits := host.commitCount()
	final := host.position("a")

	if ok, err := e.CommitSnapshot(runID, stale); ok || err != nil {
		t.Errorf("CommitSnapshot() after Stop = %v, %v", ok, err)
	}
	if host.commitCount() != commits || host.position("a") != final {
		t.Error("host written after the final commit")
	}
}

func TestAtomicGo_DecrementsByOne(t *testing.T) {
	nodes := grid(4)
	host := newTestHost(nodes, chain(nodes))
	cfg := plainConfig()
	cfg.Iterations = 5

	e := mustEngine(t, host, cfg)
	if e.AtomicGo() {
		t.Fatal("AtomicGo() before Start should return false")
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	for want := 4; want >= 0; want-- {
		running := e.AtomicGo()
		if got := e.IterationsRemaining(); got != want {
			t.Fatalf("IterationsRemaining() = %d, want %d", got, want)
		}
		if running != (want > 0) {
			t.Fatalf("AtomicGo() = %v with %d remaining", running, want)
		}
	}
	if e.AtomicGo() {
		t.Error("AtomicGo() after exhaustion should return false")
	}
	if got := e.IterationsRemaining(); got != 0 {
		t.Errorf("IterationsRemaining() = %d after exhaustion", got)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
}

func TestRun_InvokesExactlyIterations(t *testing.T) {
	nodes := grid(5)
	host := newTestHost(nodes, chain(nodes))
	rec := &eventRecorder{}
	cfg := plainConfig()
	cfg.Iterations = 37

	e := mustEngine(t, host, cfg, WithListener(rec))
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	types := rec.types()
	if len(types) != 2 || types[0] != EventStart || types[1] != EventStop {
		t.Fatalf("events = %v, want [layoutstart layoutstop]", types)
	}
	stop := rec.last()
	if stop.Iterations != 37 || stop.Remaining != 0 {
		t.Errorf("stop event = %+v, want 37 iterations, 0 remaining", stop)
	}
	if stop.Nodes != 5 || stop.Edges != 4 {
		t.Errorf("stop event counts = %d/%d", stop.Nodes, stop.Edges)
	}
	if host.commitCount() != 1 {
		t.Errorf("commits = %d, want 1", host.commitCount())
	}
}

func TestStop_FromListenerEndsRunEarly(t *testing.T) {
	nodes := grid(3)
	host := newTestHost(nodes, nil)
	rec := &eventRecorder{}
	cfg := plainConfig()

	var e *Engine
	stopper := ListenerFuncs{OnStart: func(Event) {
		if err := e.Stop(); err != nil {
			t.Errorf("Stop() failed: %v", err)
		}
	}}
	e = mustEngine(t, host, cfg, WithListener(rec), WithListener(stopper))

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	stop := rec.last()
	if stop.Type != EventStop || stop.Iterations != 0 {
		t.Errorf("stop event = %+v, want zero iterations", stop)
	}
	for _, n := range nodes {
		if got := host.position(n.ID); got != n.Position {
			t.Errorf("node %s moved without iterating", n.ID)
		}
	}
}

func TestStop_Idempotent(t *testing.T) {
	nodes := grid(4)
	host := newTestHost(nodes, chain(nodes))
	rec := &eventRecorder{}
	e := mustEngine(t, host, plainConfig(), WithListener(rec))

	if err := e.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	e.Step(3)

	if err := e.Stop(); err != nil {
		t.Fatalf("first Stop() failed: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second Stop() failed: %v", err)
	}

	stops := 0
	for _, typ := range rec.types() {
		if typ == EventStop {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("layoutstop emitted %d times, want 1", stops)
	}
	if host.commitCount() != 1 {
		t.Errorf("commits = %d, want 1", host.commitCount())
	}
	if e.Positions() != nil {
		t.Error("per-run state survived Stop()")
	}
	if e.State() != StateStopped {
		t.Errorf("State() = %v", e.State())
	}
}

func TestStop_FromIdle(t *testing.T) {
	host := newTestHost(grid(2), nil)
	rec := &eventRecorder{}
	e := mustEngine(t, host, plainConfig(), WithListener(rec))

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if host.commitCount() != 0 {
		t.Error("Stop() from idle should not commit")
	}
	if types := rec.types(); len(types) != 1 || types[0] != EventStop {
		t.Errorf("events = %v", types)
	}
}

func TestRun_StructuralErrorRunsNothing(t *testing.T) {
	host := newTestHost(
		[]NodeRecord{{ID: "a"}},
		[]EdgeRecord{{ID: "bad", Source: "a", Target: "missing"}},
	)
	rec := &eventRecorder{}
	e := mustEngine(t, host, plainConfig(), WithListener(rec))

	err := e.Run(context.Background())
	if !errors.Is(err, ErrDanglingEdge) {
		t.Fatalf("err = %v, want ErrDanglingEdge", err)
	}
	if e.Progress() != 0 {
		t.Errorf("Progress() = %v, want 0", e.Progress())
	}
	if e.State() != StateIdle {
		t.Errorf("State() = %v, want idle", e.State())
	}
	if len(rec.types()) != 0 {
		t.Errorf("events emitted: %v", rec.types())
	}
	if host.commitCount() != 0 {
		t.Error("host was committed")
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	nodes := grid(4)
	host := newTestHost(nodes, chain(nodes))
	e := mustEngine(t, host, plainConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if e.State() != StateStopped {
		t.Errorf("State() = %v", e.State())
	}
	if host.commitCount() != 1 {
		t.Errorf("commits = %d, want 1", host.commitCount())
	}
	if got := e.Progress(); got <= 0 || got >= 1 {
		t.Errorf("Progress() = %v, want partial", got)
	}
}

func TestRun_CommitError(t *testing.T) {
	host := newTestHost(grid(3), nil)
	host.commitErr = errCommitFailed
	e := mustEngine(t, host, plainConfig())

	err := e.Run(context.Background())
	if !errors.Is(err, ErrCommit) {
		t.Fatalf("err = %v, want ErrCommit", err)
	}
	if e.State() != StateStopped {
		t.Errorf("State() = %v", e.State())
	}
}

func TestLifecycle_ResetAndReuse(t *testing.T) {
	nodes := grid(4)
	host := newTestHost(nodes, chain(nodes))
	cfg := plainConfig()
	cfg.Iterations = 10
	e := mustEngine(t, host, cfg)

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	first := e.RunID()

	if err := e.Start(); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("Start() after stop: err = %v, want ErrNotIdle", err)
	}
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	if e.State() != StateIdle || e.Progress() != 0 {
		t.Fatalf("after Reset: state %v progress %v", e.State(), e.Progress())
	}
	if e.RunID() != "" {
		t.Errorf("RunID() after Reset = %q", e.RunID())
	}

	// The second run snapshots the positions committed by the first.
	if err := e.Start(); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}
	if err := e.Reset(); !errors.Is(err, ErrRunning) {
		t.Errorf("Reset() while running: err = %v", err)
	}
	if err := e.Configure(cfg); !errors.Is(err, ErrRunning) {
		t.Errorf("Configure() while running: err = %v", err)
	}
	if e.RunID() == first {
		t.Error("run id was reused")
	}
	for e.Step(4) {
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("second Stop() failed: %v", err)
	}
	if host.commitCount() != 2 {
		t.Errorf("commits = %d, want 2", host.commitCount())
	}
}

func TestPositions_DuringRun(t *testing.T) {
	nodes := grid(3)
	host := newTestHost(nodes, chain(nodes))
	e := mustEngine(t, host, plainConfig())

	if e.Positions() != nil {
		t.Error("Positions() before Start should be nil")
	}
	if err := e.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	e.Step(5)

	pos := e.Positions()
	if len(pos) != 3 {
		t.Fatalf("len(Positions()) = %d", len(pos))
	}
	for i, p := range pos {
		if p.ID != nodes[i].ID {
			t.Errorf("Positions()[%d].ID = %s, want host order", i, p.ID)
		}
	}
	// Host positions are untouched until commit.
	for _, n := range nodes {
		if host.position(n.ID) != n.Position {
			t.Errorf("host position of %s changed before commit", n.ID)
		}
	}
	e.Stop()
}

func TestStop_AnimateRescalesAndInterpolates(t *testing.T) {
	nodes := grid(5)
	host := newTestHost(nodes, chain(nodes))
	rec := &eventRecorder{}
	cfg := plainConfig()
	cfg.Animate = true
	cfg.Iterations = 50

	e := mustEngine(t, host, cfg, WithListener(rec))
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	types := rec.types()
	want := []EventType{EventStart, EventInterpolate, EventStop}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}

	pts := make([]Position, len(nodes))
	for i, n := range nodes {
		pts[i] = host.position(n.ID)
	}
	minD := math.Inf(1)
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			minD = math.Min(minD, pts[i].Distance(pts[j]))
		}
	}
	if minD > cfg.MinSpacing+1e-6 {
		t.Errorf("closest pair %v exceeds min spacing %v", minD, cfg.MinSpacing)
	}
	c := BoundsOf(pts).Center()
	if !approx(c.X, 0, 1e-6) || !approx(c.Y, 0, 1e-6) {
		t.Errorf("rescaled layout not centered: %+v", c)
	}
}

func TestStop_FitsViewport(t *testing.T) {
	nodes := grid(6)
	host := newTestHost(nodes, chain(nodes))
	host.width, host.height = 400, 300
	cfg := DefaultConfig()
	cfg.Padding = 20
	cfg.Iterations = 30

	e := mustEngine(t, host, cfg)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	for _, n := range nodes {
		p := host.position(n.ID)
		if p.X < 20-1e-9 || p.X > 380+1e-9 || p.Y < 20-1e-9 || p.Y > 280+1e-9 {
			t.Errorf("node %s at %+v is outside the padded viewport", n.ID, p)
		}
	}
}

func TestGravity_CenterOnViewport(t *testing.T) {
	nodes := []NodeRecord{
		{ID: "a", Position: Position{X: 900, Y: 900}},
		{ID: "b", Position: Position{X: 910, Y: 900}},
	}
	host := newTestHost(nodes, nil)
	host.width, host.height = 200, 200
	cfg := plainConfig()
	cfg.CenterOnViewport = true
	cfg.Iterations = 100

	e := mustEngine(t, host, cfg)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	center := Position{X: 100, Y: 100}
	before := nodes[0].Position.Distance(center)
	after := host.position("a").Distance(center)
	if after >= before {
		t.Errorf("gravity did not pull toward viewport center: %v -> %v", before, after)
	}
}

func TestProgress(t *testing.T) {
	host := newTestHost(grid(3), nil)
	cfg := plainConfig()
	cfg.Iterations = 4
	e := mustEngine(t, host, cfg)

	if e.Progress() != 0 {
		t.Errorf("Progress() before start = %v", e.Progress())
	}
	e.Start()
	e.AtomicGo()
	if e.Progress() != 0.25 {
		t.Errorf("Progress() after one of four = %v", e.Progress())
	}
	e.Stop()
	if e.Progress() != 0.25 {
		t.Errorf("Progress() after stop = %v", e.Progress())
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle:    "idle",
		StateRunning: "running",
		StateStopped: "stopped",
		State(9):     "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
