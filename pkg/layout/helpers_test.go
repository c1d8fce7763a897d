package layout

import (
	"errors"
	"math"
	"sync"
	"testing"
)

// testHost is a minimal in-memory host used by the engine tests.
type testHost struct {
	mu        sync.Mutex
	nodes     []NodeRecord
	edges     []EdgeRecord
	commits   [][]PositionUpdate
	commitErr error
	width     float64
	height    float64
}

func newTestHost(nodes []NodeRecord, edges []EdgeRecord) *testHost {
	return &testHost{nodes: nodes, edges: edges}
}

func (h *testHost) Nodes() []NodeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]NodeRecord(nil), h.nodes...)
}

func (h *testHost) Edges() []EdgeRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]EdgeRecord(nil), h.edges...)
}

func (h *testHost) Commit(updates []PositionUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.commitErr != nil {
		return h.commitErr
	}
	h.commits = append(h.commits, updates)
	index := make(map[string]int, len(h.nodes))
	for i, n := range h.nodes {
		index[n.ID] = i
	}
	for _, u := range updates {
		if i, ok := index[u.ID]; ok {
			h.nodes[i].Position = u.Position
		}
	}
	return nil
}

func (h *testHost) Viewport() (float64, float64, bool) {
	return h.width, h.height, h.width > 0 && h.height > 0
}

func (h *testHost) position(id string) Position {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.nodes {
		if n.ID == id {
			return n.Position
		}
	}
	return Position{X: math.NaN(), Y: math.NaN()}
}

func (h *testHost) commitCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commits)
}

// eventRecorder collects lifecycle events.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) HandleEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *eventRecorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

// plainConfig disables every post-run transform so committed positions are
// the raw simulation output.
func plainConfig() *Config {
	cfg := DefaultConfig()
	cfg.Fit = false
	cfg.Animate = false
	return cfg
}

func mustEngine(t *testing.T, host Host, cfg *Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(host, cfg, opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return e
}

func grid(n int) []NodeRecord {
	nodes := make([]NodeRecord, n)
	for i := range nodes {
		nodes[i] = NodeRecord{
			ID:       string(rune('a' + i)),
			Position: Position{X: float64(i%4) * 10, Y: float64(i/4) * 10},
		}
	}
	return nodes
}

func chain(nodes []NodeRecord) []EdgeRecord {
	edges := make([]EdgeRecord, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		edges = append(edges, EdgeRecord{ID: nodes[i].ID, Source: nodes[i-1].ID, Target: nodes[i].ID})
	}
	return edges
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

var errCommitFailed = errors.New("disk full")
