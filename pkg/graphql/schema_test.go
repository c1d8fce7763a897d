package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/service"
)

// stubLayouter records what the resolver asked for.
type stubLayouter struct {
	req    *service.Request
	cfg    *layout.Config
	graphs []string
	err    error
}

func (s *stubLayouter) Defaults() layout.Config { return *layout.DefaultConfig() }

func (s *stubLayouter) LayoutWith(_ context.Context, req *service.Request, cfg *layout.Config) (*service.Result, error) {
	s.req, s.cfg = req, cfg
	if s.err != nil {
		return nil, s.err
	}
	res := &service.Result{RunID: "run-1", Iterations: cfg.Iterations, ElapsedMS: 1.5}
	if req.Graph != nil {
		for i, n := range req.Graph.Nodes {
			res.Positions = append(res.Positions, layout.PositionUpdate{
				ID:       n.ID,
				Position: layout.Position{X: float64(i) * 10, Y: -1},
			})
		}
	}
	return res, nil
}

func (s *stubLayouter) ListGraphs(context.Context) ([]string, error) { return s.graphs, nil }

func execute(t *testing.T, svc Layouter, query string, vars map[string]any) (map[string]any, []string) {
	t.Helper()
	schema, err := NewSchema(svc)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	result := Execute(context.Background(), schema, Request{Query: query, Variables: vars}, DefaultMaxDepth)

	var msgs []string
	for _, e := range result.Errors {
		msgs = append(msgs, e.Message)
	}
	// round-trip through JSON to compare plain values
	raw, _ := json.Marshal(result.Data)
	var data map[string]any
	json.Unmarshal(raw, &data)
	return data, msgs
}

func TestSchema_Layout(t *testing.T) {
	stub := &stubLayouter{}
	data, errs := execute(t, stub, `{
		layout(
			nodes: [{id: "a", x: 1, y: 2}, {id: "b", fixed: true}]
			edges: [{source: "a", target: "b"}]
			viewport: {width: 640, height: 480}
			options: {iterations: 12, gravity: 3.5, easing: "cubicInOut", fit: false}
		) {
			runId
			iterations
			positions { id x y }
		}
	}`, nil)
	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}

	if stub.cfg.Iterations != 12 || stub.cfg.Gravity != 3.5 || stub.cfg.Easing != "cubicInOut" || stub.cfg.Fit {
		t.Errorf("options not applied: %+v", stub.cfg)
	}
	if stub.cfg.Speed != 0.1 {
		t.Errorf("unset option changed: speed = %v", stub.cfg.Speed)
	}
	g := stub.req.Graph
	if len(g.Nodes) != 2 || g.Nodes[0].X != 1 || g.Nodes[0].Y != 2 || !g.Nodes[1].Fixed {
		t.Errorf("nodes = %+v", g.Nodes)
	}
	if len(g.Edges) != 1 || g.Edges[0].Source != "a" || g.Edges[0].Target != "b" {
		t.Errorf("edges = %+v", g.Edges)
	}
	if stub.req.Viewport == nil || stub.req.Viewport.Width != 640 {
		t.Errorf("viewport = %+v", stub.req.Viewport)
	}

	res := data["layout"].(map[string]any)
	if res["runId"] != "run-1" || res["iterations"] != float64(12) {
		t.Errorf("result = %v", res)
	}
	positions := res["positions"].([]any)
	second := positions[1].(map[string]any)
	if second["id"] != "b" || second["x"] != float64(10) || second["y"] != float64(-1) {
		t.Errorf("positions[1] = %v", second)
	}
}

func TestSchema_LayoutWithVariables(t *testing.T) {
	stub := &stubLayouter{}
	_, errs := execute(t, stub, `query Run($id: String, $opts: LayoutOptions) {
		layout(graphId: $id, options: $opts) { runId }
	}`, map[string]any{
		"id":   "stored",
		"opts": map[string]any{"speed": 0.5, "animate": true},
	})
	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}
	if stub.req.GraphID != "stored" || stub.req.Graph != nil {
		t.Errorf("request = %+v", stub.req)
	}
	if stub.cfg.Speed != 0.5 || !stub.cfg.Animate {
		t.Errorf("config = %+v", stub.cfg)
	}
}

func TestSchema_LayoutError(t *testing.T) {
	stub := &stubLayouter{err: errors.New("edge references unknown node")}
	data, errs := execute(t, stub, `{ layout(nodes: [{id: "a"}]) { runId } }`, nil)
	if len(errs) != 1 || errs[0] != "edge references unknown node" {
		t.Errorf("errors = %v", errs)
	}
	if data["layout"] != nil {
		t.Errorf("layout = %v, want null", data["layout"])
	}
}

func TestSchema_Metadata(t *testing.T) {
	stub := &stubLayouter{graphs: []string{"g1", "g2"}}
	data, errs := execute(t, stub, `{ health easings graphs defaults { iterations gravity easing fit } }`, nil)
	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}
	if data["health"] != "ok" {
		t.Errorf("health = %v", data["health"])
	}
	if got := data["easings"].([]any); len(got) != len(layout.EasingNames()) {
		t.Errorf("easings = %v", got)
	}
	if got := data["graphs"].([]any); len(got) != 2 {
		t.Errorf("graphs = %v", got)
	}
	defaults := data["defaults"].(map[string]any)
	if defaults["iterations"] != float64(1000) || defaults["gravity"] != float64(10) || defaults["easing"] != layout.DefaultEasing {
		t.Errorf("defaults = %v", defaults)
	}
}

func TestSchema_WithService(t *testing.T) {
	cfg := layout.DefaultConfig()
	cfg.Iterations = 20
	svc, err := service.New(service.Options{Defaults: cfg})
	if err != nil {
		t.Fatal(err)
	}

	data, errs := execute(t, svc, `{
		layout(nodes: [{id: "a"}, {id: "b", x: 5}], edges: [{source: "a", target: "b"}]) {
			iterations positions { id x y }
		}
	}`, nil)
	if len(errs) > 0 {
		t.Fatalf("errors: %v", errs)
	}
	res := data["layout"].(map[string]any)
	if res["iterations"] != float64(20) {
		t.Errorf("iterations = %v", res["iterations"])
	}
	if len(res["positions"].([]any)) != 2 {
		t.Errorf("positions = %v", res["positions"])
	}

	_, errs = execute(t, svc, `{ graphs }`, nil)
	if len(errs) != 1 {
		t.Errorf("graphs without a store: errors = %v", errs)
	}
}
