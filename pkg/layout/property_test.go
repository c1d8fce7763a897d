package layout

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// randomGraph builds a deterministic graph from a seed so that properties can
// be checked against the same input twice.
func randomGraph(n int, seed int64) ([]NodeRecord, []EdgeRecord) {
	state := uint64(seed)*6364136223846793005 + 1442695040888963407
	next := func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11) / float64(1<<53)
	}

	nodes := make([]NodeRecord, n)
	for i := range nodes {
		nodes[i] = NodeRecord{
			ID:       fmt.Sprintf("n%d", i),
			Position: Position{X: next()*200 - 100, Y: next()*200 - 100},
		}
	}
	var edges []EdgeRecord
	for i := 1; i < n; i++ {
		j := int(next() * float64(i))
		edges = append(edges, EdgeRecord{ID: fmt.Sprintf("e%d", i), Source: nodes[j].ID, Target: nodes[i].ID})
	}
	return nodes, edges
}

func runLayout(nodes []NodeRecord, edges []EdgeRecord, cfg *Config) (*testHost, error) {
	host := newTestHost(append([]NodeRecord(nil), nodes...), edges)
	e, err := New(host, cfg)
	if err != nil {
		return nil, err
	}
	return host, e.Run(context.Background())
}

func TestProperties_Layout(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("identical inputs give identical outputs", prop.ForAll(
		func(n int, seed int64, gravity float64) bool {
			nodes, edges := randomGraph(n, seed)
			cfg := plainConfig()
			cfg.Iterations = 40
			cfg.Gravity = gravity

			h1, err1 := runLayout(nodes, edges, cfg)
			h2, err2 := runLayout(nodes, edges, cfg)
			if err1 != nil || err2 != nil {
				return false
			}
			for _, node := range nodes {
				if h1.position(node.ID) != h2.position(node.ID) {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 12),
		gen.Int64(),
		gen.Float64Range(0, 50),
	))

	properties.Property("fixed nodes keep their coordinates", prop.ForAll(
		func(n int, seed int64, fixedEvery int) bool {
			nodes, edges := randomGraph(n, seed)
			for i := range nodes {
				nodes[i].Fixed = i%fixedEvery == 0
			}
			cfg := DefaultConfig()
			cfg.Iterations = 60
			cfg.Animate = true

			host, err := runLayout(nodes, edges, cfg)
			if err != nil {
				return false
			}
			for _, node := range nodes {
				if node.Fixed && host.position(node.ID) != node.Position {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 10),
		gen.Int64(),
		gen.IntRange(1, 4),
	))

	properties.Property("each iteration moves a node at most the clamp", prop.ForAll(
		func(n int, seed int64, speed float64) bool {
			nodes, edges := randomGraph(n, seed)
			cfg := plainConfig()
			cfg.Iterations = 1
			cfg.Speed = speed

			host, err := runLayout(nodes, edges, cfg)
			if err != nil {
				return false
			}
			limit := math.Sqrt(cfg.area(n))/10*speed + 1e-9
			for _, node := range nodes {
				if host.position(node.ID).Distance(node.Position) > limit {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 15),
		gen.Int64(),
		gen.Float64Range(0.01, 1),
	))

	properties.Property("remaining budget decreases by one per iteration", prop.ForAll(
		func(iterations, steps int) bool {
			nodes, edges := randomGraph(4, int64(iterations))
			cfg := plainConfig()
			cfg.Iterations = iterations
			e, err := New(newTestHost(nodes, edges), cfg)
			if err != nil || e.Start() != nil {
				return false
			}
			defer e.Stop()

			for i := 1; i <= steps; i++ {
				e.AtomicGo()
				want := iterations - i
				if want < 0 {
					want = 0
				}
				if e.IterationsRemaining() != want {
					return false
				}
			}
			return e.IsRunning() == (steps < iterations)
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 60),
	))

	properties.Property("rescale respects both bounds", prop.ForAll(
		func(n int, seed int64) bool {
			nodes, _ := randomGraph(n, seed)
			pts := make([]Position, n)
			for i, node := range nodes {
				pts[i] = node.Position
			}
			Rescale(pts, 128, 200)

			minD, maxNearest := pairDistances(pts)
			if minD > 128+1e-6 || maxNearest > 200+1e-6 {
				return false
			}
			// One of the bounds is reached.
			return approx(minD, 128, 1e-6) || approx(maxNearest, 200, 1e-6)
		},
		gen.IntRange(2, 20),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
