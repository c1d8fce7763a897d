package host

import (
	"errors"
	"fmt"
	"math"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

// Seed names an initial placement applied before a run. Nodes stacked on the
// same point feel no repulsion from each other, so graphs that arrive without
// coordinates need spreading out first.
type Seed string

const (
	SeedNone         Seed = ""
	SeedCircular     Seed = "circular"
	SeedHierarchical Seed = "hierarchical"
)

// DefaultSeedSize is the square seeded into when the graph has no viewport.
const DefaultSeedSize = 1000.0

const seedPadding = 50.0

// ErrUnknownSeed is returned for unrecognised seed names.
var ErrUnknownSeed = errors.New("unknown seed")

// ParseSeed validates a seed name.
func ParseSeed(s string) (Seed, error) {
	switch Seed(s) {
	case SeedNone, SeedCircular, SeedHierarchical:
		return Seed(s), nil
	default:
		return SeedNone, fmt.Errorf("%w: %q", ErrUnknownSeed, s)
	}
}

// Seed places every non-fixed node with the given strategy inside the
// viewport, or a DefaultSeedSize square. It is not a commit.
func (g *MemoryGraph) Seed(s Seed) error {
	if _, err := ParseSeed(string(s)); err != nil {
		return err
	}
	if s == SeedNone {
		return nil
	}

	w, h, ok := g.Viewport()
	if !ok {
		w, h = DefaultSeedSize, DefaultSeedSize
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var placed map[string]layout.Position
	switch s {
	case SeedCircular:
		placed = circular(g.nodes, w, h)
	case SeedHierarchical:
		placed = hierarchical(g.nodes, g.edges, w, h)
	}
	for i := range g.nodes {
		if p, ok := placed[g.nodes[i].ID]; ok && !g.nodes[i].Fixed {
			g.nodes[i].Position = p
		}
	}
	return nil
}

// circular spaces the nodes evenly on the largest circle that fits.
func circular(nodes []layout.NodeRecord, w, h float64) map[string]layout.Position {
	out := make(map[string]layout.Position, len(nodes))
	if len(nodes) == 0 {
		return out
	}
	cx, cy := w/2, h/2
	radius := math.Max(math.Min(cx, cy)-seedPadding, 1)
	step := 2 * math.Pi / float64(len(nodes))
	for i, n := range nodes {
		angle := float64(i) * step
		out[n.ID] = layout.Position{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return out
}

// hierarchical assigns BFS levels from the nodes without incoming edges and
// spreads each level across one row. Nodes unreachable from a root share
// the last row.
func hierarchical(nodes []layout.NodeRecord, edges []layout.EdgeRecord, w, h float64) map[string]layout.Position {
	out := make(map[string]layout.Position, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	incoming := make(map[string]int, len(nodes))
	outgoing := make(map[string][]string, len(nodes))
	for _, e := range edges {
		incoming[e.Target]++
		outgoing[e.Source] = append(outgoing[e.Source], e.Target)
	}

	var roots []string
	for _, n := range nodes {
		if incoming[n.ID] == 0 {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		roots = []string{nodes[0].ID}
	}

	visited := make(map[string]bool, len(nodes))
	for _, id := range roots {
		visited[id] = true
	}
	var levels [][]string
	for current := roots; len(current) > 0; {
		levels = append(levels, current)
		var next []string
		for _, id := range current {
			for _, to := range outgoing[id] {
				if !visited[to] {
					visited[to] = true
					next = append(next, to)
				}
			}
		}
		current = next
	}
	for _, n := range nodes {
		if !visited[n.ID] {
			visited[n.ID] = true
			levels[len(levels)-1] = append(levels[len(levels)-1], n.ID)
		}
	}

	rowHeight := (h - 2*seedPadding) / float64(len(levels))
	rowWidth := w - 2*seedPadding
	for li, level := range levels {
		y := seedPadding + float64(li)*rowHeight + rowHeight/2
		spacing := rowWidth / float64(len(level)+1)
		for ni, id := range level {
			out[id] = layout.Position{X: seedPadding + spacing*float64(ni+1), Y: y}
		}
	}
	return out
}
