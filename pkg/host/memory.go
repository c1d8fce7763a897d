package host

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/validation"
)

// MemoryGraph is a mutex-guarded in-memory host.
type MemoryGraph struct {
	mu       sync.RWMutex
	nodes    []layout.NodeRecord
	index    map[string]int
	edges    []layout.EdgeRecord
	viewport *ViewportSize
	commits  int
}

// NewMemoryGraph copies nodes and edges into a new graph.
func NewMemoryGraph(nodes []layout.NodeRecord, edges []layout.EdgeRecord) *MemoryGraph {
	g := &MemoryGraph{
		nodes: append([]layout.NodeRecord(nil), nodes...),
		edges: append([]layout.EdgeRecord(nil), edges...),
	}
	g.reindex()
	return g
}

// FromFile builds a graph from a decoded graph file.
func FromFile(f *GraphFile) *MemoryGraph {
	g := NewMemoryGraph(f.Nodes, f.Edges)
	if f.Viewport != nil {
		vp := *f.Viewport
		g.viewport = &vp
	}
	return g
}

// FromRequest builds a graph from a validated API request.
func FromRequest(req *validation.GraphRequest) *MemoryGraph {
	nodes := make([]layout.NodeRecord, len(req.Nodes))
	for i, n := range req.Nodes {
		nodes[i] = layout.NodeRecord{
			ID:       n.ID,
			Position: layout.Position{X: n.X, Y: n.Y},
			Fixed:    n.Fixed,
		}
	}
	edges := make([]layout.EdgeRecord, len(req.Edges))
	for i, e := range req.Edges {
		edges[i] = layout.EdgeRecord{ID: e.ID, Source: e.Source, Target: e.Target}
	}
	return NewMemoryGraph(nodes, edges)
}

// LoadFile reads a JSON or YAML graph file.
func LoadFile(path string) (*MemoryGraph, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f), nil
}

func (g *MemoryGraph) reindex() {
	g.index = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		if _, dup := g.index[n.ID]; !dup {
			g.index[n.ID] = i
		}
	}
}

// Nodes implements layout.Host
func (g *MemoryGraph) Nodes() []layout.NodeRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]layout.NodeRecord(nil), g.nodes...)
}

// Edges implements layout.Host
func (g *MemoryGraph) Edges() []layout.EdgeRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]layout.EdgeRecord(nil), g.edges...)
}

// Commit implements layout.Host. The whole batch is rejected if any id is
// unknown.
func (g *MemoryGraph) Commit(updates []layout.PositionUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, u := range updates {
		if _, ok := g.index[u.ID]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownNode, u.ID)
		}
	}
	for _, u := range updates {
		g.nodes[g.index[u.ID]].Position = u.Position
	}
	g.commits++
	return nil
}

// Viewport implements layout.Viewport
func (g *MemoryGraph) Viewport() (float64, float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.viewport == nil {
		return 0, 0, false
	}
	return g.viewport.Width, g.viewport.Height, g.viewport.Width > 0 && g.viewport.Height > 0
}

// SetViewport sets the container size used for fitting and centering.
func (g *MemoryGraph) SetViewport(width, height float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.viewport = &ViewportSize{Width: width, Height: height}
}

// Position returns the committed position of a node.
func (g *MemoryGraph) Position(id string) (layout.Position, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	if !ok {
		return layout.Position{}, false
	}
	return g.nodes[i].Position, true
}

// Commits returns how many batches have been committed.
func (g *MemoryGraph) Commits() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.commits
}

// File returns the graph in its file shape.
func (g *MemoryGraph) File() *GraphFile {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f := &GraphFile{
		Nodes: append([]layout.NodeRecord(nil), g.nodes...),
		Edges: append([]layout.EdgeRecord(nil), g.edges...),
	}
	if g.viewport != nil {
		vp := *g.viewport
		f.Viewport = &vp
	}
	return f
}

var (
	_ layout.Host     = (*MemoryGraph)(nil)
	_ layout.Viewport = (*MemoryGraph)(nil)
)
