package layout

import "math"

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sub returns p - q
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the euclidean distance between p and q
func (p Position) Distance(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Vector is a force or displacement
type Vector struct {
	DX float64
	DY float64
}

// Len returns the magnitude of v
func (v Vector) Len() float64 {
	return math.Hypot(v.DX, v.DY)
}

// NodeRecord is what a host hands the engine for one node
type NodeRecord struct {
	ID       string   `json:"id" yaml:"id"`
	Position Position `json:"position" yaml:"position"`
	Fixed    bool     `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// EdgeRecord is what a host hands the engine for one edge
type EdgeRecord struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// PositionUpdate is a single committed position. An ordered slice of these
// is also the offloaded snapshot message.
type PositionUpdate struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
}

// Host supplies graph data to the engine and receives the final positions.
type Host interface {
	Nodes() []NodeRecord
	Edges() []EdgeRecord
	Commit(updates []PositionUpdate) error
}

// Viewport is implemented by hosts that know their visual container size.
// ok is false when the size is unknown.
type Viewport interface {
	Viewport() (width, height float64, ok bool)
}
