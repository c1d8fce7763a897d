package layout

// node is the engine's private record for one host node.
type node struct {
	id       string
	position Position // host-visible value, written only when flushing
	sim      Position
	force    Vector
	fixed    bool
}

type edge struct {
	id     string
	source int
	target int
}

// Snapshot is the engine-owned copy of a host graph for one run.
// It never aliases host records.
type Snapshot struct {
	nodes []*node
	index map[string]int
	edges []edge
}

// NewSnapshot copies nodes and edges and checks that ids are unique and every
// edge endpoint exists.
func NewSnapshot(nodes []NodeRecord, edges []EdgeRecord) (*Snapshot, error) {
	s := &Snapshot{
		nodes: make([]*node, 0, len(nodes)),
		index: make(map[string]int, len(nodes)),
		edges: make([]edge, 0, len(edges)),
	}

	for _, rec := range nodes {
		if _, dup := s.index[rec.ID]; dup {
			return nil, &StructuralError{Kind: ErrDuplicateNode, NodeID: rec.ID}
		}
		s.index[rec.ID] = len(s.nodes)
		s.nodes = append(s.nodes, &node{
			id:       rec.ID,
			position: rec.Position,
			sim:      rec.Position,
			fixed:    rec.Fixed,
		})
	}

	for _, rec := range edges {
		src, ok := s.index[rec.Source]
		if !ok {
			return nil, &StructuralError{Kind: ErrDanglingEdge, EdgeID: rec.ID, NodeID: rec.Source}
		}
		dst, ok := s.index[rec.Target]
		if !ok {
			return nil, &StructuralError{Kind: ErrDanglingEdge, EdgeID: rec.ID, NodeID: rec.Target}
		}
		s.edges = append(s.edges, edge{id: rec.ID, source: src, target: dst})
	}

	return s, nil
}

// NodeCount returns the number of nodes in the snapshot
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges in the snapshot
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

func (s *Snapshot) resetForces() {
	for _, n := range s.nodes {
		n.force = Vector{}
	}
}

func (s *Snapshot) hasFixed() bool {
	for _, n := range s.nodes {
		if n.fixed {
			return true
		}
	}
	return false
}

// simPositions returns the working coordinates in node order.
func (s *Snapshot) simPositions() []PositionUpdate {
	out := make([]PositionUpdate, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = PositionUpdate{ID: n.id, Position: n.sim}
	}
	return out
}

// flush copies working coordinates into the host-visible position and
// returns them as commit updates.
func (s *Snapshot) flush() []PositionUpdate {
	for _, n := range s.nodes {
		n.position = n.sim
	}
	return s.simPositions()
}

// transform applies fn to every working coordinate.
func (s *Snapshot) transform(fn func([]Position)) {
	pts := make([]Position, len(s.nodes))
	for i, n := range s.nodes {
		pts[i] = n.sim
	}
	fn(pts)
	for i, n := range s.nodes {
		n.sim = pts[i]
	}
}
