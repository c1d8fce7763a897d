package layout

import "math"

// integrate moves every non-fixed node along its accumulated force, capped
// at sqrt(area)/10 * speed per iteration.
func integrate(nodes []*node, area, speed float64) {
	limit := math.Sqrt(area) / 10 * speed
	for _, n := range nodes {
		if n.fixed {
			continue
		}
		mag := n.force.Len()
		if mag <= 0 {
			continue
		}
		d := math.Min(limit, mag)
		n.sim.X += n.force.DX / mag * d
		n.sim.Y += n.force.DY / mag * d
	}
}

// iterate runs one complete force/integration step over the snapshot.
// Graphs with fewer than two nodes have nothing to balance and are left as is.
func iterate(s *Snapshot, cfg *Config, center Position) {
	s.resetForces()
	if len(s.nodes) < 2 {
		return
	}

	field := newForceField(cfg, len(s.nodes), center)
	field.repel(s.nodes, cfg.RepulsionScale)
	field.attract(s.nodes, s.edges, cfg.AttractionScale)
	field.gravitate(s.nodes, cfg.Gravity)
	damp(s.nodes, cfg.Speed)
	integrate(s.nodes, field.area, cfg.Speed)
}
