package layout

import "math"

// epsilon keeps distances away from zero when nodes coincide.
const epsilon = 0.01

// forceField holds the per-iteration constants.
type forceField struct {
	area   float64
	k      float64
	center Position
}

func newForceField(cfg *Config, n int, center Position) forceField {
	area := cfg.area(n)
	return forceField{
		area:   area,
		k:      math.Sqrt(area / float64(1+n)),
		center: center,
	}
}

// repel pushes every unordered pair of nodes apart.
func (f forceField) repel(nodes []*node, scale float64) {
	k2 := f.k * f.k
	for i := 0; i < len(nodes); i++ {
		a := nodes[i]
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			dx := a.sim.X - b.sim.X
			dy := a.sim.Y - b.sim.Y
			dist := math.Hypot(dx, dy) + epsilon

			force := k2 / dist * scale
			fx := dx / dist * force
			fy := dy / dist * force

			a.force.DX += fx
			a.force.DY += fy
			b.force.DX -= fx
			b.force.DY -= fy
		}
	}
}

// attract pulls the endpoints of every edge toward each other.
func (f forceField) attract(nodes []*node, edges []edge, scale float64) {
	for _, e := range edges {
		src := nodes[e.source]
		dst := nodes[e.target]
		dx := src.sim.X - dst.sim.X
		dy := src.sim.Y - dst.sim.Y
		dist := math.Hypot(dx, dy) + epsilon

		force := dist * dist / f.k * scale
		fx := dx / dist * force
		fy := dy / dist * force

		src.force.DX -= fx
		src.force.DY -= fy
		dst.force.DX += fx
		dst.force.DY += fy
	}
}

// gravitate pulls every node toward the center, proportionally to its
// distance. Nodes already at the center are left alone.
func (f forceField) gravitate(nodes []*node, gravity float64) {
	if gravity == 0 {
		return
	}
	for _, n := range nodes {
		dx := n.sim.X - f.center.X
		dy := n.sim.Y - f.center.Y
		d := math.Hypot(dx, dy)
		if d == 0 {
			continue
		}
		g := 0.01 * f.k * gravity * d
		n.force.DX -= g * dx / d
		n.force.DY -= g * dy / d
	}
}

// damp scales every accumulator by speed.
func damp(nodes []*node, speed float64) {
	for _, n := range nodes {
		n.force.DX *= speed
		n.force.DY *= speed
	}
}
