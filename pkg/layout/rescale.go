package layout

import "math"

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Center returns the midpoint of b
func (b Bounds) Center() Position {
	return Position{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// BoundsOf returns the bounding box of pts. pts must not be empty.
func BoundsOf(pts []Position) Bounds {
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, p := range pts {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// Rescale centers pts on the origin and scales them so that the closest pair
// is at most minSpacing apart and the loneliest node's nearest neighbour is
// at most maxSpread away, with one of the two bounds reached exactly.
// It returns the applied ratio. Fewer than two points are left untouched.
func Rescale(pts []Position, minSpacing, maxSpread float64) float64 {
	n := len(pts)
	if n < 2 {
		return 1
	}

	md := math.Inf(1)
	nearest := make([]float64, n)
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := pts[i].X - pts[j].X
			dy := pts[i].Y - pts[j].Y
			d := dx*dx + dy*dy
			md = math.Min(md, d)
			nearest[i] = math.Min(nearest[i], d)
			nearest[j] = math.Min(nearest[j], d)
		}
	}
	maxd := math.Inf(-1)
	for _, d := range nearest {
		maxd = math.Max(maxd, d)
	}

	ratio := 1.0
	switch {
	case md > 0:
		ratio = math.Min(minSpacing/math.Sqrt(md), maxSpread/math.Sqrt(maxd))
	case maxd > 0:
		// some nodes coincide; only the spread bound is meaningful
		ratio = maxSpread / math.Sqrt(maxd)
	}

	c := BoundsOf(pts).Center()
	for i, p := range pts {
		pts[i] = Position{X: ratio * (p.X - c.X), Y: ratio * (p.Y - c.Y)}
	}
	return ratio
}
