package layout

import "math"

// Fit scales and translates pts so their bounding box fills a
// width x height viewport inset by padding, keeping the aspect ratio.
// Fewer than two points, or a viewport smaller than its padding, are left untouched.
func Fit(pts []Position, width, height, padding float64) {
	if len(pts) < 2 {
		return
	}
	targetWidth := width - 2*padding
	targetHeight := height - 2*padding
	if targetWidth <= 0 || targetHeight <= 0 {
		return
	}

	b := BoundsOf(pts)
	rangeX := b.MaxX - b.MinX
	rangeY := b.MaxY - b.MinY

	if rangeX < 0.01 {
		rangeX = 1
	}
	if rangeY < 0.01 {
		rangeY = 1
	}

	scale := math.Min(targetWidth/rangeX, targetHeight/rangeY)
	c := b.Center()
	for i, p := range pts {
		pts[i] = Position{
			X: width/2 + (p.X-c.X)*scale,
			Y: height/2 + (p.Y-c.Y)*scale,
		}
	}
}
