package shape

import (
	"math"

	"github.com/golang/geo/r2"
)

// DefaultCornerRadius is the corner radius of rectangle overlays in points.
const DefaultCornerRadius = 16.0

// Contains reports whether p lies inside the region that s occupies within
// bounds. The renderer clips with it and the window layer hit-tests with it,
// so the visible and the clickable areas are the same set of points.
//
// A circle uses the smaller side of bounds as its diameter. A rectangle fills
// bounds with corners rounded by cornerRadius, clamped to half the smaller
// side. Points on the edge are inside.
func Contains(p r2.Point, bounds r2.Rect, s Shape, cornerRadius float64) bool {
	if !bounds.IsValid() {
		return false
	}

	size := bounds.Size()
	center := bounds.Center()

	switch s.Kind {
	case KindCircle:
		radius := math.Min(size.X, size.Y) / 2
		d := p.Sub(center)
		return d.Dot(d) <= radius*radius

	case KindRectangle:
		if !bounds.ContainsPoint(p) {
			return false
		}
		r := clampRadius(cornerRadius, size)
		lo, hi := bounds.Lo(), bounds.Hi()

		// Nearest point of the rectangle shrunk by r; only the corner
		// regions end up with a non-zero distance to it.
		nearest := r2.Point{
			X: clampAxis(p.X, lo.X+r, hi.X-r, center.X),
			Y: clampAxis(p.Y, lo.Y+r, hi.Y-r, center.Y),
		}
		d := p.Sub(nearest)
		return d.Dot(d) <= r*r
	}

	return false
}

func clampRadius(r float64, size r2.Point) float64 {
	if r <= 0 || math.IsNaN(r) {
		return 0
	}
	return math.Min(r, math.Min(size.X, size.Y)/2)
}

// clampAxis clamps v to [lo, hi]. A collapsed range (lo > hi from rounding)
// clamps to mid.
func clampAxis(v, lo, hi, mid float64) float64 {
	if lo > hi {
		return mid
	}
	return math.Max(lo, math.Min(hi, v))
}
