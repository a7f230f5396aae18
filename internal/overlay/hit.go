package overlay

import (
	"github.com/golang/geo/r2"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/shape"
)

// HitTest reports whether p, in overlay coordinates with the origin at the
// top-left corner, lands on the visible overlay. Clicks outside the shape
// pass through to whatever is underneath.
func HitTest(p r2.Point, snap app.Snapshot, cornerRadius float64) bool {
	return shape.Contains(p, snap.Size.Bounds(), snap.Shape, cornerRadius)
}
