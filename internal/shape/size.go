package shape

import (
	"math"

	"github.com/golang/geo/r2"
)

// Overlay width limits in points.
const (
	MinWidth     = 80.0
	MaxWidth     = 400.0
	DefaultWidth = 200.0
)

// Size is the full extent of the overlay window.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the overlay rectangle of this size anchored at the origin.
func (sz Size) Bounds() r2.Rect {
	return r2.RectFromPoints(r2.Point{}, r2.Point{X: sz.Width, Y: sz.Height})
}

// Preset is a named overlay width offered by the size menu.
type Preset struct {
	Label string
	Width float64
}

// Presets are the sizes listed in the menu, smallest first.
var Presets = []Preset{
	{Label: "Small", Width: 120},
	{Label: "Medium", Width: 200},
	{Label: "Large", Width: 300},
}

// DerivedSize computes the window size for a width. Width drives sizing: a
// circle is width×width and a rectangle is width×(width/aspect). The result
// only depends on its arguments.
func DerivedSize(width float64, s Shape) Size {
	switch s.Kind {
	case KindRectangle:
		return Size{Width: width, Height: width / s.aspect()}
	default:
		return Size{Width: width, Height: width}
	}
}

// ClampWidth limits width to [MinWidth, MaxWidth]. NaN maps to DefaultWidth.
func ClampWidth(width float64) float64 {
	if math.IsNaN(width) {
		return DefaultWidth
	}
	return math.Max(MinWidth, math.Min(MaxWidth, width))
}

// Magnify applies a pinch magnification (0 = unchanged, 0.5 = 50% larger)
// to width and clamps the result.
func Magnify(width, magnification float64) float64 {
	return ClampWidth(width + width*magnification)
}

// ResizeAround returns the window frame for a new width while keeping the
// center of frame fixed.
func ResizeAround(frame r2.Rect, width float64, s Shape) r2.Rect {
	size := DerivedSize(ClampWidth(width), s)
	return r2.RectFromCenterSize(frame.Center(), r2.Point{X: size.Width, Y: size.Height})
}
