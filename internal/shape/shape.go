// Package shape describes the visible region of the overlay and the geometry
// used to clip the rendered frame and to accept pointer input.
package shape

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownShape is returned when a shape name cannot be parsed.
var ErrUnknownShape = errors.New("unknown shape")

// Kind is the variant tag of a Shape.
type Kind int

const (
	// KindCircle is a circle inscribed in the bounds.
	KindCircle Kind = iota
	// KindRectangle is a rounded rectangle with a fixed aspect ratio.
	KindRectangle
)

// Shape is the overlay region. It is a plain value and compares with ==.
// Aspect is width/height and only meaningful for KindRectangle.
type Shape struct {
	Kind   Kind
	Aspect float64
}

// Named shapes offered by the menu.
var (
	Circle    = Shape{Kind: KindCircle}
	Portrait  = Shape{Kind: KindRectangle, Aspect: 3.0 / 4.0}
	Landscape = Shape{Kind: KindRectangle, Aspect: 4.0 / 3.0}
)

// All lists the named shapes in menu order.
var All = []Shape{Circle, Portrait, Landscape}

// Rectangle returns a rectangle shape with the given width:height ratio.
func Rectangle(aspect float64) Shape {
	return Shape{Kind: KindRectangle, Aspect: aspect}
}

// String returns the stable name used in config, storage and the API.
func (s Shape) String() string {
	switch s {
	case Circle:
		return "circle"
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	}
	if s.Kind == KindRectangle {
		return fmt.Sprintf("rectangle:%g", s.Aspect)
	}
	return "unknown"
}

// Parse converts a name produced by String back into a Shape.
func Parse(name string) (Shape, error) {
	switch name {
	case "circle":
		return Circle, nil
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}

	if v, ok := strings.CutPrefix(name, "rectangle:"); ok {
		aspect, err := strconv.ParseFloat(v, 64)
		if err == nil && aspect > 0 && !math.IsInf(aspect, 0) {
			return Rectangle(aspect), nil
		}
	}

	return Shape{}, fmt.Errorf("%w: %q", ErrUnknownShape, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Next returns the named shape after s, wrapping around. Unnamed shapes
// continue from Circle.
func Next(s Shape) Shape {
	for i, candidate := range All {
		if candidate == s {
			return All[(i+1)%len(All)]
		}
	}
	return Circle
}

// aspect returns a usable width/height ratio for s.
func (s Shape) aspect() float64 {
	if s.Kind != KindRectangle || s.Aspect <= 0 || math.IsNaN(s.Aspect) || math.IsInf(s.Aspect, 0) {
		return 1
	}
	return s.Aspect
}
