package shape

import (
	"testing"

	"github.com/golang/geo/r2"
)

func rect(w, h float64) r2.Rect {
	return Size{Width: w, Height: h}.Bounds()
}

func TestContains_Circle(t *testing.T) {
	bounds := rect(200, 200)

	tests := []struct {
		name  string
		point r2.Point
		want  bool
	}{
		{name: "center", point: r2.Point{X: 100, Y: 100}, want: true},
		{name: "corner", point: r2.Point{X: 5, Y: 5}, want: false},
		{name: "near top edge", point: r2.Point{X: 100, Y: 5}, want: true},
		{name: "on top edge", point: r2.Point{X: 100, Y: 0}, want: true},
		{name: "on diagonal just inside", point: r2.Point{X: 30, Y: 30}, want: true},
		{name: "on diagonal just outside", point: r2.Point{X: 29, Y: 29}, want: false},
		{name: "outside bounds", point: r2.Point{X: 300, Y: 300}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.point, bounds, Circle, DefaultCornerRadius); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestContains_CircleUsesSmallerSide(t *testing.T) {
	// 300x100: radius is 50, so x=40 lies outside even though it is within bounds.
	bounds := rect(300, 100)

	if !Contains(r2.Point{X: 150, Y: 50}, bounds, Circle, 0) {
		t.Error("center should be inside")
	}
	if Contains(r2.Point{X: 40, Y: 50}, bounds, Circle, 0) {
		t.Error("point beyond the inscribed circle should be outside")
	}
	if !Contains(r2.Point{X: 100, Y: 50}, bounds, Circle, 0) {
		t.Error("point on the inscribed circle should be inside")
	}
}

func TestContains_Rectangle(t *testing.T) {
	size := DerivedSize(200, Portrait)
	bounds := size.Bounds()

	tests := []struct {
		name  string
		point r2.Point
		want  bool
	}{
		{name: "exact corner", point: r2.Point{X: 0, Y: 0}, want: false},
		{name: "middle", point: r2.Point{X: 100, Y: 133}, want: true},
		{name: "top edge midpoint", point: r2.Point{X: 100, Y: 0}, want: true},
		{name: "inside corner arc", point: r2.Point{X: 6, Y: 6}, want: true},
		{name: "outside corner arc", point: r2.Point{X: 3, Y: 3}, want: false},
		{name: "bottom right corner", point: r2.Point{X: 200, Y: size.Height}, want: false},
		{name: "below bounds", point: r2.Point{X: 100, Y: 300}, want: false},
		{name: "left of bounds", point: r2.Point{X: -1, Y: 133}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(tt.point, bounds, Portrait, 16); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestContains_RectangleOutsideMisses(t *testing.T) {
	bounds := rect(200, 200)
	if Contains(r2.Point{X: 300, Y: 300}, bounds, Landscape, DefaultCornerRadius) {
		t.Error("point outside bounds should miss")
	}
}

func TestContains_RadiusClampedToHalfSide(t *testing.T) {
	// A radius larger than half the smaller side turns a square into a circle.
	bounds := rect(100, 100)
	square := Rectangle(1)

	if Contains(r2.Point{X: 10, Y: 10}, bounds, square, 500) {
		t.Error("corner point should be outside a fully rounded square")
	}
	if !Contains(r2.Point{X: 50, Y: 0}, bounds, square, 500) {
		t.Error("edge midpoint should be inside a fully rounded square")
	}
}

func TestContains_NoRadius(t *testing.T) {
	bounds := rect(100, 50)
	if !Contains(r2.Point{X: 0, Y: 0}, bounds, Landscape, 0) {
		t.Error("corner should be inside a sharp rectangle")
	}
	if !Contains(r2.Point{X: 0, Y: 0}, bounds, Landscape, -4) {
		t.Error("negative radius should behave like zero")
	}
}

func TestContains_CenterAlwaysInside(t *testing.T) {
	sizes := []Size{
		{Width: 200, Height: 200},
		{Width: 80, Height: 60},
		{Width: 400, Height: 533.3},
		{Width: 1, Height: 1000},
		{Width: 0, Height: 0},
	}
	radii := []float64{0, 1, 16, 1000}

	for _, sz := range sizes {
		bounds := sz.Bounds()
		for _, s := range append(All, Rectangle(2.5)) {
			for _, r := range radii {
				if !Contains(bounds.Center(), bounds, s, r) {
					t.Errorf("center of %+v not inside %v with radius %v", sz, s, r)
				}
			}
		}
	}
}

func TestContains_OffsetBounds(t *testing.T) {
	bounds := r2.RectFromPoints(r2.Point{X: 1000, Y: 500}, r2.Point{X: 1200, Y: 700})

	if !Contains(r2.Point{X: 1100, Y: 600}, bounds, Circle, 0) {
		t.Error("center of offset bounds should be inside")
	}
	if Contains(r2.Point{X: 100, Y: 100}, bounds, Circle, 0) {
		t.Error("point from origin-based bounds should be outside offset bounds")
	}
}
