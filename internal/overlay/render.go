// Package overlay draws the presenter overlay: the camera image scaled to
// fill the overlay, clipped to its shape, with an optional border.
package overlay

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/shape"
)

// Default chrome.
const (
	DefaultBorderWidth = 2.0
)

// DefaultBorderColor is white at 30% opacity.
var DefaultBorderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 77}

// Renderer turns state snapshots into overlay images.
type Renderer struct {
	CornerRadius float64
	BorderWidth  float64
	BorderColor  color.Color
	Filter       imaging.ResampleFilter
}

// NewRenderer returns a Renderer with the default chrome.
func NewRenderer() *Renderer {
	return &Renderer{
		CornerRadius: shape.DefaultCornerRadius,
		BorderWidth:  DefaultBorderWidth,
		BorderColor:  DefaultBorderColor,
		Filter:       imaging.Linear,
	}
}

// Source picks the image to present. With background removal on and a
// composite available it is the composite; otherwise it is the live frame,
// mirrored if requested. The second result is false when there is nothing
// to show yet.
func Source(snap app.Snapshot) (image.Image, bool) {
	if snap.BackgroundRemoval && snap.Composited != nil {
		return snap.Composited.Image, true
	}
	if snap.Live == nil || snap.Live.Image == nil {
		return nil, false
	}
	if snap.Mirrored {
		return imaging.FlipH(snap.Live.Image), true
	}
	return snap.Live.Image, true
}

// ShowChrome reports whether the border is drawn. It is hidden while the
// background is removed so the presenter floats without a frame.
func ShowChrome(snap app.Snapshot) bool {
	return !snap.BackgroundRemoval
}

// Render draws the overlay for snap at its derived size. Pixels outside the
// shape are fully transparent. Before the first frame only the chrome is drawn.
func (r *Renderer) Render(snap app.Snapshot) *image.NRGBA {
	size := shape.DerivedSize(snap.Width, snap.Shape)
	w := int(math.Round(size.Width))
	h := int(math.Round(size.Height))
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}

	var out *image.NRGBA
	if src, ok := Source(snap); ok {
		out = imaging.Fill(src, w, h, imaging.Center, r.Filter)
	} else {
		out = imaging.New(w, h, color.NRGBA{A: 255})
	}

	bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: float64(w), Y: float64(h)})
	clip(out, bounds, snap.Shape, r.CornerRadius)

	if ShowChrome(snap) && r.BorderWidth > 0 {
		out = r.drawBorder(out, snap.Shape)
	}
	return out
}

// clip clears every pixel whose center falls outside the shape.
func clip(img *image.NRGBA, bounds r2.Rect, s shape.Shape, cornerRadius float64) {
	rect := img.Bounds()
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := img.Pix[(y-rect.Min.Y)*img.Stride:]
		for x := rect.Min.X; x < rect.Max.X; x++ {
			p := r2.Point{X: float64(x-rect.Min.X) + 0.5, Y: float64(y-rect.Min.Y) + 0.5}
			if !shape.Contains(p, bounds, s, cornerRadius) {
				i := (x - rect.Min.X) * 4
				row[i], row[i+1], row[i+2], row[i+3] = 0, 0, 0, 0
			}
		}
	}
}

// drawBorder strokes the shape outline inside the image.
func (r *Renderer) drawBorder(img *image.NRGBA, s shape.Shape) *image.NRGBA {
	w := float64(img.Bounds().Dx())
	h := float64(img.Bounds().Dy())
	inset := r.BorderWidth / 2

	dc := gg.NewContextForImage(img)
	dc.SetColor(r.BorderColor)
	dc.SetLineWidth(r.BorderWidth)

	switch s.Kind {
	case shape.KindCircle:
		dc.DrawCircle(w/2, h/2, math.Min(w, h)/2-inset)
	case shape.KindRectangle:
		radius := math.Max(0, math.Min(r.CornerRadius, math.Min(w, h)/2)-inset)
		dc.DrawRoundedRectangle(inset, inset, w-2*inset, h-2*inset, radius)
	}
	dc.Stroke()

	return imaging.Clone(dc.Image())
}
