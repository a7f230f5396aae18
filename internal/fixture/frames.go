// Package fixture generates synthetic camera frames for tests.
package fixture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	backgroundColor = color.RGBA{R: 40, G: 120, B: 40, A: 255}
	personColor     = color.RGBA{R: 200, G: 160, B: 140, A: 255}
)

// PresenterFrame returns a BGR frame with a head-and-shoulders silhouette
// centered at offsetX pixels from the middle. The caller closes the Mat.
func PresenterFrame(width, height, offsetX int) gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(backgroundColor.B), float64(backgroundColor.G), float64(backgroundColor.R), 0),
		height, width, gocv.MatTypeCV8UC3,
	)

	cx := width/2 + offsetX
	head := image.Pt(cx, height*2/5)
	gocv.Circle(&mat, head, height/6, personColor, -1)

	shoulders := image.Rect(cx-width/4, height*3/5, cx+width/4, height)
	gocv.Rectangle(&mat, shoulders, personColor, -1)

	return mat
}

// Sequence returns n frames with the silhouette drifting sideways.
// The caller closes every Mat.
func Sequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		mat := PresenterFrame(width, height, (i%5-2)*width/40)
		frames = append(frames, &mat)
	}
	return frames
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
