// Package composite combines a camera frame with a person mask into an
// image with a transparent background.
package composite

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/segment"
)

var (
	ErrEmptyFrame        = errors.New("empty frame")
	ErrEmptyMask         = errors.New("empty mask")
	ErrMismatchedPair    = errors.New("mask does not belong to frame")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Interpolation selects how the mask is resampled to frame size.
type Interpolation int

const (
	Nearest Interpolation = iota
	Linear
)

func (i Interpolation) String() string {
	if i == Linear {
		return "linear"
	}
	return "nearest"
}

// ParseInterpolation parses "nearest" or "linear".
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest":
		return Nearest, nil
	case "linear":
		return Linear, nil
	default:
		return Nearest, fmt.Errorf("unknown interpolation %q", s)
	}
}

func (i Interpolation) flag() gocv.InterpolationFlags {
	if i == Linear {
		return gocv.InterpolationLinear
	}
	return gocv.InterpolationNearestNeighbor
}

// Frame is a composited frame: the source pixels with alpha taken from the
// mask. It is immutable and safe to share between goroutines.
type Frame struct {
	Image     *image.NRGBA // straight alpha, source frame size
	Seq       uint64
	Timestamp time.Time
}

func (f *Frame) Width() int  { return f.Image.Rect.Dx() }
func (f *Frame) Height() int { return f.Image.Rect.Dy() }

// Alpha returns the alpha at (x, y).
func (f *Frame) Alpha(x, y int) uint8 {
	return f.Image.NRGBAAt(x, y).A
}

// Compositor produces composited frames. The zero value uses
// nearest-neighbor resampling.
type Compositor struct {
	Interpolation Interpolation
}

// ScaleFactors returns the horizontal and vertical factors that map mask
// coordinates to frame coordinates. Zero mask dimensions give zero factors.
func ScaleFactors(frameW, frameH, maskW, maskH int) (sx, sy float64) {
	if maskW > 0 {
		sx = float64(frameW) / float64(maskW)
	}
	if maskH > 0 {
		sy = float64(frameH) / float64(maskH)
	}
	return sx, sy
}

// Composite scales mask to the size of frame and uses it as the alpha of
// frame. The output always has the frame's size. Neither input is closed.
func (c Compositor) Composite(frame *capture.Frame, mask *segment.Mask) (*Frame, error) {
	if frame == nil || frame.Mat.Empty() {
		return nil, ErrEmptyFrame
	}
	if mask == nil || mask.Mat.Empty() {
		return nil, ErrEmptyMask
	}
	if mask.Seq != frame.Seq {
		return nil, fmt.Errorf("%w: mask seq %d, frame seq %d", ErrMismatchedPair, mask.Seq, frame.Seq)
	}
	if frame.Mat.Channels() != 3 {
		return nil, fmt.Errorf("%w: frame has %d channels", ErrUnsupportedFormat, frame.Mat.Channels())
	}
	if mask.Mat.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("%w: mask type %v", ErrUnsupportedFormat, mask.Mat.Type())
	}

	w, h := frame.Width(), frame.Height()

	alpha := gocv.NewMat()
	defer alpha.Close()
	gocv.Resize(mask.Mat, &alpha, image.Pt(w, h), 0, 0, c.Interpolation.flag())

	channels := gocv.Split(frame.Mat)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.Merge([]gocv.Mat{channels[0], channels[1], channels[2], alpha}, &bgra)

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(bgra, &rgba, gocv.ColorBGRAToRGBA)

	if rgba.Cols() != w || rgba.Rows() != h {
		return nil, fmt.Errorf("composite size %dx%d, want %dx%d", rgba.Cols(), rgba.Rows(), w, h)
	}

	return &Frame{
		Image: &image.NRGBA{
			Pix:    rgba.ToBytes(),
			Stride: 4 * w,
			Rect:   image.Rect(0, 0, w, h),
		},
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
	}, nil
}
