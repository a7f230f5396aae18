package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured BGR image.
//
// A frame is immutable once produced. Whoever receives it owns it and must
// call Close exactly when done; handing it to another stage hands over that
// duty as well.
type Frame struct {
	Mat       gocv.Mat
	Seq       uint64    // assigned at capture, increases by one per captured frame
	Timestamp time.Time // capture time from the source clock

	closeOnce sync.Once
}

// NewFrame wraps mat. The frame takes ownership of mat.
func NewFrame(mat gocv.Mat, seq uint64, ts time.Time) *Frame {
	return &Frame{Mat: mat, Seq: seq, Timestamp: ts}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Mat.Cols() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Mat.Rows() }

// Size returns the frame size as a point.
func (f *Frame) Size() image.Point { return image.Pt(f.Width(), f.Height()) }

// Close releases the underlying Mat. Calling it again is a no-op.
func (f *Frame) Close() {
	if f == nil {
		return
	}
	f.closeOnce.Do(func() {
		f.Mat.Close()
	})
}
