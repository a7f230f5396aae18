package segment

import (
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/capture"
)

func newFrame(t *testing.T, rows, cols int, mt gocv.MatType, seq uint64) *capture.Frame {
	t.Helper()
	mat := gocv.NewMatWithSize(rows, cols, mt)
	f := capture.NewFrame(mat, seq, time.Unix(0, int64(seq)))
	t.Cleanup(f.Close)
	return f
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		engine  string
		wantNil bool
		wantErr error
	}{
		{name: "none", engine: EngineNone, wantNil: true},
		{name: "unknown", engine: "magic", wantNil: true, wantErr: ErrUnknownEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Engine = tt.engine

			eng, err := New(cfg, nil)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("New() unexpected error = %v", err)
			}
			if tt.wantNil && eng != nil {
				t.Errorf("New() = %v, want nil engine", eng)
			}
		})
	}
}

func TestNewDNNEngine_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "testdata/does-not-exist.onnx"

	if _, err := NewDNNEngine(cfg); err == nil {
		t.Error("NewDNNEngine() should fail for a missing model")
	}
}

func TestError_Unwrap(t *testing.T) {
	err := error(&Error{Seq: 7, Engine: EngineDNN, Err: ErrUnsupportedFormat})

	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Error("errors.Is should find the wrapped error")
	}

	var segErr *Error
	if !errors.As(err, &segErr) || segErr.Seq != 7 {
		t.Errorf("errors.As = %v, want Seq 7", segErr)
	}
}

func TestCheckFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   func(t *testing.T) *capture.Frame
		wantErr error
	}{
		{
			name:  "bgr",
			frame: func(t *testing.T) *capture.Frame { return newFrame(t, 4, 4, gocv.MatTypeCV8UC3, 1) },
		},
		{
			name:    "gray",
			frame:   func(t *testing.T) *capture.Frame { return newFrame(t, 4, 4, gocv.MatTypeCV8UC1, 1) },
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "bgra",
			frame:   func(t *testing.T) *capture.Frame { return newFrame(t, 4, 4, gocv.MatTypeCV8UC4, 1) },
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "nil",
			frame:   func(t *testing.T) *capture.Frame { return nil },
			wantErr: ErrEmptyFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFrame(tt.frame(t))
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("checkFrame() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("checkFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfidenceToBytes(t *testing.T) {
	conf := []float32{-0.5, 0, 0.25, 0.5, 0.75, 1, 1.5}

	t.Run("soft", func(t *testing.T) {
		got := confidenceToBytes(conf, 0)
		want := []byte{0, 0, 64, 128, 191, 255, 255}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
			}
		}
	})

	t.Run("threshold", func(t *testing.T) {
		got := confidenceToBytes(conf, 0.5)
		want := []byte{0, 0, 0, 255, 255, 255, 255}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
			}
		}
	})
}

func TestMockEngine(t *testing.T) {
	eng := NewMockEngine(32, 18, 200)
	defer eng.Close()

	frame := newFrame(t, 180, 320, gocv.MatTypeCV8UC3, 42)

	mask, err := eng.Segment(frame)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	defer mask.Close()

	if mask.Width() != 32 || mask.Height() != 18 {
		t.Errorf("mask size = %dx%d, want 32x18", mask.Width(), mask.Height())
	}
	if mask.Seq != frame.Seq || !mask.Timestamp.Equal(frame.Timestamp) {
		t.Errorf("mask = seq %d at %v, want seq %d at %v", mask.Seq, mask.Timestamp, frame.Seq, frame.Timestamp)
	}
	if got := mask.Mat.GetUCharAt(5, 5); got != 200 {
		t.Errorf("mask value = %d, want 200", got)
	}

	eng.SetError(errors.New("inference failed"))
	_, err = eng.Segment(frame)
	var segErr *Error
	if !errors.As(err, &segErr) || segErr.Seq != 42 {
		t.Errorf("Segment() error = %v, want *Error for seq 42", err)
	}

	if got := eng.Calls(); got != 2 {
		t.Errorf("Calls() = %d, want 2", got)
	}
}

func TestMask_CloseTwice(t *testing.T) {
	frame := newFrame(t, 4, 4, gocv.MatTypeCV8UC3, 1)
	mask := NewMask(gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1), frame)

	mask.Close()
	mask.Close()

	var nilMask *Mask
	nilMask.Close()
}
