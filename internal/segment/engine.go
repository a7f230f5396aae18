// Package segment separates the person in a frame from the background.
package segment

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/capture"
)

// Engine kinds accepted by New.
const (
	EngineDNN     = "dnn"
	EngineProcess = "process"
	EngineNone    = "none"
)

// Default model input size. Masks come back at this resolution and are
// scaled up by the compositor.
const (
	DefaultInputWidth  = 256
	DefaultInputHeight = 144
)

var (
	// ErrUnsupportedFormat is returned for frames that are not 3-channel BGR.
	ErrUnsupportedFormat = errors.New("unsupported frame format")
	// ErrEmptyFrame is returned for frames with no pixels.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrUnknownEngine is returned by New for an unrecognized engine kind.
	ErrUnknownEngine = errors.New("unknown segmentation engine")
)

// Engine produces a person mask for a frame.
type Engine interface {
	// Segment returns a mask for frame. The caller keeps ownership of frame
	// and owns the returned mask. Failures are returned as *Error.
	Segment(frame *capture.Frame) (*Mask, error)

	// Close releases any resources held by the engine.
	Close() error
}

// Mask is a single-channel person mask: 255 is person, 0 is background.
// It may be smaller than the frame it was derived from.
type Mask struct {
	Mat       gocv.Mat // CV8UC1
	Seq       uint64   // Seq of the source frame
	Timestamp time.Time

	closeOnce sync.Once
}

// NewMask wraps mat for the given frame. The mask takes ownership of mat.
func NewMask(mat gocv.Mat, frame *capture.Frame) *Mask {
	return &Mask{Mat: mat, Seq: frame.Seq, Timestamp: frame.Timestamp}
}

func (m *Mask) Width() int  { return m.Mat.Cols() }
func (m *Mask) Height() int { return m.Mat.Rows() }

// Close releases the underlying Mat. Calling it again is a no-op.
func (m *Mask) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.Mat.Close()
	})
}

// Error reports a failure to segment one frame. It is never fatal: the
// pipeline drops the frame and keeps the last good composite.
type Error struct {
	Seq    uint64
	Engine string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("segment frame %d (%s): %v", e.Seq, e.Engine, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds configuration options for segmentation.
type Config struct {
	// Engine is one of "dnn", "process" or "none".
	Engine string `yaml:"engine"`

	// ModelPath is the ONNX selfie segmentation model used by the dnn engine.
	ModelPath string `yaml:"model_path"`

	// InputWidth and InputHeight are the model input size.
	InputWidth  int `yaml:"input_width"`
	InputHeight int `yaml:"input_height"`

	// Threshold binarizes the mask when in (0, 1). Zero keeps soft edges.
	Threshold float64 `yaml:"threshold"`

	// Command starts the external service used by the process engine.
	// Empty means python3 with scripts/segmentation_service.py.
	Command []string `yaml:"command"`

	// IdleTimeout stops the external service after this long without a frame.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Engine:      EngineDNN,
		ModelPath:   "models/selfie_segmentation.onnx",
		InputWidth:  DefaultInputWidth,
		InputHeight: DefaultInputHeight,
		IdleTimeout: 30 * time.Second,
	}
}

// New builds the engine selected by config. For "none" it returns a nil
// Engine and no error; background removal then has no effect.
func New(config Config, log logrus.FieldLogger) (Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	switch config.Engine {
	case EngineDNN, "":
		e, err := NewDNNEngine(config)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineProcess:
		e, err := NewProcessEngine(config, log)
		if err != nil {
			return nil, err
		}
		return e, nil
	case EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, config.Engine)
	}
}

// checkFrame validates the input constraints shared by all engines.
func checkFrame(frame *capture.Frame) error {
	if frame == nil || frame.Mat.Empty() {
		return ErrEmptyFrame
	}
	if frame.Mat.Channels() != 3 {
		return fmt.Errorf("%w: %d channels, want 3", ErrUnsupportedFormat, frame.Mat.Channels())
	}
	return nil
}

func seqOf(frame *capture.Frame) uint64 {
	if frame == nil {
		return 0
	}
	return frame.Seq
}
