package segment

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/capture"
)

// DNNEngine runs a selfie segmentation network through OpenCV's DNN module.
//
// The network takes a normalized RGB image at the configured input size and
// produces one person confidence in [0, 1] per input pixel.
type DNNEngine struct {
	config Config
	net    gocv.Net
	mu     sync.Mutex
	closed bool
}

// NewDNNEngine loads the model at config.ModelPath.
func NewDNNEngine(config Config) (*DNNEngine, error) {
	config = withInputDefaults(config)

	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("load segmentation model: %w", err)
	}

	net := gocv.ReadNet(config.ModelPath, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("load segmentation model %s: network is empty", config.ModelPath)
	}

	return &DNNEngine{
		config: config,
		net:    net,
	}, nil
}

// Segment runs the network on frame and returns a mask at the model input size.
func (e *DNNEngine) Segment(frame *capture.Frame) (*Mask, error) {
	if err := checkFrame(frame); err != nil {
		return nil, e.fail(frame, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, e.fail(frame, errors.New("engine closed"))
	}

	size := image.Pt(e.config.InputWidth, e.config.InputHeight)
	blob := gocv.BlobFromImage(frame.Mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, e.fail(frame, errors.New("network produced no output"))
	}

	conf, err := out.DataPtrFloat32()
	if err != nil {
		return nil, e.fail(frame, fmt.Errorf("read network output: %w", err))
	}

	want := size.X * size.Y
	if len(conf) < want {
		return nil, e.fail(frame, fmt.Errorf("network output has %d values, want %d", len(conf), want))
	}

	data := confidenceToBytes(conf[:want], e.config.Threshold)
	mat, err := gocv.NewMatFromBytes(size.Y, size.X, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return nil, e.fail(frame, fmt.Errorf("build mask: %w", err))
	}

	return NewMask(mat, frame), nil
}

// Close releases the network.
func (e *DNNEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}

func (e *DNNEngine) fail(frame *capture.Frame, err error) error {
	return &Error{Seq: seqOf(frame), Engine: EngineDNN, Err: err}
}

// confidenceToBytes maps confidences in [0, 1] to mask bytes. With a
// threshold in (0, 1) the mask is binary.
func confidenceToBytes(conf []float32, threshold float64) []byte {
	data := make([]byte, len(conf))
	binarize := threshold > 0 && threshold < 1

	for i, c := range conf {
		v := float64(c)
		switch {
		case binarize && v >= threshold:
			data[i] = 255
		case binarize:
			data[i] = 0
		case v <= 0:
			data[i] = 0
		case v >= 1:
			data[i] = 255
		default:
			data[i] = uint8(v*255 + 0.5)
		}
	}
	return data
}

func withInputDefaults(config Config) Config {
	if config.InputWidth <= 0 {
		config.InputWidth = DefaultInputWidth
	}
	if config.InputHeight <= 0 {
		config.InputHeight = DefaultInputHeight
	}
	return config
}
