package segment

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/capture"
)

// MockEngine is a test implementation of the Engine interface.
// It returns a uniform mask of a fixed size.
type MockEngine struct {
	mu     sync.Mutex
	width  int
	height int
	value  uint8
	err    error
	calls  int
	block  chan struct{}
	closed bool
}

// NewMockEngine creates a MockEngine producing width x height masks filled
// with value.
func NewMockEngine(width, height int, value uint8) *MockEngine {
	return &MockEngine{width: width, height: height, value: value}
}

// SetError sets the error that will be returned by Segment.
func (m *MockEngine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetValue changes the mask fill value.
func (m *MockEngine) SetValue(v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
}

// Hold makes Segment wait until the returned function is called.
func (m *MockEngine) Hold() (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.block = ch
	m.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many times Segment was called.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Segment returns the configured mask or error.
func (m *MockEngine) Segment(frame *capture.Frame) (*Mask, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	err := m.err
	closed := m.closed
	w, h, v := m.width, m.height, m.value
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	if closed {
		return nil, &Error{Seq: seqOf(frame), Engine: "mock", Err: errors.New("engine closed")}
	}
	if err := checkFrame(frame); err != nil {
		return nil, &Error{Seq: seqOf(frame), Engine: "mock", Err: err}
	}
	if err != nil {
		return nil, &Error{Seq: frame.Seq, Engine: "mock", Err: err}
	}

	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), 0, 0, 0), h, w, gocv.MatTypeCV8UC1)
	return NewMask(mat, frame), nil
}

// Close marks the engine closed.
func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
