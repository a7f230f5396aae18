package capture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// FrameHandler receives every delivered frame and owns it from then on.
type FrameHandler func(*Frame)

// SourceConfig configures a Source.
type SourceConfig struct {
	// Camera is the capture format; DeviceID is replaced by the selected device.
	Camera CameraConfig
	// DefaultDevice is used when Start gets no selector and none was used before.
	DefaultDevice Device
	// NewCamera builds the camera for a device. Defaults to NewCamera.
	NewCamera func(CameraConfig) Camera
	// Clock paces reads and stamps frames. Defaults to the wall clock.
	Clock clock.Clock
	Logger logrus.FieldLogger
}

// Stats are lifetime counters of a Source.
type Stats struct {
	Captured   uint64 `json:"captured"`
	Delivered  uint64 `json:"delivered"`
	Dropped    uint64 `json:"dropped"`
	ReadErrors uint64 `json:"read_errors"`
}

// Source owns the capture device and pushes frames to a handler.
//
// Two goroutines run while started: a reader that pulls frames from the
// camera at its frame rate and a deliverer that calls the handler. They meet
// in a single-slot mailbox. A frame the deliverer has not picked up yet is
// replaced, and closed, when the next one arrives, so a slow handler sees
// the newest frame instead of a backlog. Frames are delivered in capture
// order.
//
// The handler runs on the deliverer goroutine and must not call Stop or Start.
type Source struct {
	config SourceConfig
	clock  clock.Clock
	log    logrus.FieldLogger

	mu      sync.Mutex // serializes Start/Stop
	camera  Camera
	device  *Device
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	handlerMu sync.RWMutex
	handler   FrameHandler

	inboxMu     sync.Mutex
	inboxCond   *sync.Cond
	inbox       *Frame
	inboxClosed bool

	seq        atomic.Uint64
	captured   atomic.Uint64
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	readErrors atomic.Uint64
}

// NewSource creates a stopped Source.
func NewSource(config SourceConfig) *Source {
	if config.NewCamera == nil {
		config.NewCamera = NewCamera
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.DefaultDevice.Name == "" {
		config.DefaultDevice.Name = deviceName(config.DefaultDevice.ID)
	}
	config.Camera = config.Camera.withDefaults()

	s := &Source{
		config: config,
		clock:  config.Clock,
		log:    config.Logger.WithField("component", "capture"),
	}
	s.inboxCond = sync.NewCond(&s.inboxMu)
	return s
}

// OnFrame sets the frame handler. Frames delivered while no handler is set
// are closed and discarded.
func (s *Source) OnFrame(fn FrameHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.handler = fn
}

// Start opens a device and begins delivering frames. The device is sel if
// given, otherwise the device used last, otherwise the default device.
// Starting on the device already running is a no-op; starting on another
// device switches to it.
//
// Start returns once the device is open. The first frame arrives later, on
// the delivery goroutine. On failure a *CaptureError is returned and the
// source is left stopped.
func (s *Source) Start(sel *Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev := s.resolve(sel)
	if dev.ID < 0 {
		return &CaptureError{Device: dev, Err: ErrNoDevice}
	}

	if s.running {
		if s.device != nil && s.device.ID == dev.ID {
			return nil
		}
		s.stopLocked()
	}

	camConfig := s.config.Camera
	camConfig.DeviceID = dev.ID
	cam := s.config.NewCamera(camConfig)
	if err := cam.Open(); err != nil {
		return &CaptureError{Device: dev, Err: fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)}
	}

	fps := cam.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	// Created here rather than in the reader so that the first tick is
	// measured from Start.
	ticker := s.clock.Ticker(time.Second / time.Duration(fps))

	ctx, cancel := context.WithCancel(context.Background())

	s.inboxMu.Lock()
	s.inboxClosed = false
	s.inboxMu.Unlock()

	s.camera = cam
	s.device = &dev
	s.cancel = cancel
	s.running = true

	s.wg.Add(2)
	go s.readLoop(ctx, cam, ticker)
	go s.deliverLoop()

	s.log.WithFields(logrus.Fields{"device": dev.String(), "fps": fps}).Info("capture started")
	return nil
}

// Stop halts capture and closes the device. It waits for an in-flight
// handler call to return. Calling Stop on a stopped source is a no-op.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.stopLocked()
	s.log.Info("capture stopped")
}

// Device returns the device in use, or the last one used.
func (s *Source) Device() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return Device{}, false
	}
	return *s.device, true
}

// IsRunning reports whether the source is started.
func (s *Source) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stats returns the lifetime counters.
func (s *Source) Stats() Stats {
	return Stats{
		Captured:   s.captured.Load(),
		Delivered:  s.delivered.Load(),
		Dropped:    s.dropped.Load(),
		ReadErrors: s.readErrors.Load(),
	}
}

func (s *Source) resolve(sel *Device) Device {
	switch {
	case sel != nil:
		dev := *sel
		if dev.Name == "" {
			dev.Name = deviceName(dev.ID)
		}
		return dev
	case s.device != nil:
		return *s.device
	default:
		return s.config.DefaultDevice
	}
}

func (s *Source) stopLocked() {
	s.cancel()

	s.inboxMu.Lock()
	s.inboxClosed = true
	pending := s.inbox
	s.inbox = nil
	s.inboxCond.Broadcast()
	s.inboxMu.Unlock()

	pending.Close()

	s.wg.Wait()

	if err := s.camera.Close(); err != nil {
		s.log.WithError(err).Warn("error closing camera")
	}
	s.camera = nil
	s.running = false
}

// readLoop pulls frames from the camera and publishes them to the mailbox.
func (s *Source) readLoop(ctx context.Context, cam Camera, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		mat, err := cam.ReadFrame()
		if err != nil {
			s.readErrors.Add(1)
			s.log.WithError(err).Debug("error reading frame")
			continue
		}

		frame := NewFrame(*mat, s.seq.Add(1), s.clock.Now())
		s.captured.Add(1)
		s.publish(frame)
	}
}

// publish puts frame in the mailbox, replacing an unconsumed one.
func (s *Source) publish(frame *Frame) {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	if s.inboxClosed {
		frame.Close()
		return
	}

	if s.inbox != nil {
		s.inbox.Close()
		s.dropped.Add(1)
	}
	s.inbox = frame
	s.inboxCond.Signal()
}

// deliverLoop hands mailbox frames to the handler one at a time.
func (s *Source) deliverLoop() {
	defer s.wg.Done()

	for {
		s.inboxMu.Lock()
		for s.inbox == nil && !s.inboxClosed {
			s.inboxCond.Wait()
		}
		if s.inboxClosed {
			s.inboxMu.Unlock()
			return
		}
		frame := s.inbox
		s.inbox = nil
		s.inboxMu.Unlock()

		s.handlerMu.RLock()
		handler := s.handler
		s.handlerMu.RUnlock()

		if handler == nil {
			frame.Close()
			continue
		}

		s.delivered.Add(1)
		handler(frame)
	}
}
