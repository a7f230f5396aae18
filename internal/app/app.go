// Package app wires capture, segmentation and compositing into the live
// presenter pipeline and holds the state shared with the user interface.
package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/composite"
	"github.com/ayusman/presenter/internal/segment"
	"github.com/ayusman/presenter/internal/shape"
	"github.com/ayusman/presenter/internal/store"
)

// DefaultSaveDelay is how long preference changes settle before they are written.
const DefaultSaveDelay = 500 * time.Millisecond

// Config holds configuration options for the application.
type Config struct {
	// Source delivers camera frames. Required.
	Source *capture.Source
	// Engine segments frames. Nil leaves background removal without effect.
	Engine     segment.Engine
	Compositor composite.Compositor
	// Store persists preferences and sessions. Optional.
	Store *store.Store
	// Defaults are used for preferences the store does not have.
	Defaults  store.Preferences
	SaveDelay time.Duration
	// Discover lists available cameras. Defaults to probing with capture.Discover.
	Discover func() []capture.Device
	Logger   logrus.FieldLogger
}

// App is the main application that orchestrates the presenter pipeline.
type App struct {
	config     Config
	source     *capture.Source
	engine     segment.Engine
	compositor composite.Compositor
	state      *State
	log        logrus.FieldLogger

	mu       sync.Mutex // serializes Start/Stop/SelectCamera/Close
	selected capture.Device
	session  *store.Session
	baseline capture.Stats
	closed   bool

	cameraID atomic.Int64

	prefsMu     sync.Mutex
	saved       store.Preferences
	wanted      store.Preferences
	prefsClosed bool
	debounced   func(func())
	stopWatch   func()
	watchDone   chan struct{}

	stats pipelineStats
}

// New creates a new App instance with the given configuration. Stored
// preferences are applied to the state before New returns.
func New(config Config) *App {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.SaveDelay <= 0 {
		config.SaveDelay = DefaultSaveDelay
	}
	if config.Discover == nil {
		config.Discover = func() []capture.Device { return capture.Discover(capture.MaxProbeDevices) }
	}
	if config.Defaults.Width == 0 {
		config.Defaults.Width = shape.DefaultWidth
	}

	a := &App{
		config:     config,
		source:     config.Source,
		engine:     config.Engine,
		compositor: config.Compositor,
		state:      NewState(),
		log:        config.Logger.WithField("component", "app"),
		debounced:  debounce.New(config.SaveDelay),
	}

	prefs := config.Defaults
	if config.Store != nil {
		loaded, err := config.Store.LoadPreferences(config.Defaults)
		if err != nil {
			a.log.WithError(err).Warn("failed to load preferences, using defaults")
		} else {
			prefs = loaded
		}
	}
	a.applyPreferences(prefs)
	a.saved = prefs
	a.wanted = prefs

	if a.engine == nil {
		a.log.Warn("no segmentation engine, background removal is unavailable")
	}

	a.source.OnFrame(a.handleFrame)

	if config.Store != nil {
		_, events, cancel := a.state.Subscribe()
		quit := make(chan struct{})
		a.stopWatch = func() {
			cancel()
			close(quit)
		}
		a.watchDone = make(chan struct{})
		go a.watchPreferences(events, quit)
	}

	return a
}

// State returns the shared pipeline state.
func (a *App) State() *State {
	return a.state
}

// Start begins capturing from sel, or from the selected camera if sel is
// nil. Starting while running on another camera switches to it.
func (a *App) Start(sel *capture.Device) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startLocked(sel)
}

func (a *App) startLocked(sel *capture.Device) error {
	dev := a.selected
	if sel != nil {
		dev = *sel
	}

	if a.source.IsRunning() {
		if cur, ok := a.source.Device(); ok && cur.ID == dev.ID {
			return nil
		}
		a.stopLocked()
	}

	a.state.Activate()
	if err := a.source.Start(&dev); err != nil {
		a.state.Invalidate()
		return err
	}

	if cur, ok := a.source.Device(); ok {
		dev = cur
	}
	a.setSelected(dev)
	a.beginSession(dev)

	a.log.WithField("device", dev.String()).Info("presenter pipeline started")
	return nil
}

// Stop halts capture. The state is invalidated before the source stops so
// that frames still being processed cannot publish.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *App) stopLocked() {
	if !a.source.IsRunning() {
		return
	}

	a.state.Invalidate()
	a.source.Stop()
	a.finishSession()

	a.log.Info("presenter pipeline stopped")
}

// IsRunning reports whether capture is running.
func (a *App) IsRunning() bool {
	return a.source.IsRunning()
}

// SelectCamera makes dev the camera to use. If capture is running it
// switches to dev immediately.
func (a *App) SelectCamera(dev capture.Device) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source.IsRunning() {
		if err := a.startLocked(&dev); err != nil {
			return err
		}
	} else {
		a.setSelected(dev)
	}

	a.preferencesChanged()
	return nil
}

// SelectedCamera returns the camera used by the next Start.
func (a *App) SelectedCamera() capture.Device {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// Cameras lists available cameras. The camera in use is always included,
// since a device held open may not show up when probed.
func (a *App) Cameras() []capture.Device {
	devices := a.config.Discover()

	cur, ok := a.source.Device()
	if !ok || !a.source.IsRunning() {
		return devices
	}
	for _, d := range devices {
		if d.ID == cur.ID {
			return devices
		}
	}

	devices = append(devices, cur)
	for i := len(devices) - 1; i > 0 && devices[i].ID < devices[i-1].ID; i-- {
		devices[i], devices[i-1] = devices[i-1], devices[i]
	}
	return devices
}

// Sessions returns recent capture sessions, newest first.
func (a *App) Sessions(limit int) ([]*store.Session, error) {
	if a.config.Store == nil {
		return nil, nil
	}
	return a.config.Store.Sessions().List(limit)
}

// Close stops capture, writes pending preferences and releases the engine.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.stopLocked()
	a.closed = true

	var err error
	if a.stopWatch != nil {
		a.stopWatch()
		<-a.watchDone
		err = multierr.Append(err, a.flushPreferences())
	}
	if a.engine != nil {
		err = multierr.Append(err, a.engine.Close())
	}
	return err
}

func (a *App) setSelected(dev capture.Device) {
	a.selected = dev
	a.cameraID.Store(int64(dev.ID))
}
