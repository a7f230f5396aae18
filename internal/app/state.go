package app

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/presenter/internal/composite"
	"github.com/ayusman/presenter/internal/shape"
)

// EventKind says what changed in the state.
type EventKind string

const (
	// EventSettings is sent when a user-facing setting changes.
	EventSettings EventKind = "settings"
	// EventFrame is sent when a new live or composited frame is available.
	EventFrame EventKind = "frame"
	// EventRunning is sent when capture starts or stops.
	EventRunning EventKind = "running"
)

// Event notifies a subscriber that the state changed. Subscribers read the
// current values with Snapshot; events are coalesced, so a slow subscriber
// sees the latest change rather than every change.
type Event struct {
	Kind    EventKind `json:"kind"`
	Version uint64    `json:"version"`
}

// LiveFrame is a Go-memory copy of the latest raw camera frame.
type LiveFrame struct {
	Image     image.Image
	Seq       uint64
	Timestamp time.Time
}

// Snapshot is a consistent copy of the state.
type Snapshot struct {
	Version           uint64           `json:"version"`
	Running           bool             `json:"running"`
	Mirrored          bool             `json:"mirrored"`
	BackgroundRemoval bool             `json:"background_removal"`
	Shape             shape.Shape      `json:"shape"`
	Width             float64          `json:"width"`
	Size              shape.Size       `json:"size"`
	Composited        *composite.Frame `json:"-"`
	Live              *LiveFrame       `json:"-"`
}

// Ticket ties a composite to the processing session it was started in.
type Ticket struct {
	generation uint64
}

// State is the shared state between the frame delivery goroutine and the
// interactive side (tray, window, control API).
//
// One mutex guards all fields. Composited is nil whenever background removal
// is off. Turning background removal off, or invalidating on stop, starts a
// new generation; composites begun in an older generation are rejected.
type State struct {
	mu                sync.Mutex
	version           uint64
	generation        uint64
	running           bool
	mirrored          bool
	backgroundRemoval bool
	shape             shape.Shape
	width             float64
	composited        *composite.Frame
	live              *LiveFrame

	subsMu sync.Mutex
	subs   map[string]chan Event
}

// NewState returns a stopped state with a circle of the default width.
func NewState() *State {
	return &State{
		shape: shape.Circle,
		width: shape.DefaultWidth,
		subs:  make(map[string]chan Event),
	}
}

// Snapshot returns a consistent copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	return Snapshot{
		Version:           s.version,
		Running:           s.running,
		Mirrored:          s.mirrored,
		BackgroundRemoval: s.backgroundRemoval,
		Shape:             s.shape,
		Width:             s.width,
		Size:              shape.DerivedSize(s.width, s.shape),
		Composited:        s.composited,
		Live:              s.live,
	}
}

func (s *State) Mirrored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirrored
}

func (s *State) BackgroundRemoval() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backgroundRemoval
}

func (s *State) Shape() shape.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shape
}

func (s *State) Width() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// Composited returns the latest composited frame, or nil.
func (s *State) Composited() *composite.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composited
}

// Live returns the latest raw frame, or nil.
func (s *State) Live() *LiveFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// SetMirrored sets whether the presentation is mirrored.
func (s *State) SetMirrored(on bool) {
	s.update(EventSettings, func() bool {
		if s.mirrored == on {
			return false
		}
		s.mirrored = on
		return true
	})
}

// SetBackgroundRemoval turns background removal on or off. Turning it off
// drops the current composite at once; composites still in flight are
// rejected when they are published.
func (s *State) SetBackgroundRemoval(on bool) {
	s.update(EventSettings, func() bool {
		if s.backgroundRemoval == on {
			return false
		}
		s.backgroundRemoval = on
		if !on {
			s.composited = nil
			s.generation++
		}
		return true
	})
}

// ToggleBackgroundRemoval flips background removal and returns the new value.
func (s *State) ToggleBackgroundRemoval() bool {
	var now bool
	s.update(EventSettings, func() bool {
		s.backgroundRemoval = !s.backgroundRemoval
		if !s.backgroundRemoval {
			s.composited = nil
			s.generation++
		}
		now = s.backgroundRemoval
		return true
	})
	return now
}

// ToggleMirrored flips mirroring and returns the new value.
func (s *State) ToggleMirrored() bool {
	var now bool
	s.update(EventSettings, func() bool {
		s.mirrored = !s.mirrored
		now = s.mirrored
		return true
	})
	return now
}

// SetShape sets the overlay shape.
func (s *State) SetShape(sh shape.Shape) {
	s.update(EventSettings, func() bool {
		if s.shape == sh {
			return false
		}
		s.shape = sh
		return true
	})
}

// SetWidth sets the overlay width, clamped to the allowed range.
func (s *State) SetWidth(width float64) {
	width = shape.ClampWidth(width)
	s.update(EventSettings, func() bool {
		if s.width == width {
			return false
		}
		s.width = width
		return true
	})
}

// Activate marks capture as running and starts a new generation.
func (s *State) Activate() {
	s.update(EventRunning, func() bool {
		s.running = true
		s.generation++
		return true
	})
}

// Invalidate marks capture as stopped, drops both frames and starts a new
// generation so that anything still in flight is rejected.
func (s *State) Invalidate() {
	s.update(EventRunning, func() bool {
		s.running = false
		s.generation++
		s.composited = nil
		s.live = nil
		return true
	})
}

// Begin starts processing a frame for background removal. It returns false
// when capture is not running or background removal is off.
func (s *State) Begin() (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket{generation: s.generation}, s.running && s.backgroundRemoval
}

// PublishComposite stores f as the current composite. It is rejected, and
// false returned, if the generation of t has ended, background removal is
// off, or f is older than the current composite.
func (s *State) PublishComposite(t Ticket, f *composite.Frame) bool {
	if f == nil {
		return false
	}

	accepted := false
	s.update(EventFrame, func() bool {
		if t.generation != s.generation || !s.running || !s.backgroundRemoval {
			return false
		}
		if s.composited != nil && f.Timestamp.Before(s.composited.Timestamp) {
			return false
		}
		s.composited = f
		accepted = true
		return true
	})
	return accepted
}

// PublishLive stores f as the latest raw frame. Frames older than the
// current one and frames arriving while capture is stopped are dropped.
func (s *State) PublishLive(f *LiveFrame) bool {
	if f == nil {
		return false
	}

	accepted := false
	s.update(EventFrame, func() bool {
		if !s.running {
			return false
		}
		if s.live != nil && f.Timestamp.Before(s.live.Timestamp) {
			return false
		}
		s.live = f
		accepted = true
		return true
	})
	return accepted
}

// Subscribe registers an observer. The channel holds at most one pending
// event; newer events replace an unread one. Call cancel to unsubscribe.
func (s *State) Subscribe() (id string, events <-chan Event, cancel func()) {
	ch := make(chan Event, 1)
	id = uuid.NewString()

	s.subsMu.Lock()
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
	return id, ch, cancel
}

// Subscribers returns the number of registered observers.
func (s *State) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

// update applies fn under the lock and, if it reports a change, notifies
// observers after the lock is released.
func (s *State) update(kind EventKind, fn func() bool) {
	s.mu.Lock()
	changed := fn()
	if changed {
		s.version++
	}
	version := s.version
	s.mu.Unlock()

	if changed {
		s.notify(Event{Kind: kind, Version: version})
	}
}

func (s *State) notify(ev Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Replace the unread event.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
