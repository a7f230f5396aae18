package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/shape"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// stateMessage is pushed to clients whenever the settings change.
type stateMessage struct {
	Type  string       `json:"type"`
	State app.Snapshot `json:"state"`
}

// settings is the part of a snapshot clients are notified about. Frame
// updates change the version only and are not pushed.
type settings struct {
	Running           bool
	Mirrored          bool
	BackgroundRemoval bool
	Shape             shape.Shape
	Width             float64
}

func settingsOf(snap app.Snapshot) settings {
	return settings{
		Running:           snap.Running,
		Mirrored:          snap.Mirrored,
		BackgroundRemoval: snap.BackgroundRemoval,
		Shape:             snap.Shape,
		Width:             snap.Width,
	}
}

// EventsHandler pushes the overlay settings to WebSocket clients: once on
// connect, then on every change.
type EventsHandler struct {
	state   *app.State
	log     logrus.FieldLogger
	clients map[*websocket.Conn]bool
	closed  bool
	done    chan struct{}
	mu      sync.RWMutex
}

// NewEventsHandler creates a new EventsHandler for st.
func NewEventsHandler(st *app.State, log logrus.FieldLogger) *EventsHandler {
	return &EventsHandler{
		state:   st,
		log:     log,
		clients: make(map[*websocket.Conn]bool),
		done:    make(chan struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if !h.add(conn) {
		return
	}
	defer h.remove(conn)

	_, events, cancel := h.state.Subscribe()
	defer cancel()

	// Reading is only needed to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap := h.state.Snapshot()
	last := settingsOf(snap)
	if err := h.send(conn, snap); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case <-h.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		case <-events:
			snap := h.state.Snapshot()
			cur := settingsOf(snap)
			if cur == last {
				continue
			}
			last = cur
			if err := h.send(conn, snap); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}

func (h *EventsHandler) send(conn *websocket.Conn, snap app.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(stateMessage{Type: "state", State: snap})
}

func (h *EventsHandler) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = true
	return true
}

func (h *EventsHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients and refuses new ones.
func (h *EventsHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.done)
}
