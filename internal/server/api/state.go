package api

import (
	"net/http"

	"github.com/golang/geo/r2"
	"github.com/spf13/cast"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/overlay"
	"github.com/ayusman/presenter/internal/shape"
)

// StateHandler handles reads and changes of the overlay settings.
type StateHandler struct {
	state *app.State
}

// NewStateHandler creates a new StateHandler for st.
func NewStateHandler(st *app.State) *StateHandler {
	return &StateHandler{state: st}
}

// updateStateRequest is a partial update; absent fields are left unchanged.
type updateStateRequest struct {
	Mirrored          *bool        `json:"mirrored"`
	BackgroundRemoval *bool        `json:"background_removal"`
	Shape             *shape.Shape `json:"shape"`
	Width             *float64     `json:"width"`
}

// ServeHTTP implements the http.Handler interface.
//
//	GET   /api/state   current settings
//	PATCH /api/state   change some settings
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.state.Snapshot())
	case http.MethodPatch:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *StateHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateStateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Width != nil && *req.Width <= 0 {
		writeError(w, http.StatusBadRequest, "Width must be positive")
		return
	}

	if req.Mirrored != nil {
		h.state.SetMirrored(*req.Mirrored)
	}
	if req.BackgroundRemoval != nil {
		h.state.SetBackgroundRemoval(*req.BackgroundRemoval)
	}
	if req.Shape != nil {
		h.state.SetShape(*req.Shape)
	}
	if req.Width != nil {
		h.state.SetWidth(*req.Width)
	}

	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// HitHandler answers whether a point lands on the visible overlay.
type HitHandler struct {
	state        *app.State
	cornerRadius float64
}

// NewHitHandler creates a new HitHandler.
func NewHitHandler(st *app.State, cornerRadius float64) *HitHandler {
	return &HitHandler{state: st, cornerRadius: cornerRadius}
}

type hitResponse struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Hit bool    `json:"hit"`
}

// ServeHTTP handles GET /api/hit?x=..&y=.. in overlay coordinates.
func (h *HitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	x, errX := cast.ToFloat64E(q.Get("x"))
	y, errY := cast.ToFloat64E(q.Get("y"))
	if errX != nil || errY != nil || q.Get("x") == "" || q.Get("y") == "" {
		writeError(w, http.StatusBadRequest, "x and y must be numbers")
		return
	}

	snap := h.state.Snapshot()
	p := r2.Point{X: x, Y: y}
	writeJSON(w, http.StatusOK, hitResponse{
		X:   x,
		Y:   y,
		Hit: overlay.HitTest(p, snap, h.cornerRadius),
	})
}
