package api

import (
	"net/http"

	"github.com/spf13/cast"

	"github.com/ayusman/presenter/internal/store"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 200
)

// SessionLister returns recent capture sessions, newest first.
type SessionLister interface {
	Sessions(limit int) ([]*store.Session, error)
}

// SessionHandler handles HTTP requests for capture session history.
type SessionHandler struct {
	sessions SessionLister
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s SessionLister) *SessionHandler {
	return &SessionHandler{sessions: s}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

// ServeHTTP handles GET /api/sessions?limit=N.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSessionLimit)
	}

	sessions, err := h.sessions.Sessions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}
