package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/presenter/internal/capture"
)

// CameraController lists and selects capture devices.
type CameraController interface {
	Cameras() []capture.Device
	SelectedCamera() capture.Device
	SelectCamera(dev capture.Device) error
}

// CameraHandler handles HTTP requests for camera resources.
type CameraHandler struct {
	cameras CameraController
}

// NewCameraHandler creates a new CameraHandler.
func NewCameraHandler(c CameraController) *CameraHandler {
	return &CameraHandler{cameras: c}
}

type listCamerasResponse struct {
	Cameras  []capture.Device `json:"cameras"`
	Selected capture.Device   `json:"selected"`
}

type selectCameraRequest struct {
	ID *int `json:"id"`
}

// ServeHTTP implements the http.Handler interface.
//
//	GET  /api/cameras          available cameras and the selected one
//	POST /api/cameras/select   switch to another camera
func (h *CameraHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/cameras")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case path == "select" && r.Method == http.MethodPost:
		h.selectCamera(w, r)
	case path == "" || path == "select":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *CameraHandler) list(w http.ResponseWriter, r *http.Request) {
	cameras := h.cameras.Cameras()
	if cameras == nil {
		cameras = []capture.Device{}
	}

	writeJSON(w, http.StatusOK, listCamerasResponse{
		Cameras:  cameras,
		Selected: h.cameras.SelectedCamera(),
	})
}

func (h *CameraHandler) selectCamera(w http.ResponseWriter, r *http.Request) {
	var req selectCameraRequest
	if err := decodeJSON(r, &req); err != nil || req.ID == nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var dev capture.Device
	found := false
	for _, d := range h.cameras.Cameras() {
		if d.ID == *req.ID {
			dev, found = d, true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "Camera not found")
		return
	}

	if err := h.cameras.SelectCamera(dev); err != nil {
		var capErr *capture.CaptureError
		if errors.As(err, &capErr) {
			writeError(w, http.StatusConflict, capErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to select camera")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}
