// Package server provides the local HTTP control API for the presenter overlay.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/server/api"
	"github.com/ayusman/presenter/internal/shape"
)

// Controller is the part of the application the server drives.
type Controller interface {
	api.CameraController
	api.SessionLister
	State() *app.State
	Stats() app.Stats
	IsRunning() bool
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	// App is required for everything but health and static files.
	App          Controller
	CornerRadius float64
	Clock        clock.Clock
	Logger       logrus.FieldLogger
}

// Server represents the HTTP server for the presenter control API.
type Server struct {
	config Config
	mux    *http.ServeMux
	clock  clock.Clock
	start  time.Time
	log    logrus.FieldLogger
	events *EventsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.CornerRadius <= 0 {
		config.CornerRadius = shape.DefaultCornerRadius
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		clock:  config.Clock,
		start:  config.Clock.Now(),
		log:    config.Logger.WithField("component", "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		st := s.config.App.State()
		cameras := api.NewCameraHandler(s.config.App)

		s.mux.Handle("/api/state", api.NewStateHandler(st))
		s.mux.Handle("/api/hit", api.NewHitHandler(st, s.config.CornerRadius))
		s.mux.Handle("/api/cameras", cameras)
		s.mux.Handle("/api/cameras/", cameras)
		s.mux.Handle("/api/sessions", api.NewSessionHandler(s.config.App))

		s.events = NewEventsHandler(st, s.log)
		s.mux.Handle("/api/events", s.events)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string     `json:"status"`
	Uptime  string     `json:"uptime"`
	Running bool       `json:"running"`
	Stats   *app.Stats `json:"stats,omitempty"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status: "ok",
		Uptime: s.clock.Since(s.start).String(),
	}
	if s.config.App != nil {
		stats := s.config.App.Stats()
		response.Running = s.config.App.IsRunning()
		response.Stats = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("control API listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if s.events != nil {
		s.events.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
