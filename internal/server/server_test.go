package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/store"
)

// fakeApp is a Controller over a real State.
type fakeApp struct {
	state    *app.State
	devices  []capture.Device
	selected capture.Device
	store    *store.Store
	stats    app.Stats
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		state:   app.NewState(),
		devices: []capture.Device{{ID: 0, Name: "Camera 0"}, {ID: 1, Name: "Camera 1"}},
	}
}

func (f *fakeApp) State() *app.State              { return f.state }
func (f *fakeApp) Stats() app.Stats               { return f.stats }
func (f *fakeApp) IsRunning() bool                { return f.state.Snapshot().Running }
func (f *fakeApp) Cameras() []capture.Device      { return f.devices }
func (f *fakeApp) SelectedCamera() capture.Device { return f.selected }
func (f *fakeApp) SelectCamera(d capture.Device) error {
	f.selected = d
	return nil
}

func (f *fakeApp) Sessions(limit int) ([]*store.Session, error) {
	if f.store == nil {
		return nil, nil
	}
	return f.store.Sessions().List(limit)
}

func TestServer_Health(t *testing.T) {
	mock := clock.NewMock()
	s := New(Config{Clock: mock})
	mock.Add(90 * time.Second)

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if response["uptime"] != "1m30s" {
			t.Errorf("expected uptime 1m30s, got %v", response["uptime"])
		}

		if _, exists := response["stats"]; exists {
			t.Error("expected no stats without an app")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_HealthWithApp(t *testing.T) {
	fake := newFakeApp()
	fake.stats = app.Stats{Capture: capture.Stats{Captured: 12, Delivered: 10, Dropped: 2}, Published: 4}
	fake.state.Activate()

	s := New(Config{App: fake})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var response healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !response.Running {
		t.Error("expected running to be true")
	}
	if response.Stats == nil || response.Stats.Capture.Dropped != 2 || response.Stats.Published != 4 {
		t.Errorf("unexpected stats: %+v", response.Stats)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_RoutesNeedApp(t *testing.T) {
	without := New(Config{})
	with := New(Config{App: newFakeApp()})

	for _, path := range []string{"/api/state", "/api/cameras", "/api/sessions", "/api/hit?x=1&y=1"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)

		rec := httptest.NewRecorder()
		without.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s without app: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}

		rec = httptest.NewRecorder()
		with.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s with app: expected status %d, got %d", path, http.StatusOK, rec.Code)
		}
	}
}

func TestServer_StaticFiles(t *testing.T) {
	// Create a temporary directory with a static file
	tmpDir, err := os.MkdirTemp("", "presenter-server-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testContent := "<html><body>Presenter</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
		if s.config.CornerRadius <= 0 {
			t.Error("expected a default corner radius")
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}
