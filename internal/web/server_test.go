package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/smithevan-qanc/ndi-monitor/internal/config"
	"github.com/smithevan-qanc/ndi-monitor/internal/monitor"
	"github.com/smithevan-qanc/ndi-monitor/internal/source"
)

func newTestServer(t *testing.T) (*Server, *monitor.State, *config.Store) {
	t.Helper()
	store := config.NewStore(filepath.Join(t.TempDir(), "config.json"))
	state := monitor.NewState(source.ConnectSynthetic)
	t.Cleanup(state.Close)
	ring := NewRingHandler(slog.NewTextHandler(io.Discard, nil), 10)
	return NewServer(state, store, source.SyntheticFinder{}, ring), state, store
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, h http.Handler, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return rec.Code
}

func TestSourcesEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	var resp struct {
		Sources  []string `json:"sources"`
		Selected string   `json:"selected"`
	}
	if code := getJSON(t, h, "/api/sources", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Sources) == 0 {
		t.Error("no sources discovered")
	}
	if resp.Selected != "" {
		t.Errorf("selected = %q before any selection", resp.Selected)
	}
}

func TestSelectPersistsBeforeConnecting(t *testing.T) {
	srv, _, store := newTestServer(t)
	h := srv.Handler()

	rec := postJSON(t, h, "/api/select", map[string]string{"source": "No Such Source"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Pending bool `json:"pending"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Pending {
		t.Error("unknown source should report pending")
	}
	if doc := store.Load(); doc.SelectedSource != "No Such Source" {
		t.Errorf("selection not persisted, got %q", doc.SelectedSource)
	}
}

func TestSelectConnects(t *testing.T) {
	srv, state, _ := newTestServer(t)
	h := srv.Handler()

	rec := postJSON(t, h, "/api/select", map[string]string{"source": "Camera 1 (Synthetic)"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if active, _ := state.Selected(); active != "Camera 1 (Synthetic)" {
		t.Errorf("active source = %q", active)
	}
}

func TestSettingsValidation(t *testing.T) {
	srv, state, _ := newTestServer(t)
	h := srv.Handler()

	t.Run("quality clamps", func(t *testing.T) {
		rec := postJSON(t, h, "/api/settings", map[string]int{"jpeg_quality": 5})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if _, s := state.Snapshot(); s.JPEGQuality != monitor.MinJPEGQuality {
			t.Errorf("quality = %d, want clamp to %d", s.JPEGQuality, monitor.MinJPEGQuality)
		}
	})

	t.Run("half output size rejected", func(t *testing.T) {
		rec := postJSON(t, h, "/api/settings", map[string]int{"output_width": 1280})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("output size clamps", func(t *testing.T) {
		rec := postJSON(t, h, "/api/settings", map[string]int{"output_width": 8000, "output_height": 8000})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if _, s := state.Snapshot(); s.OutputWidth != monitor.MaxOutputW || s.OutputHeight != monitor.MaxOutputH {
			t.Errorf("size = %dx%d", s.OutputWidth, s.OutputHeight)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/settings", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestBlankMirroredToSharedConfig(t *testing.T) {
	srv, _, store := newTestServer(t)
	h := srv.Handler()

	rec := postJSON(t, h, "/api/blank", map[string]bool{"blank": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if doc := store.Load(); !doc.HDMIBlank {
		t.Error("hdmi_blank not mirrored into shared config")
	}
}

func TestEmptyMessageResetsToDefault(t *testing.T) {
	srv, state, _ := newTestServer(t)
	h := srv.Handler()

	msg, sub := "", "still here"
	rec := postJSON(t, h, "/api/message", map[string]*string{"message": &msg, "subtext": &sub})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	_, s := state.Snapshot()
	if s.Message != monitor.DefaultSettings().Message {
		t.Errorf("message = %q, want default", s.Message)
	}
	if s.Subtext != "still here" {
		t.Errorf("subtext = %q", s.Subtext)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	slog.New(srv.ring).Info("startup complete")
	h := srv.Handler()

	var resp struct {
		Logs []LogEntry `json:"logs"`
	}
	if code := getJSON(t, h, "/api/logs", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(resp.Logs) != 1 || resp.Logs[0].Message != "startup complete" {
		t.Errorf("logs = %+v", resp.Logs)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if code := getJSON(t, srv.Handler(), "/health", nil); code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
}
