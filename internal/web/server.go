package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/smithevan-qanc/ndi-monitor/internal/config"
	"github.com/smithevan-qanc/ndi-monitor/internal/monitor"
	"github.com/smithevan-qanc/ndi-monitor/internal/source"
)

const discoverTimeout = 2 * time.Second

// Server ties the HTTP API to the monitor state, the shared config store
// and the source finder.
type Server struct {
	state  *monitor.State
	store  *config.Store
	finder source.Finder
	ring   *RingHandler
	hub    *Hub
	stream *streamer
}

// NewServer assembles the control surface. The returned server's Hub must
// be run for websocket pushes to flow.
func NewServer(state *monitor.State, store *config.Store, finder source.Finder, ring *RingHandler) *Server {
	s := &Server{
		state:  state,
		store:  store,
		finder: finder,
		ring:   ring,
		stream: &streamer{state: state},
	}
	s.hub = NewHub(
		func() any { return s.store.Load() },
		func() any { return s.ring.Entries() },
	)
	ring.SetNotify(s.hub.NotifyLogs)
	return s
}

// Hub returns the websocket hub for the caller to run.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.HandleFunc("POST /api/select", s.handleSelect)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handlePostSettings)
	mux.HandleFunc("POST /api/message", s.handleMessage)
	mux.HandleFunc("POST /api/blank", s.handleBlank)
	mux.HandleFunc("POST /api/fps", s.handleFPS)
	mux.HandleFunc("POST /api/device_name", s.handleDeviceName)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.Handle("GET /ws", s.hub)
	mux.Handle("GET /mjpeg", s.stream)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	names, err := s.finder.ListSources(discoverTimeout)
	if err != nil {
		slog.Warn("web: source discovery failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	active, pending := s.state.Selected()
	writeJSON(w, http.StatusOK, map[string]any{
		"sources":  names,
		"selected": active,
		"pending":  pending,
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Persist before connecting so the choice survives a crash mid-connect.
	if err := s.store.Merge(func(d *config.Document) { d.SelectedSource = req.Source }); err != nil {
		slog.Error("web: failed to persist source selection", "source", req.Source, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.hub.NotifyConfig()

	if err := s.state.SelectSource(req.Source); err != nil {
		// The selection stays pending; the reconcile loop keeps retrying.
		slog.Warn("web: source connect failed, selection pending",
			"source", req.Source, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"source":  req.Source,
			"pending": true,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": req.Source, "pending": false})
}

type settingsPayload struct {
	JPEGQuality  *int    `json:"jpeg_quality,omitempty"`
	OutputWidth  *int    `json:"output_width,omitempty"`
	OutputHeight *int    `json:"output_height,omitempty"`
	Blank        *bool   `json:"blank,omitempty"`
	Message      *string `json:"message,omitempty"`
	Subtext      *string `json:"subtext,omitempty"`
	ShowFPS      *bool   `json:"show_fps,omitempty"`
	DeviceName   *string `json:"device_name,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	_, settings := s.state.Snapshot()
	writeJSON(w, http.StatusOK, settingsView(settings))
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	settings, err := s.state.UpdateSettings(monitor.Update{
		JPEGQuality:  req.JPEGQuality,
		OutputWidth:  req.OutputWidth,
		OutputHeight: req.OutputHeight,
		Blank:        req.Blank,
		Message:      req.Message,
		Subtext:      req.Subtext,
		ShowFPS:      req.ShowFPS,
		DeviceName:   req.DeviceName,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.persistSettings(req)
	writeJSON(w, http.StatusOK, settingsView(settings))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message *string `json:"message"`
		Subtext *string `json:"subtext"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settings, err := s.state.UpdateSettings(monitor.Update{Message: req.Message, Subtext: req.Subtext})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.persistSettings(settingsPayload{Message: req.Message, Subtext: req.Subtext})
	writeJSON(w, http.StatusOK, settingsView(settings))
}

func (s *Server) handleBlank(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blank *bool `json:"blank"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Blank == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing blank field"))
		return
	}
	settings, err := s.state.UpdateSettings(monitor.Update{Blank: req.Blank})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.persistSettings(settingsPayload{Blank: req.Blank})
	writeJSON(w, http.StatusOK, settingsView(settings))
}

func (s *Server) handleFPS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShowFPS *bool `json:"show_fps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShowFPS == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing show_fps field"))
		return
	}
	settings, err := s.state.UpdateSettings(monitor.Update{ShowFPS: req.ShowFPS})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.persistSettings(settingsPayload{ShowFPS: req.ShowFPS})
	writeJSON(w, http.StatusOK, settingsView(settings))
}

func (s *Server) handleDeviceName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceName *string `json:"device_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceName == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing device_name field"))
		return
	}
	settings, err := s.state.UpdateSettings(monitor.Update{DeviceName: req.DeviceName})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.persistSettings(settingsPayload{DeviceName: req.DeviceName})
	writeJSON(w, http.StatusOK, settingsView(settings))
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Load())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.ring.Entries()})
}

// persistSettings mirrors the shared fields of a settings change into the
// config document so the display process picks them up.
func (s *Server) persistSettings(req settingsPayload) {
	if req.Blank == nil && req.Message == nil && req.Subtext == nil &&
		req.ShowFPS == nil && req.DeviceName == nil {
		return
	}
	err := s.store.Merge(func(d *config.Document) {
		if req.Blank != nil {
			d.HDMIBlank = *req.Blank
		}
		if req.Message != nil && *req.Message != "" {
			d.NoConnectionMessage = *req.Message
		}
		if req.Subtext != nil {
			d.NoConnectionSubtext = *req.Subtext
		}
		if req.ShowFPS != nil {
			d.ShowFPS = *req.ShowFPS
		}
		if req.DeviceName != nil {
			d.DeviceName = *req.DeviceName
		}
	})
	if err != nil {
		slog.Error("web: failed to persist settings", "error", err)
		return
	}
	s.hub.NotifyConfig()
}

func settingsView(s monitor.Settings) map[string]any {
	return map[string]any{
		"jpeg_quality":  s.JPEGQuality,
		"output_width":  s.OutputWidth,
		"output_height": s.OutputHeight,
		"blank":         s.Blank,
		"message":       s.Message,
		"subtext":       s.Subtext,
		"show_fps":      s.ShowFPS,
		"device_name":   s.DeviceName,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
