// Package config handles the two configuration surfaces of the monitor: the
// service YAML read once at startup, and the shared JSON document that the
// web process and the display process exchange at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Document is the shared runtime configuration, persisted as a JSON
// key/value file. Both processes treat a missing or corrupt file as the
// zero document with defaults applied.
type Document struct {
	SelectedSource      string `json:"selected_source"`
	HDMIBlank           bool   `json:"hdmi_blank"`
	NoConnectionMessage string `json:"no_connection_message"`
	NoConnectionSubtext string `json:"no_connection_subtext"`
	ShowFPS             bool   `json:"show_fps"`
	DeviceName          string `json:"device_name"`
}

// DefaultDocument returns the values assumed when the file is absent.
func DefaultDocument() Document {
	return Document{
		NoConnectionMessage: "No NDI Source",
		NoConnectionSubtext: "Configure via web interface",
		ShowFPS:             true,
	}
}

// Store reads and writes the shared document. Writes are atomic
// (temp-file + fsync + rename) so a concurrent reader never observes a
// partial file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the file at path. The file does not
// need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the current document. I/O or decode failures are logged and
// reported as the default document; configuration reads are never fatal.
func (s *Store) Load() Document {
	doc := DefaultDocument()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("config: failed to read shared config", "path", s.path, "error", err)
		}
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("config: corrupt shared config, using defaults", "path", s.path, "error", err)
		return DefaultDocument()
	}
	return doc
}

// Merge applies fn to the current document under the store lock and writes
// the result back atomically, preserving fields fn does not touch.
func (s *Store) Merge(fn func(*Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load()
	fn(&doc)
	return s.write(doc)
}

func (s *Store) write(doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ndi-monitor-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("config: replace %s: %w", s.path, err)
	}
	return nil
}
