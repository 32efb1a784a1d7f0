package display

import (
	"strings"
	"testing"
)

func TestExpandTemplate(t *testing.T) {
	vars := TemplateVars{
		IP:         "192.168.1.40",
		Hostname:   "lobby-pi",
		Source:     "CAM (Channel 1)",
		Width:      1920,
		Height:     1080,
		Resolution: "1920x1080",
		Time:       "14:30:00",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"all tokens", "<hostname> (<ip>) <resolution> @ <time>", "lobby-pi (192.168.1.40) 1920x1080 @ 14:30:00"},
		{"source and size", "Waiting for <source> at <width>x<height>", "Waiting for CAM (Channel 1) at 1920x1080"},
		{"no tokens", "No NDI Source", "No NDI Source"},
		{"unknown token kept", "see <docs>", "see <docs>"},
		{"repeated token", "<ip> <ip>", "192.168.1.40 192.168.1.40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandTemplate(tt.in, vars); got != tt.want {
				t.Errorf("ExpandTemplate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandTemplateEmptySource(t *testing.T) {
	got := ExpandTemplate("source: <source>.", TemplateVars{})
	if got != "source: ." {
		t.Errorf("empty source expansion = %q", got)
	}
}

func TestTemplateVarsLive(t *testing.T) {
	vars := templateVars("CAM", 1280, 720)
	if vars.Resolution != "1280x720" {
		t.Errorf("Resolution = %q", vars.Resolution)
	}
	if vars.Source != "CAM" {
		t.Errorf("Source = %q", vars.Source)
	}
	if !strings.Contains(vars.Time, ":") {
		t.Errorf("Time = %q, want HH:MM:SS", vars.Time)
	}
}
