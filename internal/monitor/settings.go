package monitor

import (
	"errors"
	"fmt"
)

// Clamping bounds for validated settings.
const (
	MinJPEGQuality = 20
	MaxJPEGQuality = 95
	MinOutputW     = 160
	MinOutputH     = 120
	MaxOutputW     = 3840
	MaxOutputH     = 2160
)

// ErrOutputSizePair is returned when exactly one of the output dimensions is
// zero: they must both be set, or both zero meaning "native".
var ErrOutputSizePair = errors.New("monitor: outputWidth and outputHeight must both be set or both zero")

// Settings is the scalar pipeline configuration read by both sinks on every
// tick. Mutations go through State.UpdateSettings, which validates and
// clamps before publishing.
type Settings struct {
	JPEGQuality  int
	OutputWidth  int
	OutputHeight int
	Blank        bool
	Message      string
	Subtext      string
	ShowFPS      bool
	DeviceName   string
}

// DefaultSettings mirrors the values a freshly installed monitor starts with.
func DefaultSettings() Settings {
	return Settings{
		JPEGQuality: 80,
		Message:     "No NDI Source",
		Subtext:     "Configure via web interface",
		ShowFPS:     true,
	}
}

// Update is a partial settings mutation; nil fields are left untouched.
type Update struct {
	JPEGQuality  *int
	OutputWidth  *int
	OutputHeight *int
	Blank        *bool
	Message      *string
	Subtext      *string
	ShowFPS      *bool
	DeviceName   *string
}

// apply validates u against s and returns the merged result.
func (s Settings) apply(u Update) (Settings, error) {
	out := s

	if u.JPEGQuality != nil {
		q := *u.JPEGQuality
		if q < MinJPEGQuality {
			q = MinJPEGQuality
		}
		if q > MaxJPEGQuality {
			q = MaxJPEGQuality
		}
		out.JPEGQuality = q
	}

	if u.OutputWidth != nil || u.OutputHeight != nil {
		w, h := out.OutputWidth, out.OutputHeight
		if u.OutputWidth != nil {
			w = *u.OutputWidth
		}
		if u.OutputHeight != nil {
			h = *u.OutputHeight
		}
		if w < 0 || h < 0 {
			return s, fmt.Errorf("monitor: negative output size %dx%d", w, h)
		}
		if (w == 0) != (h == 0) {
			return s, ErrOutputSizePair
		}
		if w != 0 {
			w = clampInt(w, MinOutputW, MaxOutputW)
			h = clampInt(h, MinOutputH, MaxOutputH)
		}
		out.OutputWidth, out.OutputHeight = w, h
	}

	if u.Blank != nil {
		out.Blank = *u.Blank
	}
	if u.Message != nil {
		// An empty message falls back to the default headline; the
		// subtext may be cleared outright.
		if *u.Message == "" {
			out.Message = DefaultSettings().Message
		} else {
			out.Message = *u.Message
		}
	}
	if u.Subtext != nil {
		out.Subtext = *u.Subtext
	}
	if u.ShowFPS != nil {
		out.ShowFPS = *u.ShowFPS
	}
	if u.DeviceName != nil {
		out.DeviceName = *u.DeviceName
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
