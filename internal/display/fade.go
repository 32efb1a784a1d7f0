package display

import "time"

// DefaultFadeDuration is the time a full blank or unblank transition takes.
const DefaultFadeDuration = 400 * time.Millisecond

// Fade tracks the black overlay alpha for the blank transition. Alpha moves
// linearly toward 255 while blanking and toward 0 while clearing, snapping
// at the extremes so the overlay never hovers at an almost-final value.
type Fade struct {
	duration time.Duration
	alpha    float64

	// latches for the one-shot edge events
	reportedBlank bool
	reportedClear bool
}

// NewFade returns a fade with the given transition duration. Zero or
// negative durations fall back to DefaultFadeDuration.
func NewFade(duration time.Duration) *Fade {
	if duration <= 0 {
		duration = DefaultFadeDuration
	}
	return &Fade{duration: duration, reportedClear: true}
}

// Alpha returns the current overlay alpha in [0, 255].
func (f *Fade) Alpha() uint8 { return uint8(f.alpha) }

// FullyBlanked reports whether the overlay is completely opaque.
func (f *Fade) FullyBlanked() bool { return f.alpha >= 255 }

// Advance moves the fade by dt toward the target implied by blank. It
// returns blanked or cleared true exactly once per arrival at the
// corresponding extreme; reversing direction mid-fade re-arms both edges.
func (f *Fade) Advance(blank bool, dt time.Duration) (blanked, cleared bool) {
	step := 255 * dt.Seconds() / f.duration.Seconds()
	if blank {
		f.reportedClear = false
		f.alpha += step
		if f.alpha >= 254 {
			f.alpha = 255
		}
		if f.alpha >= 255 && !f.reportedBlank {
			f.reportedBlank = true
			return true, false
		}
		return false, false
	}

	f.reportedBlank = false
	f.alpha -= step
	if f.alpha <= 1 {
		f.alpha = 0
	}
	if f.alpha <= 0 && !f.reportedClear {
		f.reportedClear = true
		return false, true
	}
	return false, false
}
