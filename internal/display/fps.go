package display

import "time"

// fpsCounter computes the presented frame rate over a rolling one second
// window.
type fpsCounter struct {
	windowStart time.Time
	frames      int
	rate        float64
}

func newFPSCounter() *fpsCounter {
	return &fpsCounter{windowStart: time.Now()}
}

// Rate returns the rate measured over the last completed window.
func (c *fpsCounter) Rate() float64 { return c.rate }

// Tick records one presented frame and returns the current rate.
func (c *fpsCounter) Tick() float64 {
	c.frames++
	now := time.Now()
	if elapsed := now.Sub(c.windowStart); elapsed >= time.Second {
		c.rate = float64(c.frames) / elapsed.Seconds()
		c.frames = 0
		c.windowStart = now
	}
	return c.rate
}
