package monitor

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig shapes the exponential backoff used while a pending source
// refuses to connect.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the standard backoff: 1s doubling to a 30s cap.
// Retries are unbounded; a wall-mounted monitor must latch onto its source
// whenever it reappears, however long that takes.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Reconcile drives pending source selections to completion. It blocks until
// ctx is cancelled, waking whenever a new selection is requested and
// retrying failed connects with exponential backoff.
func (st *State) Reconcile(ctx context.Context, cfg RetryConfig) {
	if cfg.InitialDelay <= 0 {
		cfg = DefaultRetryConfig()
	}
	delay := cfg.InitialDelay
	attempt := 0

	for {
		st.mu.Lock()
		name := st.pending
		st.mu.Unlock()

		if name == "" {
			delay = cfg.InitialDelay
			attempt = 0
			select {
			case <-ctx.Done():
				return
			case <-st.wake:
			}
			continue
		}

		if err := st.SelectSource(name); err == nil {
			delay = cfg.InitialDelay
			attempt = 0
			continue
		}

		attempt++
		slog.Warn("monitor: retrying pending source",
			"name", name,
			"attempt", attempt,
			"delay", delay,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-st.wake:
			// A fresh request arrived; retry immediately with a reset
			// schedule.
			timer.Stop()
			delay = cfg.InitialDelay
			attempt = 0
		case <-timer.C:
			delay *= 2
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}
}
