package stream

import (
	"time"

	"github.com/openclaude/streamkit/internal/retry"
)

// Options configures one logical streaming call. A fresh Options value
// is created per call and discarded when the call settles.
type Options struct {
	// Timeout bounds the entire call, including every retry attempt.
	// The watchdog is armed once when the call starts and disarmed on
	// every exit path; zero disables it. Caller cancellation and the
	// watchdog race, and the session reacts to whichever fires first.
	Timeout time.Duration
	// Retry tunes the backoff schedule across connection attempts.
	Retry retry.Options
}

// DefaultOptions mirrors the production streaming defaults.
func DefaultOptions() Options {
	return Options{
		Retry: retry.DefaultOptions(),
	}
}
