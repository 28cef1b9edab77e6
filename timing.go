// FILE: confspec/timing.go

package confspec

import "time"

// Timing constants for source watching.
const (
	// MinPollInterval is the hard floor for poll-based watching.
	MinPollInterval = 100 * time.Millisecond

	// DefaultPollInterval is the standard source monitoring frequency.
	DefaultPollInterval = time.Second

	// DefaultDebounce is the coalescence period applied after a file
	// change is detected, so that partial writes are not loaded.
	DefaultDebounce = 500 * time.Millisecond
)
