package poll

import "time"

// Backoff defaults, applied when the corresponding configuration values
// are absent or out of range.
const (
	// DefaultBackoffThreshold is the number of 403 responses inside the
	// window that arms a cooldown.
	DefaultBackoffThreshold = 3

	// DefaultBackoffWindow is the sliding window over which 403 responses
	// are counted.
	DefaultBackoffWindow = 5 * time.Minute

	// DefaultBackoffCooldown is how long polling is slowed once the
	// threshold trips.
	DefaultBackoffCooldown = 10 * time.Minute
)

// DefaultFetchRetries is the number of transparent retries per fetch
// before the failure is surfaced to the loop.
const DefaultFetchRetries = 2

// Config carries the polling options the core operates on.
//
// Interval fields are raw milliseconds as delivered by configuration. A nil
// pointer means the value is absent; non-positive values are also treated
// as absent so a misconfigured zero can never propagate into the random
// interval draw.
type Config struct {
	// IntervalMinMs and IntervalMaxMs bound the jittered poll cadence.
	IntervalMinMs *int64
	IntervalMaxMs *int64

	// IntervalFixedMs is the legacy single-value cadence. It is only
	// consulted when both IntervalMinMs and IntervalMaxMs are absent, in
	// which case it is used for both bounds (fixed, non-random cadence).
	IntervalFixedMs *int64

	// Backoff403Threshold is the 403 count inside the window that arms a
	// cooldown. Values below 1 fall back to DefaultBackoffThreshold.
	Backoff403Threshold int

	// Backoff403WindowMs is the sliding-window length in milliseconds.
	Backoff403WindowMs int64

	// Backoff403CooldownMs is the cooldown length in milliseconds.
	Backoff403CooldownMs int64
}

// backoffSettings resolves the tracker settings, applying defaults for
// absent or invalid values.
func (c Config) backoffSettings() (threshold int, window, cooldown time.Duration) {
	threshold = c.Backoff403Threshold
	if threshold < 1 {
		threshold = DefaultBackoffThreshold
	}
	window = DefaultBackoffWindow
	if c.Backoff403WindowMs > 0 {
		window = time.Duration(c.Backoff403WindowMs) * time.Millisecond
	}
	cooldown = DefaultBackoffCooldown
	if c.Backoff403CooldownMs > 0 {
		cooldown = time.Duration(c.Backoff403CooldownMs) * time.Millisecond
	}
	return threshold, window, cooldown
}

// present reports whether an optional millisecond value is configured.
// Non-positive values count as absent.
func present(v *int64) bool {
	return v != nil && *v > 0
}
