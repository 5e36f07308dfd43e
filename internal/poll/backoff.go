package poll

import (
	"net/http"
	"time"
)

// Backoff tracks recent HTTP 403 responses in a sliding time window and
// arms a cooldown once they reach a threshold.
//
// State is owned exclusively by one [Loop] instance and mutated only from
// that loop's single sequential cycle, so no locking is needed. A Backoff
// is created fresh each time a loop starts; restarting the loop therefore
// resets the 403 memory — that reset is deliberate, documented behavior.
type Backoff struct {
	threshold int
	window    time.Duration
	cooldown  time.Duration

	// failures are the timestamps of 403s observed inside the window,
	// oldest first. Cleared when the threshold trips.
	failures []time.Time

	// until is the cooldown deadline, zero when no cooldown was ever
	// armed. It only ever moves forward within a loop lifetime: a new
	// trip takes max(until, now+cooldown), never shortening an armed
	// cooldown.
	until time.Time
}

// NewBackoff creates a tracker from the resolved configuration.
func NewBackoff(cfg Config) *Backoff {
	threshold, window, cooldown := cfg.backoffSettings()
	return &Backoff{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
	}
}

// Observe updates the tracker with the outcome of one cycle and returns
// the cooldown remaining at now.
//
// Only failures classified as HTTP 403 mutate state. Successes do not
// clear accumulated failure history — entries leave the window by age
// alone. When the pruned count reaches the threshold the cooldown is
// (re)armed and the window resets; it does not slide continuously through
// a tripped cooldown.
func (b *Backoff) Observe(out Outcome, now time.Time) time.Duration {
	if out.Failed() {
		if code, ok := ErrStatus(out.Err); ok && code == http.StatusForbidden {
			b.failures = append(b.failures, now)
			b.prune(now)
			if len(b.failures) >= b.threshold {
				if armed := now.Add(b.cooldown); armed.After(b.until) {
					b.until = armed
				}
				b.failures = b.failures[:0]
			}
		}
	}
	return b.Remaining(now)
}

// Remaining returns how much cooldown is left at now, zero when none.
func (b *Backoff) Remaining(now time.Time) time.Duration {
	if r := b.until.Sub(now); r > 0 {
		return r
	}
	return 0
}

// FailureCount returns the number of 403s currently inside the window.
func (b *Backoff) FailureCount() int {
	return len(b.failures)
}

// Threshold returns the configured trip threshold.
func (b *Backoff) Threshold() int {
	return b.threshold
}

// Window returns the configured sliding-window length.
func (b *Backoff) Window() time.Duration {
	return b.window
}

// CooldownUntil returns the cooldown deadline, zero when none was armed.
func (b *Backoff) CooldownUntil() time.Time {
	return b.until
}

// prune drops failure timestamps older than the window relative to now.
func (b *Backoff) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
}
