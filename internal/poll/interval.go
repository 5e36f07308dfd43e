package poll

import (
	"math/rand"
	"time"
)

// Interval bounds in milliseconds. The floor protects the remote service
// from aggressive cadences regardless of configuration.
const (
	intervalFloorMs      = 15000
	defaultIntervalMinMs = 40000
	defaultIntervalMaxMs = 120000
)

// Policy computes the randomized delay before the next poll cycle.
//
// The delay is drawn uniformly from [min, max] milliseconds inclusive,
// where the bounds are resolved from layered configuration:
//
//  1. Both min and max absent: the legacy fixed interval, if configured,
//     is used for both bounds (fixed cadence); otherwise the defaults
//     40000/120000 apply.
//  2. Otherwise whichever of min/max is configured is used, the absent
//     one defaulting to 40000/120000 respectively.
//  3. min is clamped up to the 15000ms floor, then max is raised to min
//     so the range stays valid even when misconfigured with max < min.
//
// Policy is a pure function of configuration and its random source; it is
// safe to call from the single loop goroutine that owns it.
type Policy struct {
	cfg Config
	rng *rand.Rand
}

// NewPolicy creates a [Policy]. A nil rng falls back to a source seeded
// from the current time; tests pass a fixed-seed source for determinism.
func NewPolicy(cfg Config, rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Policy{cfg: cfg, rng: rng}
}

// Bounds resolves the effective [min, max] interval in milliseconds.
func (p *Policy) Bounds() (minMs, maxMs int64) {
	cfg := p.cfg

	minMs, maxMs = defaultIntervalMinMs, defaultIntervalMaxMs
	switch {
	case !present(cfg.IntervalMinMs) && !present(cfg.IntervalMaxMs):
		if present(cfg.IntervalFixedMs) {
			// legacy single-value configuration: fixed cadence
			minMs, maxMs = *cfg.IntervalFixedMs, *cfg.IntervalFixedMs
		}
	default:
		if present(cfg.IntervalMinMs) {
			minMs = *cfg.IntervalMinMs
		}
		if present(cfg.IntervalMaxMs) {
			maxMs = *cfg.IntervalMaxMs
		}
	}

	if minMs < intervalFloorMs {
		minMs = intervalFloorMs
	}
	if maxMs < minMs {
		maxMs = minMs
	}
	return minMs, maxMs
}

// Next returns the jittered delay before the next fetch.
func (p *Policy) Next() time.Duration {
	minMs, maxMs := p.Bounds()
	ms := minMs
	if maxMs > minMs {
		// Int63n upper bound is exclusive; +1 makes maxMs reachable.
		ms += p.rng.Int63n(maxMs - minMs + 1)
	}
	return time.Duration(ms) * time.Millisecond
}
