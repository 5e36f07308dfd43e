package poll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// FetchFunc retrieves the current favorite listings from the remote API.
// A successful response without items returns a nil slice and no error.
type FetchFunc func(ctx context.Context) ([]json.RawMessage, error)

// EmitFunc receives the item batch of a successful, non-empty fetch.
type EmitFunc func(items []json.RawMessage)

// CycleInfo is a snapshot of one completed poll cycle, delivered to the
// optional cycle observer for status reporting.
type CycleInfo struct {
	At                time.Time
	Err               error
	Items             int
	Emitted           bool
	Delay             time.Duration
	CooldownRemaining time.Duration
	FailureCount      int
}

// Loop is the fetch/classify/schedule state machine.
//
// Each cycle fetches with transparent retries, classifies the final
// outcome, feeds it to the [Backoff] tracker, and waits
// max(jittered interval, remaining cooldown) before the next fetch. A
// cooldown therefore always runs at least as long as it was armed for
// while never shortening the normal jittered cadence.
//
// The loop is strictly serialized: no fetch starts before the previous
// cycle's wait completes. It never terminates on its own; cancel the
// context passed to [Loop.Run] to stop it. Cancellation mid-fetch does
// not abort the in-flight remote call, but its result is discarded.
type Loop struct {
	fetch   FetchFunc
	emit    EmitFunc
	policy  *Policy
	backoff *Backoff
	retries int
	clock   Clock
	wait    func(ctx context.Context, d time.Duration) bool
	onCycle func(CycleInfo)
	logger  *slog.Logger
}

// NewLoop creates a poll loop with fresh backoff state.
func NewLoop(fetch FetchFunc, emit EmitFunc, cfg Config, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		fetch:   fetch,
		emit:    emit,
		policy:  NewPolicy(cfg, nil),
		backoff: NewBackoff(cfg),
		retries: DefaultFetchRetries,
		clock:   SystemClock{},
		wait:    sleepWait,
		logger:  logger,
	}
}

// SetClock overrides the time source (useful for testing).
func (l *Loop) SetClock(c Clock) {
	l.clock = c
}

// SetWait overrides the scheduled-delay wait (useful for testing). The
// function must return false when the context is cancelled during the
// wait and true once the full delay has elapsed.
func (l *Loop) SetWait(fn func(ctx context.Context, d time.Duration) bool) {
	l.wait = fn
}

// SetPolicy overrides the interval policy (useful for testing with a
// fixed-seed random source).
func (l *Loop) SetPolicy(p *Policy) {
	l.policy = p
}

// SetRetries overrides the transparent fetch retry count.
func (l *Loop) SetRetries(n int) {
	if n >= 0 {
		l.retries = n
	}
}

// OnCycle registers an observer called after every completed cycle.
func (l *Loop) OnCycle(fn func(CycleInfo)) {
	l.onCycle = fn
}

// Run executes the loop until ctx is cancelled. It blocks; callers run it
// in a goroutine and cancel the context to stop it.
func (l *Loop) Run(ctx context.Context) {
	minMs, maxMs := l.policy.Bounds()
	l.logger.Info("poll loop started",
		"interval_min_ms", minMs,
		"interval_max_ms", maxMs,
		"backoff_threshold", l.backoff.Threshold(),
		"backoff_window", l.backoff.Window().String(),
	)

	for {
		if ctx.Err() != nil {
			l.logger.Info("poll loop stopped")
			return
		}

		out := l.fetchWithRetry(ctx)

		// a cancellation during the fetch discards the result outright
		if ctx.Err() != nil {
			l.logger.Info("poll loop stopped")
			return
		}

		now := l.clock.Now()
		remaining := l.backoff.Observe(out, now)
		l.logOutcome(out, remaining)

		emitted := false
		if !out.Failed() && len(out.Items) > 0 {
			l.emit(out.Items)
			emitted = true
		}

		delay := l.policy.Next()
		if remaining > delay {
			delay = remaining
		}

		if l.onCycle != nil {
			l.onCycle(CycleInfo{
				At:                now,
				Err:               out.Err,
				Items:             len(out.Items),
				Emitted:           emitted,
				Delay:             delay,
				CooldownRemaining: remaining,
				FailureCount:      l.backoff.FailureCount(),
			})
		}

		l.logger.Debug("next poll scheduled", "delay", delay.String())
		if !l.wait(ctx, delay) {
			l.logger.Info("poll loop stopped")
			return
		}
	}
}

// fetchWithRetry invokes the fetch with up to l.retries immediate
// retries. Retries are transparent to the state machine: only the final
// outcome is classified by the caller.
func (l *Loop) fetchWithRetry(ctx context.Context) Outcome {
	var err error
	for attempt := 0; attempt <= l.retries; attempt++ {
		if ctx.Err() != nil {
			return Outcome{Err: ctx.Err()}
		}

		var items []json.RawMessage
		items, err = l.fetch(ctx)
		if err == nil {
			return Outcome{Items: items}
		}

		if attempt < l.retries {
			l.logger.Debug("fetch failed, retrying",
				"attempt", attempt+1,
				"retries", l.retries,
				"error", err.Error(),
			)
		}
	}
	return Outcome{Err: err}
}

// logOutcome logs the classified cycle outcome. 403s log at warn with the
// tracker's current window position; other failures log with full detail
// (%+v surfaces stacks for errors that carry them). Empty successful
// responses are dropped silently.
func (l *Loop) logOutcome(out Outcome, remaining time.Duration) {
	if !out.Failed() {
		l.logger.Debug("fetch succeeded", "items", len(out.Items))
		return
	}

	if code, ok := ErrStatus(out.Err); ok && code == 403 {
		l.logger.Warn("favorites fetch forbidden",
			"failures_in_window", l.backoff.FailureCount(),
			"threshold", l.backoff.Threshold(),
			"window", l.backoff.Window().String(),
			"cooldown_remaining", remaining.String(),
		)
		return
	}

	l.logger.Error("favorites fetch failed", "error", formatDetailed(out.Err))
}

// formatDetailed renders an error with stack detail when available.
func formatDetailed(err error) string {
	type formatter interface{ Format(s fmt.State, verb rune) }
	if _, ok := err.(formatter); ok {
		return fmt.Sprintf("%+v", err)
	}
	return err.Error()
}

// sleepWait is the production wait: a cancellable timer-based sleep.
// Returns false if the context was cancelled before the delay elapsed.
func sleepWait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
