package favwatch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pkessler/favwatch/internal/poll"
)

// wConfig holds mutable state during Watcher construction.
type wConfig struct {
	client         Client
	pollCfg        poll.Config
	authInterval   time.Duration
	statusPort     int
	logger         *slog.Logger
	batchCallbacks []func([]Listing)
}

// Option is a function that configures a [Watcher] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithClient], [WithPollingIntervalMin],
// [WithPollingIntervalMax], [WithPollingInterval],
// [WithAuthenticationInterval], [WithBackoff403], [WithStatusPort],
// [WithLogger], [WithBatchCallback].
type Option func(*wConfig) error

// WithClient sets the remote API client the watcher drives.
//
// A client is required; [New] fails without one.
func WithClient(c Client) Option {
	return func(cfg *wConfig) error {
		if c == nil {
			return errors.New("client cannot be nil")
		}
		cfg.client = c
		return nil
	}
}

// WithPollingIntervalMin sets the lower bound of the jittered poll
// cadence. Values below the 15-second floor are clamped up at draw time;
// the floor protects the remote service regardless of configuration.
//
// Returns an error if the duration is zero or negative.
func WithPollingIntervalMin(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("polling interval min must be positive")
		}
		ms := d.Milliseconds()
		cfg.pollCfg.IntervalMinMs = &ms
		return nil
	}
}

// WithPollingIntervalMax sets the upper bound of the jittered poll
// cadence. If the resulting bound is below the effective minimum it is
// raised to match, guaranteeing a valid range.
//
// Returns an error if the duration is zero or negative.
func WithPollingIntervalMax(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("polling interval max must be positive")
		}
		ms := d.Milliseconds()
		cfg.pollCfg.IntervalMaxMs = &ms
		return nil
	}
}

// WithPollingInterval sets the legacy single-value cadence: polling
// happens at exactly this interval with no jitter. It is only consulted
// when neither [WithPollingIntervalMin] nor [WithPollingIntervalMax] is
// configured — the layered resolution order matches what legacy
// configurations expect and is deliberately preserved.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		ms := d.Milliseconds()
		cfg.pollCfg.IntervalFixedMs = &ms
		return nil
	}
}

// WithAuthenticationInterval sets how often the watcher re-authenticates.
// Values below one hour are clamped up to the floor. Defaults to one hour.
//
// Returns an error if the duration is zero or negative.
func WithAuthenticationInterval(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("authentication interval must be positive")
		}
		cfg.authInterval = d
		return nil
	}
}

// WithBackoff403 tunes the 403 cooldown tracker: threshold responses
// inside window arm a cooldown of the given length. Defaults: 3 inside
// 5 minutes arming 10 minutes.
//
// Returns an error if threshold is below 1 or either duration is not
// positive.
func WithBackoff403(threshold int, window, cooldown time.Duration) Option {
	return func(cfg *wConfig) error {
		if threshold < 1 {
			return errors.New("backoff threshold must be at least 1")
		}
		if window <= 0 || cooldown <= 0 {
			return errors.New("backoff window and cooldown must be positive")
		}
		cfg.pollCfg.Backoff403Threshold = threshold
		cfg.pollCfg.Backoff403WindowMs = window.Milliseconds()
		cfg.pollCfg.Backoff403CooldownMs = cooldown.Milliseconds()
		return nil
	}
}

// WithStatusPort enables the HTTP status server on the given port.
// Disabled by default.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithStatusPort(port int) Option {
	return func(cfg *wConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("status port must be between 1 and 65535")
		}
		cfg.statusPort = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Watcher instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *wConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithBatchCallback registers a function to be called for every emitted
// item batch, in addition to the [Watcher.Batches] channel.
//
// Multiple callbacks may be registered by calling WithBatchCallback
// multiple times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations
// should dispatch work to a separate goroutine. Blocking callbacks delay
// the poll loop's next cycle.
//
// Callbacks are invoked synchronously from the poll loop's goroutine.
// Panics within callbacks are recovered and logged; they do not crash the
// loop.
//
// Nil callbacks are silently ignored.
func WithBatchCallback(cb func([]Listing)) Option {
	return func(cfg *wConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.batchCallbacks = append(cfg.batchCallbacks, cb)
		return nil
	}
}
