// Package upkeep runs the two always-on maintenance timers for favwatch:
// periodic re-authentication and the daily app-version refresh.
//
// Both timers fire immediately on start and then on a fixed period with
// no jitter. Neither emits data — they exist purely for their side
// effects — and neither ever stops on failure: errors are logged and the
// timer keeps running. The timers are independent of the poll enable
// signal; they run for the whole lifetime of the watcher.
//
// Users of the favwatch library should not need to interact with this
// package directly.
package upkeep

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// MinAuthInterval is the floor on the re-authentication period.
	MinAuthInterval = time.Hour

	// VersionInterval is the fixed app-version refresh period. It is not
	// configurable.
	VersionInterval = 24 * time.Hour

	// loginRetries is the number of extra login attempts per timer fire.
	loginRetries = 2
)

// Result reports one timer fire to the optional observer.
type Result struct {
	Task string // "auth" or "version"
	At   time.Time
	Err  error
}

// Runner owns the two maintenance timers.
type Runner struct {
	login         func(ctx context.Context) error
	updateVersion func(ctx context.Context) error
	authInterval  time.Duration
	logger        *slog.Logger
	onResult      func(Result)
}

// NewRunner creates a Runner. authInterval is clamped up to
// [MinAuthInterval]; a non-positive value selects the floor.
func NewRunner(login, updateVersion func(ctx context.Context) error, authInterval time.Duration, logger *slog.Logger) *Runner {
	if authInterval < MinAuthInterval {
		authInterval = MinAuthInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		login:         login,
		updateVersion: updateVersion,
		authInterval:  authInterval,
		logger:        logger,
	}
}

// OnResult registers an observer called after every timer fire.
func (r *Runner) OnResult(fn func(Result)) {
	r.onResult = fn
}

// AuthInterval returns the effective re-authentication period.
func (r *Runner) AuthInterval() time.Duration {
	return r.authInterval
}

// Run starts both timers and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		r.runTimer(ctx, "auth", r.authInterval, r.fireAuth)
	}()
	go func() {
		defer wg.Done()
		r.runTimer(ctx, "version", VersionInterval, r.fireVersion)
	}()

	wg.Wait()
}

// runTimer fires the task immediately, then on every tick until ctx is
// cancelled. Task failures never stop the timer.
func (r *Runner) runTimer(ctx context.Context, name string, interval time.Duration, fire func(ctx context.Context) error) {
	r.logger.Info("upkeep timer started", "task", name, "interval", interval.String())

	report := func(err error) {
		if r.onResult != nil {
			r.onResult(Result{Task: name, At: time.Now(), Err: err})
		}
	}

	report(fire(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("upkeep timer stopped", "task", name)
			return
		case <-ticker.C:
			report(fire(ctx))
		}
	}
}

// fireAuth re-authenticates with up to loginRetries extra attempts. A
// still-failing login is logged and swallowed so the timer survives.
func (r *Runner) fireAuth(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= loginRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = r.login(ctx); err == nil {
			r.logger.Debug("re-authentication succeeded")
			return nil
		}
		if attempt < loginRetries {
			r.logger.Debug("login failed, retrying",
				"attempt", attempt+1,
				"retries", loginRetries,
				"error", err.Error(),
			)
		}
	}
	r.logger.Warn("re-authentication failed", "error", err.Error())
	return err
}

// fireVersion refreshes the app version token. No retries at this layer;
// resilience is delegated to the API client. Failures must not crash the
// timer.
func (r *Runner) fireVersion(ctx context.Context) error {
	if err := r.updateVersion(ctx); err != nil {
		r.logger.Warn("app version refresh failed", "error", err.Error())
		return err
	}
	r.logger.Debug("app version refreshed")
	return nil
}
