// Package favwatch continuously polls a remote marketplace API for a
// user's favorite business listings.
//
// favwatch is designed as an SDK-first library: callers hand it a remote
// API client and an on/off signal, and consume the emitted listing
// batches however they like (rendering and notification are out of
// scope). The watcher re-authenticates on a schedule, refreshes a client
// app-version token daily, and protects itself against bursts of HTTP
// 403 responses by entering a cooldown that stretches — but never stops —
// the polling cadence.
//
// # Quick Start
//
// Create a client and start the watcher with graceful shutdown:
//
//	client := api.New(api.Config{
//	    BaseURL:  "https://api.example.com",
//	    Email:    os.Getenv("FAVWATCH_EMAIL"),
//	    Password: os.Getenv("FAVWATCH_PASSWORD"),
//	}, slog.Default())
//
//	w, _ := favwatch.New(favwatch.WithClient(client))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	go func() {
//	    for batch := range w.Batches() {
//	        fmt.Printf("%d favorites updated\n", len(batch))
//	    }
//	}()
//
//	w.Start(ctx, nil) // nil signal: polling always on
//
// # Configuration
//
// favwatch uses the functional options pattern for configuration:
//
//	w, err := favwatch.New(
//	    favwatch.WithClient(client),
//	    favwatch.WithPollingIntervalMin(40*time.Second),
//	    favwatch.WithPollingIntervalMax(2*time.Minute),
//	    favwatch.WithAuthenticationInterval(2*time.Hour),
//	    favwatch.WithBackoff403(3, 5*time.Minute, 10*time.Minute),
//	)
//
// The poll cadence is jittered: each cycle draws a uniformly random
// delay from the configured range to avoid synchronized request
// patterns. A hard 15-second floor applies no matter what is configured.
//
// # The enable signal
//
// [Watcher.Start] takes a channel of booleans. While the last value was
// true, exactly one poll loop runs; false cancels it outright, including
// any pending wait. Each on-transition starts a brand-new loop with
// fresh 403 backoff state — toggling the signal therefore resets the
// cooldown memory. This mirrors the behavior callers have relied on and
// is covered by tests rather than "fixed". The two maintenance timers
// (re-authentication, version refresh) ignore the signal and run for the
// watcher's whole lifetime.
//
// # Architecture
//
// favwatch consists of several internal packages (under internal/):
//
//   - internal/poll: the fetch/classify/schedule state machine with
//     jittered intervals and the 403 cooldown tracker
//   - internal/upkeep: the two always-on maintenance timers
//   - internal/store: in-memory component status with pub/sub
//   - internal/server: optional HTTP status server (JSON + SSE)
//
// The internal packages are not part of the public API and may change
// without notice. The [api] package provides the HTTP implementation of
// the [Client] boundary.
package favwatch
