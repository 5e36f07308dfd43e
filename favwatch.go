package favwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkessler/favwatch/internal/poll"
	"github.com/pkessler/favwatch/internal/server"
	"github.com/pkessler/favwatch/internal/store"
	"github.com/pkessler/favwatch/internal/upkeep"
)

const (
	defaultAuthInterval = time.Hour
	batchBuffer         = 16
)

// Watcher is the main orchestrator: it composes the external enable
// signal with the favorites poll loop and the two always-on upkeep
// timers (re-authentication and app-version refresh).
//
// While the signal is on, exactly one poll loop runs; turning the signal
// off cancels the loop outright, including any pending scheduled wait,
// and discards its backoff state. Turning it back on starts a brand-new
// loop with fresh 403 memory — that reset is deliberate, documented
// behavior. The upkeep timers run for the watcher's whole lifetime
// regardless of the signal.
//
// The typical lifecycle is:
//
//	w, err := favwatch.New(favwatch.WithClient(client))
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	go consume(w.Batches())
//	w.Start(ctx, enabled) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context
// to trigger shutdown.
type Watcher struct {
	client         Client
	pollCfg        poll.Config
	authInterval   time.Duration
	statusPort     int
	logger         *slog.Logger
	batchCallbacks []func([]Listing)

	out         chan []Listing
	statusStore *store.MemoryStore

	// counters shared between the loop goroutine and status reporting
	statMu        sync.Mutex
	lastSuccessAt time.Time
	batchesSent   int64
	itemsSent     int64
}

// New creates a new [Watcher] instance with the given options.
//
// A remote API client must be configured via [WithClient]. Other options
// have sensible defaults:
//   - Polling cadence: uniform random in [40s, 120s]
//   - Authentication interval: 1 hour
//   - 403 backoff: 3 responses inside 5 minutes arm a 10-minute cooldown
//   - Status server: disabled
//
// Returns an error if no client is configured or if any option is invalid.
func New(opts ...Option) (*Watcher, error) {
	cfg := &wConfig{
		authInterval: defaultAuthInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.client == nil {
		return nil, errors.New("a remote API client is required")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		client:         cfg.client,
		pollCfg:        cfg.pollCfg,
		authInterval:   cfg.authInterval,
		statusPort:     cfg.statusPort,
		logger:         logger,
		batchCallbacks: cfg.batchCallbacks,
		out:            make(chan []Listing, batchBuffer),
		statusStore:    store.NewMemoryStore(),
	}, nil
}

// Batches returns the channel on which successful, non-empty item
// batches are emitted. The channel is closed when [Watcher.Start]
// returns. Consumers should read until it is closed.
func (w *Watcher) Batches() <-chan []Listing {
	return w.out
}

// Start runs the watcher until ctx is cancelled.
//
// enabled is the external on/off signal gating the poll loop. The
// watcher starts with polling disabled and reacts to each value
// received; a nil channel means always-on from the start, and a closed
// channel freezes the current state. The upkeep timers ignore the signal
// entirely.
//
// Start is a blocking call. It returns nil on shutdown, or an error if
// the status server fails to start.
func (w *Watcher) Start(ctx context.Context, enabled <-chan bool) error {
	minMs, maxMs := poll.NewPolicy(w.pollCfg, nil).Bounds()
	w.logger.Info("favwatch starting",
		"interval_min_ms", minMs,
		"interval_max_ms", maxMs,
		"auth_interval", w.authInterval.String(),
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		close(w.out)
		return nil
	}

	if w.statusPort > 0 {
		srv := server.NewServer(w.statusStore, w.statusPort, w.logger)
		if err := srv.Start(ctx); err != nil {
			close(w.out)
			return fmt.Errorf("failed to start status server: %w", err)
		}
		w.logger.Info("status server listening", "port", w.statusPort)
	}

	// upkeep timers run for the whole watcher lifetime
	runner := upkeep.NewRunner(w.client.Login, w.client.UpdateAppVersion, w.authInterval, w.logger)
	runner.OnResult(w.recordUpkeep)

	var upkeepWG sync.WaitGroup
	upkeepWG.Add(1)
	go func() {
		defer upkeepWG.Done()
		runner.Run(ctx)
	}()

	// loop lifecycle owned by this goroutine; one loop at a time
	var loopWG sync.WaitGroup
	var loopCancel context.CancelFunc

	startLoop := func() {
		if loopCancel != nil {
			return // already polling
		}
		loopCtx, cancel := context.WithCancel(ctx)
		loopCancel = cancel

		loop := poll.NewLoop(w.fetchItems, func(items []json.RawMessage) {
			w.deliver(loopCtx, items)
		}, w.pollCfg, w.logger)
		loop.OnCycle(w.recordCycle)

		w.recordPollerState("polling", nil)
		loopWG.Add(1)
		go func() {
			defer loopWG.Done()
			loop.Run(loopCtx)
		}()
	}

	stopLoop := func() {
		if loopCancel == nil {
			return
		}
		loopCancel()
		loopCancel = nil
		// wait for the loop to wind down; its backoff state dies with it
		loopWG.Wait()
		w.recordPollerState("disabled", nil)
	}

	w.recordPollerState("disabled", nil)
	if enabled == nil {
		startLoop()
	}

	for {
		select {
		case <-ctx.Done():
			stopLoop()
			upkeepWG.Wait()
			close(w.out)
			w.logger.Info("favwatch stopped")
			return nil

		case on, ok := <-enabled:
			if !ok {
				// signal source closed: freeze the current state
				enabled = nil
				continue
			}
			if on {
				startLoop()
			} else {
				stopLoop()
			}
		}
	}
}

// fetchItems adapts the Client boundary to the poll loop's raw-items
// fetch. A response without items maps to a nil slice, which the loop
// drops without emitting.
func (w *Watcher) fetchItems(ctx context.Context) ([]json.RawMessage, error) {
	resp, err := w.client.ListFavoriteBusinesses(ctx)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Items) == 0 {
		return nil, nil
	}
	raw := make([]json.RawMessage, len(resp.Items))
	for i, item := range resp.Items {
		raw[i] = json.RawMessage(item)
	}
	return raw, nil
}

// deliver forwards one emitted batch to the output channel and then to
// any registered callbacks. The send is cancellable so a disabled loop
// never blocks on a slow consumer.
func (w *Watcher) deliver(ctx context.Context, raw []json.RawMessage) {
	items := make([]Listing, len(raw))
	for i, r := range raw {
		items[i] = Listing(r)
	}

	select {
	case w.out <- items:
	case <-ctx.Done():
		return
	}

	w.statMu.Lock()
	w.lastSuccessAt = time.Now()
	w.batchesSent++
	w.itemsSent += int64(len(items))
	w.statMu.Unlock()

	for _, cb := range w.batchCallbacks {
		invokeCallbackSafe(cb, items, w.logger)
	}
}

// recordCycle publishes the poller's status after every completed cycle.
func (w *Watcher) recordCycle(info poll.CycleInfo) {
	w.statMu.Lock()
	lastSuccess := w.lastSuccessAt
	batches := w.batchesSent
	items := w.itemsSent
	w.statMu.Unlock()

	status := store.ComponentStatus{
		Component:     store.ComponentPoller,
		State:         "polling",
		LastRunAt:     info.At,
		LastSuccessAt: lastSuccess,
		Detail: map[string]string{
			"next_poll_in":       info.Delay.String(),
			"failures_in_window": strconv.Itoa(info.FailureCount),
			"batches_emitted":    strconv.FormatInt(batches, 10),
			"items_emitted":      strconv.FormatInt(items, 10),
			"cooldown_remaining": info.CooldownRemaining.String(),
		},
	}
	if info.Err != nil {
		msg := info.Err.Error()
		status.Error = &msg
		status.State = "failing"
	}
	if info.CooldownRemaining > 0 {
		status.State = "cooldown"
	}
	w.statusStore.Update(status)
}

// recordPollerState publishes a coarse poller state transition
// (enabled/disabled) outside of cycle boundaries.
func (w *Watcher) recordPollerState(state string, err error) {
	status := store.ComponentStatus{
		Component: store.ComponentPoller,
		State:     state,
		LastRunAt: time.Now(),
	}
	if prev, ok := w.statusStore.Get(store.ComponentPoller); ok {
		status.LastSuccessAt = prev.LastSuccessAt
	}
	if err != nil {
		msg := err.Error()
		status.Error = &msg
	}
	w.statusStore.Update(status)
}

// recordUpkeep publishes the status of one upkeep timer fire.
func (w *Watcher) recordUpkeep(res upkeep.Result) {
	component := store.ComponentAuth
	if res.Task == "version" {
		component = store.ComponentVersion
	}

	status := store.ComponentStatus{
		Component: component,
		State:     "ok",
		LastRunAt: res.At,
	}
	if prev, ok := w.statusStore.Get(component); ok {
		status.LastSuccessAt = prev.LastSuccessAt
	}
	if res.Err != nil {
		msg := res.Err.Error()
		status.Error = &msg
		status.State = "failing"
	} else {
		status.LastSuccessAt = res.At
	}
	w.statusStore.Update(status)
}

// invokeCallbackSafe calls a batch callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func invokeCallbackSafe(cb func([]Listing), items []Listing, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("batch callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", r,
				"items", len(items),
			)
		}
	}()
	cb(items)
}
