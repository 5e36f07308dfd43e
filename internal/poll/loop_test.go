package poll

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock returns a fixed time, advanced manually by tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// loopHarness drives a Loop through a scripted number of cycles without
// real sleeping, recording every scheduled delay and emitted batch.
type loopHarness struct {
	loop    *Loop
	clock   *fakeClock
	cancel  context.CancelFunc
	delays  []time.Duration
	batches [][]json.RawMessage
	cycles  []CycleInfo
}

// newLoopHarness wires a loop that stops after maxCycles waits. The wait
// hook advances the fake clock by the scheduled delay, simulating real
// elapsed time between fetches.
func newLoopHarness(t *testing.T, fetch FetchFunc, cfg Config, maxCycles int) *loopHarness {
	t.Helper()

	h := &loopHarness{
		clock: &fakeClock{now: time.Unix(1000, 0)},
	}
	h.loop = NewLoop(fetch, func(items []json.RawMessage) {
		h.batches = append(h.batches, items)
	}, cfg, discardLogger())

	h.loop.SetClock(h.clock)
	h.loop.OnCycle(func(info CycleInfo) {
		h.cycles = append(h.cycles, info)
	})
	h.loop.SetWait(func(ctx context.Context, d time.Duration) bool {
		h.delays = append(h.delays, d)
		if len(h.delays) >= maxCycles {
			h.cancel()
			return false
		}
		h.clock.Advance(d)
		return true
	})
	return h
}

// run executes the loop to completion, bounded by a real-time guard in
// case the harness never cancels.
func (h *loopHarness) run(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.cancel = cancel

	done := make(chan struct{})
	go func() {
		h.loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func rawItems(ss ...string) []json.RawMessage {
	items := make([]json.RawMessage, len(ss))
	for i, s := range ss {
		items[i] = json.RawMessage(s)
	}
	return items
}

func TestLoop_EmitsNonEmptyBatches(t *testing.T) {
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		return rawItems(`{"id":"a"}`, `{"id":"b"}`), nil
	}

	h := newLoopHarness(t, fetch, Config{IntervalFixedMs: msPtr(20000)}, 3)
	h.run(t)

	require.Len(t, h.batches, 3)
	assert.Equal(t, rawItems(`{"id":"a"}`, `{"id":"b"}`), h.batches[0])

	require.Len(t, h.cycles, 3)
	assert.True(t, h.cycles[0].Emitted)
	assert.Equal(t, 2, h.cycles[0].Items)
}

func TestLoop_EmptyResponseReschedulesWithoutEmitting(t *testing.T) {
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		return nil, nil
	}

	h := newLoopHarness(t, fetch, Config{IntervalFixedMs: msPtr(20000)}, 3)
	h.run(t)

	// nothing emitted, but the loop kept scheduling cycles
	assert.Empty(t, h.batches)
	require.Len(t, h.delays, 3)
	for _, d := range h.delays {
		assert.Equal(t, 20*time.Second, d)
	}
}

func TestLoop_FailureReschedulesWithoutEmitting(t *testing.T) {
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		return nil, &statusErr{code: 500}
	}

	h := newLoopHarness(t, fetch, Config{IntervalFixedMs: msPtr(20000)}, 2)
	h.loop.SetRetries(0)
	h.run(t)

	assert.Empty(t, h.batches)
	require.Len(t, h.cycles, 2)
	assert.Error(t, h.cycles[0].Err)
	assert.False(t, h.cycles[0].Emitted)
}

func TestLoop_RetriesAreTransparent(t *testing.T) {
	// fails twice, then succeeds: the cycle outcome must be a clean
	// success with one emitted batch
	calls := 0
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		calls++
		if calls <= 2 {
			return nil, &statusErr{code: 500}
		}
		return rawItems(`{"id":"a"}`), nil
	}

	h := newLoopHarness(t, fetch, Config{IntervalFixedMs: msPtr(20000)}, 1)
	h.run(t)

	assert.Equal(t, 3, calls)
	require.Len(t, h.batches, 1)
	require.Len(t, h.cycles, 1)
	assert.NoError(t, h.cycles[0].Err)
	assert.True(t, h.cycles[0].Emitted)
}

func TestLoop_RetriesExhaustedSurfacesFinalError(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		calls++
		return nil, &statusErr{code: 500}
	}

	h := newLoopHarness(t, fetch, Config{IntervalFixedMs: msPtr(20000)}, 1)
	h.run(t)

	// 1 attempt + DefaultFetchRetries retries
	assert.Equal(t, 1+DefaultFetchRetries, calls)
	require.Len(t, h.cycles, 1)
	assert.Error(t, h.cycles[0].Err)
}

func TestLoop_CooldownDominatesJitter(t *testing.T) {
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		return nil, &statusErr{code: 403}
	}

	cfg := Config{
		IntervalFixedMs:      msPtr(20000),
		Backoff403Threshold:  1,
		Backoff403WindowMs:   (5 * time.Minute).Milliseconds(),
		Backoff403CooldownMs: (10 * time.Minute).Milliseconds(),
	}
	h := newLoopHarness(t, fetch, cfg, 2)
	h.loop.SetRetries(0)
	h.run(t)

	require.Len(t, h.delays, 2)
	// first cycle trips a 10m cooldown, dwarfing the 20s interval
	assert.Equal(t, 10*time.Minute, h.delays[0])
	// the wait consumed the whole cooldown; the second trip re-arms it
	assert.Equal(t, 10*time.Minute, h.delays[1])

	require.Len(t, h.cycles, 2)
	assert.Equal(t, 10*time.Minute, h.cycles[0].CooldownRemaining)
}

func TestLoop_JitterDominatesExpiredCooldown(t *testing.T) {
	calls := 0
	fetch := func(ctx context.Context) ([]json.RawMessage, error) {
		calls++
		if calls == 1 {
			return nil, &statusErr{code: 403}
		}
		return rawItems(`{"id":"a"}`), nil
	}

	cfg := Config{
		IntervalFixedMs:      msPtr(20000),
		Backoff403Threshold:  1,
		Backoff403WindowMs:   (5 * time.Minute).Milliseconds(),
		Backoff403CooldownMs: (30 * time.Second).Milliseconds(),
	}
	h := newLoopHarness(t, fetch, cfg, 2)
	h.loop.SetRetries(0)
	h.run(t)

	require.Len(t, h.delays, 2)
	// cooldown (30s) exceeds the fixed interval on the tripping cycle
	assert.Equal(t, 30*time.Second, h.delays[0])
	// after the wait the cooldown has lapsed; plain interval again
	assert.Equal(t, 20*time.Second, h.delays[1])
}

func TestLoop_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	loop := NewLoop(func(ctx context.Context) ([]json.RawMessage, error) {
		calls++
		return nil, nil
	}, func([]json.RawMessage) {}, Config{}, discardLogger())

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop on cancelled context")
	}
	assert.Zero(t, calls)
}

func TestLoop_DiscardsResultWhenCancelledMidFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	emitted := 0
	loop := NewLoop(func(ctx context.Context) ([]json.RawMessage, error) {
		// cancel while the fetch is in flight
		cancel()
		return rawItems(`{"id":"a"}`), nil
	}, func([]json.RawMessage) {
		emitted++
	}, Config{}, discardLogger())

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Zero(t, emitted)
}
