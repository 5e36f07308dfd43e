package upkeep

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// taskRecorder counts invocations of one upkeep task and scripts its
// error returns.
type taskRecorder struct {
	mu    sync.Mutex
	calls int
	errs  []error // consumed in order; nil after exhaustion
}

func (r *taskRecorder) fire(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return err
	}
	return nil
}

func (r *taskRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// runUntilDone runs the runner until ctx is cancelled and returns the
// observed results in arrival order.
func runUntilDone(t *testing.T, r *Runner, ctx context.Context) []Result {
	t.Helper()

	var mu sync.Mutex
	var results []Result
	r.OnResult(func(res Result) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	return results
}

func TestRunner_FiresBothTasksImmediately(t *testing.T) {
	login := &taskRecorder{}
	version := &taskRecorder{}
	r := NewRunner(login.fire, version.fire, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// both immediate fires happen before any tick; give them a beat
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	results := runUntilDone(t, r, ctx)

	assert.Equal(t, 1, login.count())
	assert.Equal(t, 1, version.count())

	tasks := make(map[string]int)
	for _, res := range results {
		tasks[res.Task]++
		assert.NoError(t, res.Err)
	}
	assert.Equal(t, 1, tasks["auth"])
	assert.Equal(t, 1, tasks["version"])
}

func TestRunner_LoginRetriesThenSucceeds(t *testing.T) {
	login := &taskRecorder{errs: []error{
		errors.New("first"),
		errors.New("second"),
	}}
	version := &taskRecorder{}
	r := NewRunner(login.fire, version.fire, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	results := runUntilDone(t, r, ctx)

	// two failures retried transparently within the single fire
	assert.Equal(t, 3, login.count())
	for _, res := range results {
		if res.Task == "auth" {
			assert.NoError(t, res.Err)
		}
	}
}

func TestRunner_LoginFailureDoesNotStopTimer(t *testing.T) {
	login := &taskRecorder{errs: []error{
		errors.New("a"), errors.New("b"), errors.New("c"),
	}}
	version := &taskRecorder{}
	r := NewRunner(login.fire, version.fire, time.Hour, discardLogger())
	// shrink the period so the next tick lands inside the test;
	// NewRunner clamps public configuration, so reach in directly
	r.authInterval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()
	results := runUntilDone(t, r, ctx)

	// exhausted retries on the first fire, then kept ticking
	require.GreaterOrEqual(t, login.count(), 4)

	var authResults []Result
	for _, res := range results {
		if res.Task == "auth" {
			authResults = append(authResults, res)
		}
	}
	require.GreaterOrEqual(t, len(authResults), 2)
	assert.Error(t, authResults[0].Err)
	assert.NoError(t, authResults[1].Err)
}

func TestRunner_VersionFailureHasNoRetries(t *testing.T) {
	login := &taskRecorder{}
	version := &taskRecorder{errs: []error{errors.New("boom")}}
	r := NewRunner(login.fire, version.fire, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	results := runUntilDone(t, r, ctx)

	// a failed version report is surfaced once, not retried
	assert.Equal(t, 1, version.count())
	for _, res := range results {
		if res.Task == "version" {
			assert.Error(t, res.Err)
		}
	}
}

func TestNewRunner_ClampsAuthInterval(t *testing.T) {
	r := NewRunner(nil, nil, 5*time.Minute, discardLogger())
	assert.Equal(t, MinAuthInterval, r.AuthInterval())

	r = NewRunner(nil, nil, 0, discardLogger())
	assert.Equal(t, MinAuthInterval, r.AuthInterval())

	r = NewRunner(nil, nil, 3*time.Hour, discardLogger())
	assert.Equal(t, 3*time.Hour, r.AuthInterval())
}
