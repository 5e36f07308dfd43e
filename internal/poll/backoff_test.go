package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusErr carries an HTTP status for classification tests.
type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return "remote error" }
func (e *statusErr) StatusCode() int { return e.code }

func forbidden() Outcome {
	return Outcome{Err: &statusErr{code: 403}}
}

func backoffCfg(threshold int, window, cooldown time.Duration) Config {
	return Config{
		Backoff403Threshold:  threshold,
		Backoff403WindowMs:   window.Milliseconds(),
		Backoff403CooldownMs: cooldown.Milliseconds(),
	}
}

func TestBackoff_TripsAtThreshold(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBackoff(backoffCfg(3, 5*time.Minute, 10*time.Minute))

	require.Zero(t, b.Observe(forbidden(), base))
	require.Zero(t, b.Observe(forbidden(), base.Add(time.Minute)))
	assert.Equal(t, 2, b.FailureCount())

	// third 403 inside the window arms the cooldown
	remaining := b.Observe(forbidden(), base.Add(2*time.Minute))
	assert.Equal(t, 10*time.Minute, remaining)
	assert.Equal(t, base.Add(12*time.Minute), b.CooldownUntil())

	// window cleared on trip
	assert.Zero(t, b.FailureCount())
}

func TestBackoff_WindowPrunesOldFailures(t *testing.T) {
	// 403s at 0s, 200s and 400s with a 300s window: the first has aged
	// out by the time the third arrives, so nothing trips
	base := time.Unix(0, 0)
	b := NewBackoff(backoffCfg(3, 300*time.Second, 10*time.Minute))

	require.Zero(t, b.Observe(forbidden(), base))
	require.Zero(t, b.Observe(forbidden(), base.Add(200*time.Second)))

	remaining := b.Observe(forbidden(), base.Add(400*time.Second))
	assert.Zero(t, remaining)
	assert.True(t, b.CooldownUntil().IsZero())
	assert.Equal(t, 2, b.FailureCount())
}

func TestBackoff_CooldownNeverShortens(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBackoff(backoffCfg(1, 5*time.Minute, 10*time.Minute))

	b.Observe(forbidden(), base)
	first := b.CooldownUntil()
	require.Equal(t, base.Add(10*time.Minute), first)

	// a re-trip later always extends, never rewinds
	b.Observe(forbidden(), base.Add(time.Minute))
	assert.Equal(t, base.Add(11*time.Minute), b.CooldownUntil())

	// hypothetical earlier deadline is ignored: until only moves forward
	assert.False(t, b.CooldownUntil().Before(first))
}

func TestBackoff_SuccessDoesNotClearWindow(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBackoff(backoffCfg(3, 5*time.Minute, 10*time.Minute))

	b.Observe(forbidden(), base)
	b.Observe(forbidden(), base.Add(time.Minute))
	require.Equal(t, 2, b.FailureCount())

	// a success in between does not reset accumulated failures
	b.Observe(Outcome{}, base.Add(90*time.Second))
	assert.Equal(t, 2, b.FailureCount())

	remaining := b.Observe(forbidden(), base.Add(2*time.Minute))
	assert.Equal(t, 10*time.Minute, remaining)
}

func TestBackoff_Non403FailuresIgnored(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBackoff(backoffCfg(2, 5*time.Minute, 10*time.Minute))

	b.Observe(Outcome{Err: &statusErr{code: 500}}, base)
	b.Observe(Outcome{Err: assert.AnError}, base.Add(time.Second))
	assert.Zero(t, b.FailureCount())

	b.Observe(forbidden(), base.Add(2*time.Second))
	assert.Equal(t, 1, b.FailureCount())
	assert.True(t, b.CooldownUntil().IsZero())
}

func TestBackoff_RemainingDecaysToZero(t *testing.T) {
	base := time.Unix(1000, 0)
	b := NewBackoff(backoffCfg(1, 5*time.Minute, 10*time.Minute))

	b.Observe(forbidden(), base)
	assert.Equal(t, 5*time.Minute, b.Remaining(base.Add(5*time.Minute)))
	assert.Zero(t, b.Remaining(base.Add(10*time.Minute)))
	assert.Zero(t, b.Remaining(base.Add(time.Hour)))
}

func TestBackoff_DefaultsApplied(t *testing.T) {
	b := NewBackoff(Config{})
	assert.Equal(t, DefaultBackoffThreshold, b.Threshold())
	assert.Equal(t, DefaultBackoffWindow, b.Window())

	b = NewBackoff(Config{Backoff403Threshold: -1})
	assert.Equal(t, DefaultBackoffThreshold, b.Threshold())
}

func TestErrStatus(t *testing.T) {
	code, ok := ErrStatus(&statusErr{code: 403})
	require.True(t, ok)
	assert.Equal(t, 403, code)

	_, ok = ErrStatus(assert.AnError)
	assert.False(t, ok)

	_, ok = ErrStatus(nil)
	assert.False(t, ok)
}
