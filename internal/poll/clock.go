package poll

import "time"

// Clock abstracts the current time so window pruning and cooldown
// comparisons can be driven by a synthetic clock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production [Clock] backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
