package store

import "time"

// Component names used as store keys.
const (
	ComponentPoller  = "poller"
	ComponentAuth    = "auth"
	ComponentVersion = "version"
)

// ComponentStatus represents the current state of one watcher component
// in storage.
//
// ComponentStatus is the storage representation, optimized for JSON
// serialization (used by the REST API and SSE). It is decoupled from the
// poll loop's internal types to allow independent evolution.
type ComponentStatus struct {
	// Component identifies the component ("poller", "auth", "version").
	Component string `json:"component"`

	// State is a short human-readable state ("idle", "polling",
	// "cooldown", "disabled", "ok", "failing").
	State string `json:"state"`

	// LastRunAt is the timestamp of the component's most recent activity.
	LastRunAt time.Time `json:"last_run_at"`

	// LastSuccessAt is the timestamp of the most recent success. Zero if
	// the component has not yet succeeded.
	LastSuccessAt time.Time `json:"last_success_at"`

	// Error contains the most recent error message.
	// nil indicates the last run succeeded.
	Error *string `json:"error"`

	// Detail carries component-specific values (cooldown remaining,
	// 403 counts, batch counters) as display strings.
	Detail map[string]string `json:"detail,omitempty"`
}

// Store defines the interface for storing and subscribing to component
// status updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a new component status and notifies all subscribers.
	// The status is keyed by Component, so subsequent updates replace
	// previous values.
	Update(status ComponentStatus)

	// GetAll returns all currently stored component statuses.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []ComponentStatus

	// Subscribe returns a channel that receives status updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan ComponentStatus

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan ComponentStatus)
}
