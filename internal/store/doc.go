// Package store provides storage and pub/sub functionality for watcher
// component status.
//
// This package is internal to favwatch and manages the in-memory snapshot
// of each component's state: the favorites poller and the two upkeep
// timers. It implements a publish-subscribe pattern so the status server
// can push real-time updates to connected clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [ComponentStatus]: Storage representation of one component's state
//
// The store is designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
//
// Users of the favwatch library should not need to interact with this
// package directly. Storage is managed internally by the watcher.
package store
