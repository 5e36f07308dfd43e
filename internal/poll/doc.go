// Package poll implements the favorites polling core for favwatch.
//
// This package is internal to favwatch and contains the only part of the
// system with real state, timing, and failure-recovery logic:
//
//   - [Policy]: computes the jittered delay before the next fetch
//   - [Backoff]: tracks recent HTTP 403 responses in a sliding window and
//     arms a cooldown when they burst
//   - [Loop]: the fetch/classify/schedule state machine
//   - [Clock]: injectable time source for deterministic tests
//
// Exactly one poll cycle is in flight per running [Loop]; all waits are
// cancellable via context. The loop never terminates on its own — every
// outcome, success or failure, advances to the next scheduled cycle.
//
// Users of the favwatch library should not need to interact with this
// package directly. Configuration is done through the main favwatch package.
package poll
