// Package server provides the optional HTTP status server for favwatch.
//
// This package is internal to favwatch and handles all HTTP concerns:
//
//   - REST API: JSON endpoint at "/api/v1/status" for the current
//     component status snapshot
//   - Server-Sent Events: Real-time updates at "/api/v1/sse"
//   - Health: liveness probe at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the favwatch library should not need to interact with this
// package directly. The server is started by [favwatch.Watcher.Start]
// when a status port is configured.
package server
