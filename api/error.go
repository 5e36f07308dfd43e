package api

import "fmt"

// Error is an HTTP-level failure from the remote marketplace API.
//
// It carries the method and path of the failed call plus the response
// status, so log lines and the poll loop's 403 classification both have
// what they need. Error implements StatusCode() int, the accessor
// favwatch searches the error chain for.
type Error struct {
	// Method and Path identify the failed call.
	Method string
	Path   string

	// Status is the HTTP response status code.
	Status int

	// Message is the server-provided error description, if the body
	// carried one, otherwise the generic status text.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// StatusCode returns the HTTP status carried by the error.
func (e *Error) StatusCode() int {
	return e.Status
}
