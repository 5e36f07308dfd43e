package poll

import (
	"encoding/json"
	"errors"
)

// Outcome is the classified result of one fetch cycle, after any
// transparent retries have been exhausted.
type Outcome struct {
	// Items holds the raw listings of a successful fetch. A successful
	// response without items yields a nil/empty slice, which the loop
	// drops without emitting.
	Items []json.RawMessage

	// Err is the final fetch error, nil on success.
	Err error
}

// Failed reports whether the cycle ended in a failure.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// ErrStatus returns the HTTP status code carried by an error, searching
// the wrapped chain for any error that exposes one. HTTP client layers
// surface status codes in different shapes, so both common accessor
// conventions are checked.
func ErrStatus(err error) (int, bool) {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	var hs interface{ HTTPStatus() int }
	if errors.As(err, &hs) {
		return hs.HTTPStatus(), true
	}
	return 0, false
}
