package favwatch

import "errors"

// Listing is one favorite listing exactly as returned by the remote API.
//
// The payload is opaque to favwatch: it is carried through untouched as
// raw JSON so callers can decode whatever fields their rendering needs.
// Listing behaves like json.RawMessage for encoding purposes.
type Listing []byte

// MarshalJSON returns l as the JSON encoding of l.
func (l Listing) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	return l, nil
}

// UnmarshalJSON sets *l to a copy of data.
func (l *Listing) UnmarshalJSON(data []byte) error {
	if l == nil {
		return errors.New("favwatch.Listing: UnmarshalJSON on nil pointer")
	}
	*l = append((*l)[0:0], data...)
	return nil
}
