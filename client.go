package favwatch

import (
	"context"

	"github.com/pkessler/favwatch/internal/poll"
)

// Client is the remote marketplace API consumed by the watcher.
//
// favwatch only drives the calls; it does not own the wire protocol. The
// [api] package provides an HTTP implementation, and tests substitute
// in-memory fakes. Errors returned by a Client may carry an HTTP status
// code (see [HTTPStatus]); the watcher uses that to recognize 403
// responses and arm its cooldown.
type Client interface {
	// Login (re-)authenticates with the remote service. The watcher calls
	// it immediately on start and then on the authentication interval.
	Login(ctx context.Context) error

	// ListFavoriteBusinesses fetches the user's current favorite listings.
	// A response without items is valid and treated as empty.
	ListFavoriteBusinesses(ctx context.Context) (*FavoritesResponse, error)

	// UpdateAppVersion refreshes the client version token the remote
	// service expects. Called immediately on start and then daily;
	// failures are logged only.
	UpdateAppVersion(ctx context.Context) error
}

// FavoritesResponse is the payload of a favorites fetch.
type FavoritesResponse struct {
	// Items holds the favorite listings. May be nil when the account has
	// no favorites or the response omitted the field.
	Items []Listing `json:"items"`
}

// HTTPStatus returns the HTTP status code carried by an error, searching
// the wrapped chain for any error that exposes one via StatusCode() int
// or HTTPStatus() int. Returns false when no status is carried (e.g.
// transport-level failures).
func HTTPStatus(err error) (int, bool) {
	return poll.ErrStatus(err)
}
