package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkessler/favwatch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote is an httptest-backed stand-in for the marketplace API.
type fakeRemote struct {
	t *testing.T

	mu            sync.Mutex
	issuedToken   string
	lastAuth      string
	lastVersion   string
	favoritesBody string
	favoritesCode int
}

func newFakeRemote(t *testing.T) (*fakeRemote, *Client) {
	t.Helper()

	f := &fakeRemote{
		t:             t,
		issuedToken:   "tok-123",
		favoritesBody: `{"items":[{"id":"biz-001"},{"id":"biz-002"}]}`,
		favoritesCode: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", f.handleLogin)
	mux.HandleFunc("/api/v1/favorites/businesses", f.handleFavorites)
	mux.HandleFunc("/api/v1/app/version", f.handleVersion)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := New(Config{
		BaseURL:    srv.URL,
		Email:      "user@example.com",
		Password:   "hunter2",
		AppVersion: "2.0.0",
	}, discardLogger())

	return f, client
}

func (f *fakeRemote) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		AppVersion string `json:"appVersion"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

	if req.Password != "hunter2" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
		return
	}

	f.mu.Lock()
	token := f.issuedToken
	f.mu.Unlock()
	_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func (f *fakeRemote) handleFavorites(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.lastAuth = r.Header.Get("Authorization")
	body, code := f.favoritesBody, f.favoritesCode
	f.mu.Unlock()

	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func (f *fakeRemote) handleVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version string `json:"version"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

	f.mu.Lock()
	f.lastVersion = req.Version
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func TestClient_LoginCachesToken(t *testing.T) {
	f, client := newFakeRemote(t)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))

	_, err := client.ListFavoriteBusinesses(ctx)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "Bearer tok-123", f.lastAuth)
}

func TestClient_LoginRejectedReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	}))
	t.Cleanup(srv.Close)

	client := New(Config{BaseURL: srv.URL, Email: "e", Password: "wrong"}, discardLogger())
	err := client.Login(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "bad credentials", apiErr.Message)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_ListFavorites(t *testing.T) {
	f, client := newFakeRemote(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx))

	resp, err := client.ListFavoriteBusinesses(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.JSONEq(t, `{"id":"biz-001"}`, string(resp.Items[0]))

	// empty items field is a valid, empty response
	f.mu.Lock()
	f.favoritesBody = `{}`
	f.mu.Unlock()

	resp, err = client.ListFavoriteBusinesses(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestClient_ForbiddenCarriesStatusForClassification(t *testing.T) {
	f, client := newFakeRemote(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx))

	f.mu.Lock()
	f.favoritesCode = http.StatusForbidden
	f.favoritesBody = `{"message":"rate limited"}`
	f.mu.Unlock()

	_, err := client.ListFavoriteBusinesses(ctx)
	require.Error(t, err)

	// the watcher's backoff tracker classifies via the status accessor
	code, ok := favwatch.HTTPStatus(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestClient_UpdateAppVersion(t *testing.T) {
	f, client := newFakeRemote(t)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx))

	require.NoError(t, client.UpdateAppVersion(ctx))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "2.0.0", f.lastVersion)
}

func TestClient_TransportErrorHasNoStatus(t *testing.T) {
	// port that nothing listens on
	client := New(Config{BaseURL: "http://127.0.0.1:1", Email: "e", Password: "p"}, discardLogger())

	err := client.Login(context.Background())
	require.Error(t, err)

	_, ok := favwatch.HTTPStatus(err)
	assert.False(t, ok)
}

func TestErrorMessage_FallsBackToStatusText(t *testing.T) {
	assert.Equal(t, "Forbidden", errorMessage([]byte("not json"), http.StatusForbidden))
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`), http.StatusForbidden))
}
