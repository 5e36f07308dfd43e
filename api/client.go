// Package api implements the favwatch.Client boundary against the
// remote marketplace's HTTP API: token login, favorites listing, and the
// app-version refresh.
//
// The client keeps a bearer token acquired by Login and reuses it for
// subsequent calls; re-authentication cadence is owned by the watcher's
// upkeep timer, not by this package. HTTP-level failures are returned as
// [*Error] values carrying the response status; transport-level failures
// are wrapped with github.com/pkg/errors so diagnostic logs can surface
// stacks via %+v.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/pkessler/favwatch"
)

const (
	loginPath     = "/api/v1/auth/login"
	favoritesPath = "/api/v1/favorites/businesses"
	versionPath   = "/api/v1/app/version"

	requestTimeout      = 30 * time.Second
	maxResponseBodySize = 1 << 20 // 1MB

	// client-side request pacing, independent of the poll cadence floor
	defaultRateLimit = rate.Limit(1) // requests per second
	defaultRateBurst = 3
)

// Config holds the remote API connection settings.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.example.com".
	BaseURL string

	// Email and Password are the account credentials used by Login.
	Email    string
	Password string

	// AppVersion is the client version token reported by
	// UpdateAppVersion. Empty selects the library default.
	AppVersion string
}

// defaultAppVersion is reported when Config.AppVersion is empty.
const defaultAppVersion = "1.0.0"

// Client talks to the remote marketplace API. It implements
// [favwatch.Client].
//
// Client is safe for concurrent use: the watcher's poll loop and upkeep
// timers call it from separate goroutines.
type Client struct {
	baseURL    string
	email      string
	password   string
	appVersion string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.Mutex
	token string
}

// New creates a Client. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	appVersion := cfg.AppVersion
	if appVersion == "" {
		appVersion = defaultAppVersion
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		email:      cfg.Email,
		password:   cfg.Password,
		appVersion: appVersion,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: rate.NewLimiter(defaultRateLimit, defaultRateBurst),
		logger:  logger,
	}
}

// loginRequest is the authentication payload.
type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	AppVersion string `json:"appVersion"`
}

// loginResponse carries the issued bearer token.
type loginResponse struct {
	Token string `json:"token"`
}

// apiErrorBody is the error envelope some endpoints return.
type apiErrorBody struct {
	Message string `json:"message"`
}

// Login authenticates with the remote API and caches the issued token
// for subsequent calls.
func (c *Client) Login(ctx context.Context) error {
	payload := loginRequest{
		Email:      c.email,
		Password:   c.password,
		AppVersion: c.appVersion,
	}

	body, err := c.do(ctx, http.MethodPost, loginPath, payload, false)
	if err != nil {
		return err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errors.Wrap(err, "failed to parse login response")
	}
	if resp.Token == "" {
		return errors.New("login response missing token")
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()

	c.logger.Debug("authenticated with remote API")
	return nil
}

// ListFavoriteBusinesses fetches the user's current favorite listings.
// A response body without an items field yields an empty response, not
// an error.
func (c *Client) ListFavoriteBusinesses(ctx context.Context) (*favwatch.FavoritesResponse, error) {
	body, err := c.do(ctx, http.MethodGet, favoritesPath, nil, true)
	if err != nil {
		return nil, err
	}

	var resp favwatch.FavoritesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse favorites response")
	}

	c.logger.Debug("fetched favorites", "items", len(resp.Items))
	return &resp, nil
}

// UpdateAppVersion reports the client version token to the remote API.
func (c *Client) UpdateAppVersion(ctx context.Context) error {
	payload := struct {
		Version string `json:"version"`
	}{Version: c.appVersion}

	if _, err := c.do(ctx, http.MethodPost, versionPath, payload, true); err != nil {
		return err
	}

	c.logger.Debug("reported app version", "version", c.appVersion)
	return nil
}

// do executes one API call and returns the response body. Non-2xx
// responses become [*Error] values; transport failures are wrapped with
// a stack.
func (c *Client) do(ctx context.Context, method, path string, payload any, authed bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait")
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s request", path)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s request", path)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if authed {
		c.mu.Lock()
		token := c.token
		c.mu.Unlock()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s response", path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(body, resp.StatusCode),
		}
	}

	return body, nil
}

// errorMessage extracts the server-provided description from an error
// body, falling back to the generic status text.
func errorMessage(body []byte, status int) string {
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return http.StatusText(status)
}
