// Package roaring is a client for the Roaring identity-lookup API.
//
// A Client holds the OAuth2 client credentials it was created with and the
// most recently issued access token. The token is fetched when the client is
// created and refreshed on the first call that finds it expired.
package roaring

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the root of the production Roaring API.
const DefaultBaseURL = "https://api.roaring.io"

const defaultUserAgent = "roaring-go"

// Credentials holds the OAuth2 client ID and secret.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Client is an authenticated Roaring API client.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
	userAgent  string
	now        func() time.Time
	logger     *slog.Logger
	hooks      Hooks

	mu    sync.RWMutex
	token AccessToken

	refreshGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root (no trailing slash needed).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithClock replaces time.Now. Used by tests to pin token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a structured logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks registers observability callbacks.
func WithHooks(h Hooks) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = h
		}
	}
}

// New creates a client and performs the initial client-credentials exchange.
// It returns an *AuthError if the token endpoint rejects the credentials or
// cannot be reached; no client is returned in that case.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	c := &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		now:        time.Now,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		hooks:      NoopHooks{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AccessToken returns a snapshot of the current token.
func (c *Client) AccessToken() AccessToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(tok AccessToken) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and reports it to the hooks.
func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	info := RequestInfo{Method: req.Method, URL: req.URL.String()}
	ctx = c.hooks.OnRequestStart(ctx, info)

	start := time.Now()
	resp, err := c.httpClient.Do(req)

	result := RequestResult{Duration: time.Since(start), Error: err}
	if resp != nil {
		result.StatusCode = resp.StatusCode
	}
	c.hooks.OnRequestEnd(ctx, info, result)

	c.logger.DebugContext(ctx, "roaring request",
		"method", info.Method,
		"path", req.URL.Path,
		"status", result.StatusCode,
		"duration", result.Duration,
	)
	return resp, err
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
