package roaring

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const tokenPath = "/token"

// AccessToken is an issued bearer token and the moment it stops being valid.
// It is replaced as a whole on refresh.
type AccessToken struct {
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether tok expired strictly before now.
// There is no skew margin: a token is still used at the exact instant it expires.
func Expired(tok AccessToken, now time.Time) bool {
	return tok.ExpiresAt.Before(now)
}

// ExpiresIn returns the time left until expiry, or zero if already expired.
func (t AccessToken) ExpiresIn(now time.Time) time.Duration {
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// String masks the token so it can be logged safely.
func (t AccessToken) String() string {
	if len(t.Token) <= 8 {
		return "****"
	}
	return t.Token[:4] + "…" + t.Token[len(t.Token)-4:]
}

// tokenResponse is the body returned by the token endpoint.
// ExpiresIn is a pointer so a missing field can be told apart from zero.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   *int64 `json:"expires_in"`
}

// encodedCredentials returns base64("clientId:clientSecret").
func (c Credentials) encodedCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
}

// refreshKey is the single flight key for every token exchange, so a forced
// refresh and an expiry-triggered one never run side by side.
const refreshKey = "token"

// maxExpiresIn bounds expires_in so ExpiresAt cannot overflow.
const maxExpiresIn = int64(math.MaxInt64 / int64(time.Second))

// Refresh unconditionally exchanges the stored credentials for a new token.
// Concurrent calls share one exchange.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.sharedRefresh(ctx, true)
	return err
}

// validToken is the guard run before every authenticated call. It returns the
// stored token, refreshing it first if it has expired.
func (c *Client) validToken(ctx context.Context) (AccessToken, error) {
	if tok := c.AccessToken(); !Expired(tok, c.now()) {
		return tok, nil
	}

	shared, err := c.sharedRefresh(ctx, false)
	if err != nil {
		return AccessToken{}, err
	}
	if shared {
		c.logger.DebugContext(ctx, "roaring token refresh shared with concurrent caller")
	}
	return c.AccessToken(), nil
}

// sharedRefresh joins or starts the in-flight exchange. Unless force is set,
// the flight re-checks expiry and skips the exchange when another caller
// already refreshed. The exchange itself ignores cancellation of whichever
// caller started it; each caller stops waiting when its own ctx is done.
func (c *Client) sharedRefresh(ctx context.Context, force bool) (bool, error) {
	ch := c.refreshGroup.DoChan(refreshKey, func() (any, error) {
		if !force && !Expired(c.AccessToken(), c.now()) {
			return false, nil
		}
		return true, c.refreshToken(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return false, &AuthError{Message: "token refresh abandoned", Cause: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return res.Shared, res.Err
		}
		// A forced refresh that joined a flight which skipped the exchange
		// still owes the caller a new token.
		if force && !res.Val.(bool) {
			return c.sharedRefresh(ctx, force)
		}
		return res.Shared, nil
	}
}

// refreshToken performs the exchange and stores the result. Callers go
// through refreshGroup.
func (c *Client) refreshToken(ctx context.Context) error {
	tok, err := c.exchange(ctx)
	if err != nil {
		c.hooks.OnTokenRefresh(ctx, time.Time{}, err)
		return err
	}
	c.setToken(tok)
	c.hooks.OnTokenRefresh(ctx, tok.ExpiresAt, nil)
	c.logger.DebugContext(ctx, "roaring token refreshed", "expires_at", tok.ExpiresAt)
	return nil
}

// exchange runs the client-credentials grant against the token endpoint.
func (c *Client) exchange(ctx context.Context) (AccessToken, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := c.newRequest(ctx, http.MethodPost, tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, &AuthError{Message: "build token request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Roaring expects the encoded credentials as a bearer value, not Basic.
	bearer := &oauth2.Token{AccessToken: c.creds.encodedCredentials(), TokenType: "Bearer"}
	bearer.SetAuthHeader(req)

	resp, err := c.do(ctx, req)
	if err != nil {
		return AccessToken{}, &AuthError{Message: "token request failed", Cause: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return AccessToken{}, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("token endpoint returned HTTP %d", resp.StatusCode),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return AccessToken{}, &AuthError{
			StatusCode: resp.StatusCode,
			Message:    "malformed token response",
			Cause:      err,
		}
	}
	if tr.AccessToken == "" {
		return AccessToken{}, &AuthError{StatusCode: resp.StatusCode, Message: "token response missing access_token"}
	}
	if tr.ExpiresIn == nil {
		return AccessToken{}, &AuthError{StatusCode: resp.StatusCode, Message: "token response missing expires_in"}
	}
	if *tr.ExpiresIn < 0 || *tr.ExpiresIn > maxExpiresIn {
		return AccessToken{}, &AuthError{StatusCode: resp.StatusCode, Message: "invalid expires_in"}
	}

	return AccessToken{
		Token:     tr.AccessToken,
		ExpiresAt: c.now().Add(time.Duration(*tr.ExpiresIn) * time.Second),
	}, nil
}

// Token implements oauth2.TokenSource so the client can back an
// oauth2.NewClient transport. It applies the same expiry guard as Person.
func (c *Client) Token() (*oauth2.Token, error) {
	tok, err := c.validToken(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresAt,
	}, nil
}

var _ oauth2.TokenSource = (*Client)(nil)
