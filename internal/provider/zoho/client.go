package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"combisales/internal/auth"
)

const defaultTimeout = 10 * time.Second

var _ auth.TokenRefresher = (*Client)(nil)

// Client talks to the Zoho accounts token endpoint. Cancellation is bounded
// by the HTTP client's timeout; a timed-out refresh surfaces as an error and
// is treated as a failed attempt by the caller.
type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock overrides the time source used to compute token expiry.
func WithClock(fn func() time.Time) Option {
	return func(c *Client) {
		if fn != nil {
			c.now = fn
		}
	}
}

func NewClient(tokenURL, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
}

// Refresh exchanges a refresh token for a new access token. Zoho reports
// some failures with HTTP 200 plus an error field, so both are checked.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.ProviderToken, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return auth.ProviderToken{}, errors.New("zoho: refresh token is empty")
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return auth.ProviderToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return auth.ProviderToken{}, fmt.Errorf("zoho: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return auth.ProviderToken{}, fmt.Errorf("zoho: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return auth.ProviderToken{}, fmt.Errorf("zoho: token endpoint returned %d", resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return auth.ProviderToken{}, fmt.Errorf("zoho: decode response: %w", err)
	}
	if payload.Error != "" {
		return auth.ProviderToken{}, fmt.Errorf("zoho: refresh rejected: %s", payload.Error)
	}
	if payload.AccessToken == "" {
		return auth.ProviderToken{}, errors.New("zoho: response missing access token")
	}

	return auth.ProviderToken{
		AccessToken: payload.AccessToken,
		ExpiresAt:   c.now().Unix() + payload.ExpiresIn,
	}, nil
}
