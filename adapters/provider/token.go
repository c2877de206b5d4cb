package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/artpar/tierguard/ports"
)

// StaticToken supplies a fixed bearer token, typically injected through
// configuration or the environment.
type StaticToken struct {
	token string
}

// NewStaticToken creates a static token provider.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

// GetAccessToken returns the configured token. An empty token is a
// configuration problem and is reported as an error.
func (s *StaticToken) GetAccessToken(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", fmt.Errorf("no access token configured")
	}
	return s.token, nil
}

var _ ports.TokenProvider = (*StaticToken)(nil)

// ClientCredentials obtains bearer tokens from an OAuth2 token endpoint
// using the client_credentials grant. Tokens are cached until shortly
// before expiry.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	httpClient   *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// ClientCredentialsConfig holds configuration for the token exchange.
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

// NewClientCredentials creates a client-credentials token provider.
func NewClientCredentials(cfg ClientCredentialsConfig) *ClientCredentials {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &ClientCredentials{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        cfg.Scope,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// GetAccessToken returns a cached token, exchanging credentials for a
// fresh one when the cache is empty or about to expire.
func (c *ClientCredentials) GetAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.expiresAt) > time.Minute {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	if c.scope != "" {
		form.Set("scope", c.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}

	c.token = tr.AccessToken
	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)

	return c.token, nil
}

var _ ports.TokenProvider = (*ClientCredentials)(nil)
