package avito

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
)

// tokenCache keeps issued access tokens in memory until shortly before
// expiry. A failed downstream call must invalidate the entry so the
// next cycle re-authenticates.
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

func newTokenCache() *tokenCache {
	return &tokenCache{entries: make(map[string]cachedToken)}
}

func (tc *tokenCache) get(clientID string) (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	entry, ok := tc.entries[clientID]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.accessToken, true
}

func (tc *tokenCache) put(clientID, token string, expiresIn time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	// Renew a minute early so a token never expires mid-cycle.
	tc.entries[clientID] = cachedToken{
		accessToken: token,
		expiresAt:   time.Now().Add(expiresIn - time.Minute),
	}
}

func (tc *tokenCache) drop(clientID string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.entries, clientID)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token returns a cached access token for the credentials or exchanges
// them for a fresh one.
func (c *Client) Token(ctx context.Context, clientID, clientSecret string) (string, error) {
	if token, ok := c.tokens.get(clientID); ok {
		return token, nil
	}

	c.logger.Info("requesting new access token", "client_id", clientID)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token/",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token API error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token")
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.tokens.put(clientID, parsed.AccessToken, time.Duration(expiresIn)*time.Second)

	return parsed.AccessToken, nil
}

// InvalidateToken drops a cached token so the next call performs a
// fresh exchange. Called after auth-shaped API failures.
func (c *Client) InvalidateToken(clientID string) {
	c.logger.Warn("invalidating cached token", "client_id", clientID)
	c.tokens.drop(clientID)
}
