package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshPath is the backend endpoint that exchanges a refresh token
// for a new access token.
const refreshPath = "/api/v1/auth/refresh"

// TokenAuthenticator implements Authenticator against the TradeCraft
// backend. Access and refresh tokens live in the injected Store;
// concurrent refresh attempts are collapsed into a single in-flight
// call so a burst of 401s produces exactly one refresh request.
type TokenAuthenticator struct {
	httpClient    *http.Client
	baseURL       string
	store         Store
	refreshGroup  singleflight.Group
	onInvalidated func()
}

// refreshRequest is the JSON body sent to the refresh endpoint.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the envelope returned by the refresh endpoint.
type refreshResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		TokenType    string `json:"tokenType"`
		ExpiresIn    int    `json:"expiresIn"`
	} `json:"data"`
}

// NewTokenAuthenticator creates an authenticator backed by store.
// If httpClient is nil, a default client with 30s timeout is created.
func NewTokenAuthenticator(httpClient *http.Client, baseURL string, store Store) *TokenAuthenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenAuthenticator{
		httpClient: httpClient,
		baseURL:    baseURL,
		store:      store,
	}
}

// OnSessionInvalidated registers a callback invoked after credentials
// are cleared because the session can no longer be refreshed. The
// hosting application decides what to do (typically: tell the user to
// log in again). Must be set before the authenticator is shared.
func (a *TokenAuthenticator) OnSessionInvalidated(fn func()) {
	a.onInvalidated = fn
}

// Authenticate implements the Authenticator interface. It attaches the
// stored access token as a Bearer Authorization header. When no token
// is stored the request is left untouched.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, req *http.Request) error {
	if token, ok := a.store.Get(KeyAccessToken); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// ForceRefresh implements the Authenticator interface. Concurrent
// callers share one refresh request via singleflight; every caller
// observes the same outcome.
func (a *TokenAuthenticator) ForceRefresh(ctx context.Context) error {
	_, err, _ := a.refreshGroup.Do("refresh", func() (any, error) {
		return nil, a.refresh(ctx)
	})
	return err
}

func (a *TokenAuthenticator) refresh(ctx context.Context) error {
	refreshToken, ok := a.store.Get(KeyRefreshToken)
	if !ok || refreshToken == "" {
		a.invalidate()
		return fmt.Errorf("no refresh token stored: %w", ErrSessionInvalid)
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		// A refresh that cannot complete leaves the session in an
		// unknown state; stale tokens must never be reused.
		a.invalidate()
		return fmt.Errorf("refresh request failed: %w: %w", err, ErrSessionInvalid)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		a.invalidate()
		return fmt.Errorf("failed to read refresh response: %w: %w", err, ErrSessionInvalid)
	}

	var parsed refreshResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			a.invalidate()
			return fmt.Errorf("failed to parse refresh response: %w: %w", err, ErrSessionInvalid)
		}
	}

	if resp.StatusCode != http.StatusOK || parsed.Data.AccessToken == "" {
		a.invalidate()
		msg := parsed.Message
		if msg == "" {
			msg = truncateBody(respBody, 200)
		}
		return fmt.Errorf("token refresh rejected (status %d): %s: %w", resp.StatusCode, msg, ErrSessionInvalid)
	}

	// Persistence failures are terminal too: a token that cannot be
	// stored leaves the session half-updated, so clear it entirely.
	if err := a.store.Set(KeyAccessToken, parsed.Data.AccessToken); err != nil {
		a.invalidate()
		return fmt.Errorf("failed to store access token: %w: %w", err, ErrSessionInvalid)
	}
	// Refresh tokens rotate when the backend issues a new one
	if parsed.Data.RefreshToken != "" {
		if err := a.store.Set(KeyRefreshToken, parsed.Data.RefreshToken); err != nil {
			a.invalidate()
			return fmt.Errorf("failed to store refresh token: %w: %w", err, ErrSessionInvalid)
		}
	}

	return nil
}

// Invalidate implements the Authenticator interface.
func (a *TokenAuthenticator) Invalidate() {
	a.invalidate()
}

// invalidate clears both tokens and notifies the host application.
func (a *TokenAuthenticator) invalidate() {
	a.store.Clear(KeyAccessToken)
	a.store.Clear(KeyRefreshToken)
	if a.onInvalidated != nil {
		a.onInvalidated()
	}
}

func truncateBody(b []byte, maxLen int) string {
	s := string(b)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}
