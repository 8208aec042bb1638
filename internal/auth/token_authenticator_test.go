package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newTestAuthenticator(store Store, handler func(req *http.Request) (*http.Response, error)) *TokenAuthenticator {
	httpClient := &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   10 * time.Second,
	}
	return NewTokenAuthenticator(httpClient, "http://backend.test", store)
}

func refreshOK(accessToken, refreshToken string) *http.Response {
	body := map[string]any{
		"success": true,
		"data": map[string]any{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
	}
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(string(data))),
		Header:     make(http.Header),
	}
}

func TestAuthenticate_SetsBearerHeader(t *testing.T) {
	store := NewMemStore()
	store.Set(KeyAccessToken, "token-1")

	a := newTestAuthenticator(store, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://backend.test/api/v1/users/me", nil)
	if err := a.Authenticate(context.Background(), req); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer token-1" {
		t.Errorf("Expected 'Bearer token-1', got %q", got)
	}
}

func TestAuthenticate_NoTokenLeavesRequestUntouched(t *testing.T) {
	a := newTestAuthenticator(NewMemStore(), nil)
	req, _ := http.NewRequest(http.MethodGet, "http://backend.test/api/v1/products", nil)
	if err := a.Authenticate(context.Background(), req); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("Expected no Authorization header, got %q", got)
	}
}

func TestForceRefresh_StoresNewTokens(t *testing.T) {
	store := NewMemStore()
	store.Set(KeyAccessToken, "stale")
	store.Set(KeyRefreshToken, "refresh-1")

	a := newTestAuthenticator(store, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/auth/refresh" {
			t.Errorf("Unexpected path %q", req.URL.Path)
		}
		return refreshOK("fresh", "refresh-2"), nil
	})

	if err := a.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, _ := store.Get(KeyAccessToken); v != "fresh" {
		t.Errorf("Expected access token 'fresh', got %q", v)
	}
	if v, _ := store.Get(KeyRefreshToken); v != "refresh-2" {
		t.Errorf("Expected rotated refresh token 'refresh-2', got %q", v)
	}
}

func TestForceRefresh_ConcurrentCallersShareOneRequest(t *testing.T) {
	store := NewMemStore()
	store.Set(KeyRefreshToken, "refresh-1")

	var refreshCalls atomic.Int64
	release := make(chan struct{})

	a := newTestAuthenticator(store, func(req *http.Request) (*http.Response, error) {
		refreshCalls.Add(1)
		<-release // hold the request open until all callers have piled up
		return refreshOK("fresh", ""), nil
	})

	const callers = 10
	var wg sync.WaitGroup
	started := make(chan struct{}, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			errs[i] = a.ForceRefresh(context.Background())
		}(i)
	}

	for i := 0; i < callers; i++ {
		<-started
	}
	// Give the goroutines a moment to reach the singleflight barrier
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 refresh request, got %d", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("Caller %d got error: %v", i, err)
		}
	}
	if v, _ := store.Get(KeyAccessToken); v != "fresh" {
		t.Errorf("Expected refreshed access token, got %q", v)
	}
}

func TestForceRefresh_NoRefreshTokenInvalidates(t *testing.T) {
	store := NewMemStore()
	store.Set(KeyAccessToken, "stale")

	invalidated := false
	a := newTestAuthenticator(store, func(req *http.Request) (*http.Response, error) {
		t.Error("No HTTP request expected without a refresh token")
		return nil, errors.New("unreachable")
	})
	a.OnSessionInvalidated(func() { invalidated = true })

	err := a.ForceRefresh(context.Background())
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", err)
	}
	if !invalidated {
		t.Error("Expected invalidation callback to fire")
	}
	if _, ok := store.Get(KeyAccessToken); ok {
		t.Error("Expected stale access token to be cleared")
	}
}

func TestForceRefresh_RejectedRefreshInvalidates(t *testing.T) {
	store := NewMemStore()
	store.Set(KeyAccessToken, "stale")
	store.Set(KeyRefreshToken, "expired")

	invalidated := false
	a := newTestAuthenticator(store, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 401,
			Body:       io.NopCloser(strings.NewReader(`{"success":false,"message":"refresh token expired"}`)),
			Header:     make(http.Header),
		}, nil
	})
	a.OnSessionInvalidated(func() { invalidated = true })

	err := a.ForceRefresh(context.Background())
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", err)
	}
	if !invalidated {
		t.Error("Expected invalidation callback to fire")
	}
	if _, ok := store.Get(KeyRefreshToken); ok {
		t.Error("Expected refresh token to be cleared")
	}
}

// brokenStore rejects writes for one key, like a credentials file on a
// full or read-only disk.
type brokenStore struct {
	*MemStore
	failKey string
}

func (s *brokenStore) Set(key, value string) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemStore.Set(key, value)
}

func TestForceRefresh_StoreWriteFailureInvalidates(t *testing.T) {
	mem := NewMemStore()
	mem.Set(KeyAccessToken, "stale")
	mem.Set(KeyRefreshToken, "refresh-1")
	store := &brokenStore{MemStore: mem, failKey: KeyAccessToken}

	invalidated := false
	a := newTestAuthenticator(store, func(req *http.Request) (*http.Response, error) {
		return refreshOK("fresh", "refresh-2"), nil
	})
	a.OnSessionInvalidated(func() { invalidated = true })

	err := a.ForceRefresh(context.Background())
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", err)
	}
	if !invalidated {
		t.Error("Expected invalidation callback to fire")
	}
	// The stale tokens must not survive an unpersistable refresh.
	if _, ok := store.Get(KeyAccessToken); ok {
		t.Error("Expected access token to be cleared")
	}
	if _, ok := store.Get(KeyRefreshToken); ok {
		t.Error("Expected refresh token to be cleared")
	}
}

func TestForceRefresh_NetworkFailureInvalidates(t *testing.T) {
	store := NewMemStore()
	store.Set(KeyRefreshToken, "refresh-1")

	a := newTestAuthenticator(store, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})

	err := a.ForceRefresh(context.Background())
	if !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("Expected ErrSessionInvalid, got %v", err)
	}
	if _, ok := store.Get(KeyRefreshToken); ok {
		t.Error("Expected refresh token to be cleared after failed refresh")
	}
}
