package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tradecraft/storefront-cli/internal/auth"
	"github.com/tradecraft/storefront-cli/internal/backoff"
	"github.com/tradecraft/storefront-cli/internal/config"
)

// mockRoundTripper intercepts HTTP requests and returns mock responses
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

// createTestClient creates a client with mock HTTP transport and a real
// token authenticator sharing the same transport, so refresh requests
// flow through the handler too.
func createTestClient(store auth.Store, handler func(req *http.Request) (*http.Response, error)) (*Client, *auth.TokenAuthenticator) {
	httpClient := &http.Client{
		Transport: &mockRoundTripper{handler: handler},
		Timeout:   10 * time.Second,
	}
	authenticator := auth.NewTokenAuthenticator(httpClient, "http://backend.test", store)
	client := NewClient(httpClient, authenticator, store, nil, "http://backend.test")
	return client, authenticator
}

func jsonResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func okEnvelope(data string) *http.Response {
	return jsonResponse(200, fmt.Sprintf(`{"success":true,"data":%s}`, data))
}

func seedTokens(t *testing.T, store auth.Store, access, refresh string) {
	t.Helper()
	if access != "" {
		if err := store.Set(auth.KeyAccessToken, access); err != nil {
			t.Fatalf("Failed to seed access token: %v", err)
		}
	}
	if refresh != "" {
		if err := store.Set(auth.KeyRefreshToken, refresh); err != nil {
			t.Fatalf("Failed to seed refresh token: %v", err)
		}
	}
}

func TestClient_DecoratesRequest(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "refresh-1")

	var captured *http.Request
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		captured = req
		return okEnvelope(`{"id":1,"email":"a@b.com"}`), nil
	})

	if _, err := client.CurrentUser(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := captured.Header.Get("Authorization"); got != "Bearer access-1" {
		t.Errorf("Expected Authorization 'Bearer access-1', got %q", got)
	}
	if got := captured.Header.Get("Accept-Language"); got != auth.DefaultLanguage {
		t.Errorf("Expected default Accept-Language %q, got %q", auth.DefaultLanguage, got)
	}
	if got := captured.Header.Get("Accept"); got != "application/json" {
		t.Errorf("Expected Accept application/json, got %q", got)
	}
}

func TestClient_UsesStoredLanguage(t *testing.T) {
	store := auth.NewMemStore()
	store.Set(auth.KeyLanguage, "id")

	var captured *http.Request
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		captured = req
		return okEnvelope(`[]`), nil
	})

	if _, err := client.Categories(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := captured.Header.Get("Accept-Language"); got != "id" {
		t.Errorf("Expected Accept-Language 'id', got %q", got)
	}
}

func TestClient_UserByID(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "")

	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/users/42" {
			t.Errorf("Unexpected path %q", req.URL.Path)
		}
		return okEnvelope(`{"id":42,"email":"admin-target@example.com","role":"USER"}`), nil
	})

	user, err := client.UserByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("Expected user ID 42, got %d", user.ID)
	}
	if user.Email != "admin-target@example.com" {
		t.Errorf("Unexpected email %q", user.Email)
	}
}

func TestClient_NoAuthHeaderWithoutToken(t *testing.T) {
	store := auth.NewMemStore()

	var captured *http.Request
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		captured = req
		return okEnvelope(`[]`), nil
	})

	if _, err := client.Categories(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := captured.Header.Get("Authorization"); got != "" {
		t.Errorf("Expected no Authorization header, got %q", got)
	}
}

func TestClient_DecorationIsIdempotent(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "refresh-1")
	store.Set(auth.KeyLanguage, "en")

	client, _ := createTestClient(store, nil)

	// Same store state must produce identical headers every time
	first, err := client.newRequest(context.Background(), http.MethodGet, "http://backend.test/api/v1/users/me", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := client.newRequest(context.Background(), http.MethodGet, "http://backend.test/api/v1/users/me", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, key := range []string{"Authorization", "Accept-Language", "Accept", "Content-Type"} {
		if first.Header.Get(key) != second.Header.Get(key) {
			t.Errorf("Header %s differs: %q vs %q", key, first.Header.Get(key), second.Header.Get(key))
		}
	}
	if len(first.Header) != len(second.Header) {
		t.Errorf("Header sets differ in size: %d vs %d", len(first.Header), len(second.Header))
	}
}

func TestClient_RefreshAndReplayOn401(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "stale-token", "refresh-1")

	apiCalls := 0
	refreshCalls := 0
	var replayAuth string

	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/auth/refresh") {
			refreshCalls++
			var body struct {
				RefreshToken string `json:"refreshToken"`
			}
			data, _ := io.ReadAll(req.Body)
			json.Unmarshal(data, &body)
			if body.RefreshToken != "refresh-1" {
				t.Errorf("Expected refresh token 'refresh-1', got %q", body.RefreshToken)
			}
			return jsonResponse(200, `{"success":true,"data":{"accessToken":"fresh-token","refreshToken":"refresh-2"}}`), nil
		}

		apiCalls++
		if req.Header.Get("Authorization") == "Bearer stale-token" {
			return jsonResponse(401, `{"success":false,"message":"token expired"}`), nil
		}
		replayAuth = req.Header.Get("Authorization")
		return okEnvelope(`{"id":1,"email":"a@b.com"}`), nil
	})

	user, err := client.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.ID != 1 {
		t.Errorf("Expected user ID 1, got %d", user.ID)
	}

	if apiCalls != 2 {
		t.Errorf("Expected 2 API calls (original + replay), got %d", apiCalls)
	}
	if refreshCalls != 1 {
		t.Errorf("Expected 1 refresh call, got %d", refreshCalls)
	}
	if replayAuth != "Bearer fresh-token" {
		t.Errorf("Expected replay to carry the new token, got %q", replayAuth)
	}

	// Rotated refresh token must be persisted
	if rt, _ := store.Get(auth.KeyRefreshToken); rt != "refresh-2" {
		t.Errorf("Expected rotated refresh token 'refresh-2', got %q", rt)
	}
}

func TestClient_SecondUnauthorizedIsTerminal(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "stale-token", "refresh-1")

	apiCalls := 0
	invalidated := false

	client, authenticator := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/auth/refresh") {
			return jsonResponse(200, `{"success":true,"data":{"accessToken":"fresh-token"}}`), nil
		}
		apiCalls++
		// Server rejects even the refreshed token (e.g. account disabled)
		return jsonResponse(401, `{"success":false,"message":"unauthorized"}`), nil
	})
	authenticator.OnSessionInvalidated(func() { invalidated = true })

	_, err := client.CurrentUser(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if !apiErr.AuthFailure {
		t.Errorf("Expected AuthFailure to be set")
	}
	if apiErr.Retryable {
		t.Errorf("Terminal auth failure must not be retryable")
	}

	if apiCalls != 2 {
		t.Errorf("Expected exactly 2 API calls (no retry loop), got %d", apiCalls)
	}
	if !invalidated {
		t.Errorf("Expected session-invalidated callback to fire")
	}
	if token, ok := store.Get(auth.KeyAccessToken); ok && token != "" {
		t.Errorf("Expected access token to be cleared, got %q", token)
	}
	if token, ok := store.Get(auth.KeyRefreshToken); ok && token != "" {
		t.Errorf("Expected refresh token to be cleared, got %q", token)
	}
}

func TestClient_RefreshFailureIsTerminal(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "stale-token", "bad-refresh")

	apiCalls := 0
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/auth/refresh") {
			return jsonResponse(401, `{"success":false,"message":"refresh token expired"}`), nil
		}
		apiCalls++
		return jsonResponse(401, `{"success":false,"message":"token expired"}`), nil
	})

	_, err := client.CurrentUser(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if !apiErr.AuthFailure {
		t.Errorf("Expected AuthFailure to be set")
	}
	if apiCalls != 1 {
		t.Errorf("Expected 1 API call (no replay after failed refresh), got %d", apiCalls)
	}
	if token, ok := store.Get(auth.KeyAccessToken); ok && token != "" {
		t.Errorf("Expected access token to be cleared, got %q", token)
	}
}

func TestClient_NonAuthErrorsPassThrough(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "refresh-1")

	refreshCalls := 0
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/auth/refresh") {
			refreshCalls++
			return jsonResponse(200, `{"success":true,"data":{"accessToken":"x"}}`), nil
		}
		return jsonResponse(404, `{"success":false,"error":{"code":"PRODUCT_NOT_FOUND","message":"no such product"}}`), nil
	})

	_, err := client.Product(context.Background(), 42)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", apiErr.StatusCode)
	}
	if apiErr.Code != "PRODUCT_NOT_FOUND" {
		t.Errorf("Expected code PRODUCT_NOT_FOUND, got %q", apiErr.Code)
	}
	if apiErr.AuthFailure {
		t.Errorf("404 must not be treated as an auth failure")
	}
	if refreshCalls != 0 {
		t.Errorf("Expected no refresh calls for a 404, got %d", refreshCalls)
	}
	// Credentials survive a non-auth failure
	if token, _ := store.Get(auth.KeyAccessToken); token != "access-1" {
		t.Errorf("Expected access token to survive, got %q", token)
	}
}

func TestClient_NetworkErrorIsNotAuthFailure(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "refresh-1")

	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})

	_, err := client.CurrentUser(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("Network failure must not surface as APIError, got %v", apiErr)
	}
	if token, _ := store.Get(auth.KeyAccessToken); token != "access-1" {
		t.Errorf("Expected credentials to survive a network failure, got %q", token)
	}
}

func TestClient_RateLimitReportsBackoff(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "refresh-1")

	bo := backoff.New(config.BackoffConfig{
		InitialInterval:     10 * time.Millisecond,
		MaxInterval:         50 * time.Millisecond,
		Multiplier:          2.0,
		RandomizationFactor: 0,
	})
	httpClient := &http.Client{
		Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(429, `{"success":false,"message":"rate limited"}`), nil
		}},
	}
	authenticator := auth.NewTokenAuthenticator(httpClient, "http://backend.test", store)
	client := NewClient(httpClient, authenticator, store, bo, "http://backend.test")

	_, err := client.Categories(context.Background())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if !apiErr.Retryable {
		t.Errorf("429 should be retryable")
	}
	if !bo.IsBackingOff() {
		t.Errorf("Expected global backoff to be active after a 429")
	}
}

func TestClient_EnvelopeFailureWithOKStatus(t *testing.T) {
	store := auth.NewMemStore()

	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"success":false,"message":"validation failed","error":{"code":"VALIDATION_ERROR","message":"validation failed","fieldErrors":[{"field":"email","message":"invalid"}]}}`), nil
	})

	_, err := client.Login(context.Background(), LoginRequest{Email: "bad", Password: "x"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected code VALIDATION_ERROR, got %q", apiErr.Code)
	}
	if len(apiErr.FieldErrors) != 1 || apiErr.FieldErrors[0].Field != "email" {
		t.Errorf("Expected one field error for 'email', got %+v", apiErr.FieldErrors)
	}
}

func TestClient_ListPagination(t *testing.T) {
	store := auth.NewMemStore()

	var captured *http.Request
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(200, `{
			"success": true,
			"data": [{"id":1,"sku":"SKU-1","name":"Widget"},{"id":2,"sku":"SKU-2","name":"Gadget"}],
			"pagination": {"page":1,"size":2,"totalElements":10,"totalPages":5,"hasNext":true,"hasPrevious":true}
		}`), nil
	})

	products, pagination, err := client.Products(context.Background(),
		PageRequest{Page: 1, Size: 2}, ProductFilters{MinPrice: 5, InStock: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(products) != 2 {
		t.Errorf("Expected 2 products, got %d", len(products))
	}
	if pagination == nil || !pagination.HasNext || pagination.TotalElements != 10 {
		t.Errorf("Unexpected pagination: %+v", pagination)
	}

	q := captured.URL.Query()
	if q.Get("page") != "1" || q.Get("size") != "2" {
		t.Errorf("Expected page=1&size=2, got %q", captured.URL.RawQuery)
	}
	if q.Get("minPrice") != "5" || q.Get("inStock") != "true" {
		t.Errorf("Expected filter params, got %q", captured.URL.RawQuery)
	}
}

func TestClient_AddToCartUsesQueryParams(t *testing.T) {
	store := auth.NewMemStore()
	seedTokens(t, store, "access-1", "")

	var captured *http.Request
	client, _ := createTestClient(store, func(req *http.Request) (*http.Response, error) {
		captured = req
		return okEnvelope(`{"id":7,"productId":42,"quantity":3}`), nil
	})

	item, err := client.AddToCart(context.Background(), 42, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if item.ID != 7 || item.Quantity != 3 {
		t.Errorf("Unexpected cart item: %+v", item)
	}

	if captured.Method != http.MethodPost {
		t.Errorf("Expected POST, got %s", captured.Method)
	}
	q := captured.URL.Query()
	if q.Get("productId") != "42" || q.Get("quantity") != "3" {
		t.Errorf("Expected productId=42&quantity=3, got %q", captured.URL.RawQuery)
	}
}
