package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tradecraft/storefront-cli/internal/auth"
	"github.com/tradecraft/storefront-cli/internal/backoff"
	"github.com/tradecraft/storefront-cli/internal/logging"
)

// DefaultBaseURL is the local development backend.
const DefaultBaseURL = "http://localhost:8080"

// Client is the typed API client for the TradeCraft backend. Every
// request carries Accept-Language (and, when a token is stored,
// Authorization); a 401 response triggers exactly one token refresh
// and replay before the failure becomes terminal.
type Client struct {
	httpClient *http.Client
	auth       auth.Authenticator
	store      auth.Store
	backoff    *backoff.GlobalBackoff
	baseURL    string
}

// NewClient creates a new API client.
// If httpClient is nil, a default client with 30s timeout is created.
// bo may be nil to disable backoff coordination.
func NewClient(httpClient *http.Client, authenticator auth.Authenticator, store auth.Store, bo *backoff.GlobalBackoff, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		auth:       authenticator,
		store:      store,
		backoff:    bo,
		baseURL:    baseURL,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds a decorated request. Decoration is a pure function
// of the credential store: Content-Type/Accept, Accept-Language (stored
// preference or the default), and Authorization when a token exists.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	language := auth.DefaultLanguage
	if lang, ok := c.store.Get(auth.KeyLanguage); ok && lang != "" {
		language = lang
	}
	req.Header.Set("Accept-Language", language)

	if err := c.auth.Authenticate(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}
	return req, nil
}

// doRequest dispatches one logical request through the pipeline.
// The body is captured up front so the request can be replayed after a
// token refresh. Non-401 error statuses pass through untouched; network
// failures are never treated as authorization failures.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*envelope, error) {
	if c.backoff != nil {
		if err := c.backoff.WaitIfNeeded(ctx); err != nil {
			return nil, err
		}
	}

	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	logging.Debug("API request: %s %s", method, rawURL)

	req, err := c.newRequest(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Error("request failed: %s %s - %v", method, rawURL, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	logging.Debug("API response: %s %s -> %d", method, rawURL, resp.StatusCode)

	// 401: refresh once and replay. The retried flag lives in this
	// frame, so a single logical request can never loop.
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()

		if err := c.auth.ForceRefresh(ctx); err != nil {
			logging.Error("token refresh failed: %v", err)
			apiErr := NewAPIError(http.StatusUnauthorized, fmt.Sprintf("authentication failed: %v", err))
			apiErr.AuthFailure = true
			return nil, apiErr
		}

		// Rebuild from the captured body so the replay carries the new
		// access token written by the refresh.
		req, err = c.newRequest(ctx, method, rawURL, body)
		if err != nil {
			return nil, err
		}
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("retry request failed: %w", err)
		}
		logging.Debug("API replay: %s %s -> %d", method, rawURL, resp.StatusCode)

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			c.auth.Invalidate()
			apiErr := NewAPIError(http.StatusUnauthorized, "authentication failed after token refresh")
			apiErr.AuthFailure = true
			return nil, apiErr
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		if c.backoff != nil {
			c.backoff.ReportError()
		}
		return nil, envelopeError(resp.StatusCode, respBody)
	}

	if resp.StatusCode >= 400 {
		return nil, envelopeError(resp.StatusCode, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		logging.Error("failed to parse response from %s (status %d): %s",
			rawURL, resp.StatusCode, truncateString(string(respBody), 2000))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if !env.Success {
		apiErr := NewAPIError(resp.StatusCode, env.Message)
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			if apiErr.Message == "" {
				apiErr.Message = env.Error.Message
			}
			apiErr.FieldErrors = env.Error.FieldErrors
		}
		return nil, apiErr
	}

	if c.backoff != nil {
		c.backoff.ReportSuccess()
	}
	return &env, nil
}

// envelopeError converts an error-status response body to an APIError,
// preserving the backend's code/message/fieldErrors when the body is a
// well-formed envelope.
func envelopeError(statusCode int, body []byte) *APIError {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Message != "" || env.Error != nil) {
		apiErr := NewAPIError(statusCode, env.Message)
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			if apiErr.Message == "" {
				apiErr.Message = env.Error.Message
			}
			apiErr.FieldErrors = env.Error.FieldErrors
		}
		return apiErr
	}
	return NewAPIError(statusCode, fmt.Sprintf("API error (status %d): %s", statusCode, truncateString(string(body), 500)))
}

// call performs a request and decodes the envelope's data field into
// out (skipped when out is nil). Returns pagination metadata for list
// endpoints, nil otherwise.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) (*Pagination, error) {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	env, err := c.doRequest(ctx, method, path, query, encoded)
	if err != nil {
		return nil, err
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Pagination, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (*Pagination, error) {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body, out any) (*Pagination, error) {
	return c.call(ctx, http.MethodPost, path, query, body, out)
}

func (c *Client) put(ctx context.Context, path string, query url.Values, body, out any) (*Pagination, error) {
	return c.call(ctx, http.MethodPut, path, query, body, out)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values, out any) (*Pagination, error) {
	return c.call(ctx, http.MethodDelete, path, query, nil, out)
}

// query converts a PageRequest to query parameters, omitting zero values.
func (p PageRequest) query() url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}

// apply adds the filter parameters to an existing query.
func (f ProductFilters) apply(q url.Values) {
	if f.CategoryID > 0 {
		q.Set("categoryId", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.MinPrice > 0 {
		q.Set("minPrice", strconv.FormatFloat(f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice > 0 {
		q.Set("maxPrice", strconv.FormatFloat(f.MaxPrice, 'f', -1, 64))
	}
	if f.InStock {
		q.Set("inStock", "true")
	}
	if f.IsFeatured {
		q.Set("isFeatured", "true")
	}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}
