package auth

import (
	"context"
	"errors"
	"net/http"
)

// DefaultLanguage is the Accept-Language tag used when no preference
// is stored.
const DefaultLanguage = "zh-CN"

// ErrSessionInvalid indicates that the stored credentials can no longer
// be used and the user must log in again. The credential store has
// already been cleared when this error is returned.
var ErrSessionInvalid = errors.New("session invalid: re-authentication required")

// Authenticator decorates outgoing requests with credentials and
// refreshes them after an authorization failure.
type Authenticator interface {
	// Authenticate adds the Authorization header to an HTTP request.
	// A missing access token is not an error; unauthenticated requests
	// (login, register) are allowed to proceed and it is the server's
	// job to reject them.
	Authenticate(ctx context.Context, req *http.Request) error

	// ForceRefresh exchanges the stored refresh token for a new access
	// token. Call this after receiving a 401 Unauthorized response.
	// Returns ErrSessionInvalid (wrapped) when no usable refresh token
	// remains; credentials are cleared before returning.
	ForceRefresh(ctx context.Context) error

	// Invalidate clears stored credentials and signals the host
	// application that re-authentication is required. Used when a
	// request still fails authorization after a successful refresh.
	Invalidate()
}
