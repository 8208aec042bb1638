package api

import "context"

// LoginRequest is the credentials payload for Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the payload for Register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// Login authenticates with email and password. The caller is
// responsible for persisting the returned tokens.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if _, err := c.post(ctx, "/api/v1/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account and returns its initial session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if _, err := c.post(ctx, "/api/v1/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the current session server-side. The caller
// clears the credential store afterwards.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.post(ctx, "/api/v1/auth/logout", nil, nil, nil)
	return err
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{
		"oldPassword": oldPassword,
		"newPassword": newPassword,
	}
	_, err := c.post(ctx, "/api/v1/auth/change-password", nil, body, nil)
	return err
}

// ForgotPassword requests a password reset mail for email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.post(ctx, "/api/v1/auth/forgot-password", nil, map[string]string{"email": email}, nil)
	return err
}

// ResetPassword completes a password reset using the mailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{
		"token":       token,
		"newPassword": newPassword,
	}
	_, err := c.post(ctx, "/api/v1/auth/reset-password", nil, body, nil)
	return err
}

// VerifyEmail confirms an account's email address.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	_, err := c.post(ctx, "/api/v1/auth/verify-email", nil, map[string]string{"token": token}, nil)
	return err
}
