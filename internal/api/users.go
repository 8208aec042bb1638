package api

import (
	"context"
	"fmt"
)

// UpdateUserRequest is the payload for UpdateCurrentUser.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// CurrentUser returns the profile of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if _, err := c.get(ctx, "/api/v1/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateCurrentUser updates the authenticated user's profile.
func (c *Client) UpdateCurrentUser(ctx context.Context, req UpdateUserRequest) (*User, error) {
	var user User
	if _, err := c.put(ctx, "/api/v1/users/me", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByID returns a user by id (admin only).
func (c *Client) UserByID(ctx context.Context, id int64) (*User, error) {
	var user User
	if _, err := c.get(ctx, fmt.Sprintf("/api/v1/users/%d", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
