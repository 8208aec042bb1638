package api

import (
	"context"
	"fmt"
)

// Categories returns the full category list.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if _, err := c.get(ctx, "/api/v1/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// RootCategories returns top-level categories with their children.
func (c *Client) RootCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if _, err := c.get(ctx, "/api/v1/categories/root", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ActiveCategories returns categories currently visible in the store.
func (c *Client) ActiveCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if _, err := c.get(ctx, "/api/v1/categories/active", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CategoryByID returns a single category.
func (c *Client) CategoryByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	if _, err := c.get(ctx, fmt.Sprintf("/api/v1/categories/%d", id), nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// ChildCategories returns the direct children of a category.
func (c *Client) ChildCategories(ctx context.Context, parentID int64) ([]Category, error) {
	var categories []Category
	if _, err := c.get(ctx, fmt.Sprintf("/api/v1/categories/%d/children", parentID), nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
