package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Cart returns the current cart contents.
func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	var items []CartItem
	if _, err := c.get(ctx, "/api/v1/cart", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart puts quantity units of a product into the cart.
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) (*CartItem, error) {
	q := url.Values{}
	q.Set("productId", strconv.FormatInt(productID, 10))
	q.Set("quantity", strconv.Itoa(quantity))

	var item CartItem
	if _, err := c.post(ctx, "/api/v1/cart/items", q, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItem changes the quantity of an existing cart line.
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*CartItem, error) {
	q := url.Values{}
	q.Set("quantity", strconv.Itoa(quantity))

	var item CartItem
	if _, err := c.put(ctx, fmt.Sprintf("/api/v1/cart/items/%d", itemID), q, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveFromCart deletes a cart line.
func (c *Client) RemoveFromCart(ctx context.Context, itemID int64) error {
	_, err := c.delete(ctx, fmt.Sprintf("/api/v1/cart/items/%d", itemID), nil, nil)
	return err
}

// ClearCart empties the cart.
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.delete(ctx, "/api/v1/cart", nil, nil)
	return err
}

// CartCount returns the number of items in the cart.
func (c *Client) CartCount(ctx context.Context) (int, error) {
	var count int
	if _, err := c.get(ctx, "/api/v1/cart/count", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}
