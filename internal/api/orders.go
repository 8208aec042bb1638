package api

import (
	"context"
	"fmt"
	"net/url"
)

// CreateOrderRequest is the payload for CreateOrder. The backend owns
// all money math; the client submits addresses and a payment method.
type CreateOrderRequest struct {
	PaymentMethod   string   `json:"paymentMethod"` // STRIPE, PAYPAL, COD
	ShippingAddress Address  `json:"shippingAddress"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`
	CustomerNotes   string   `json:"customerNotes,omitempty"`
}

// CreateOrder places an order from the current cart.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	if _, err := c.post(ctx, "/api/v1/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Orders lists the authenticated user's orders.
func (c *Client) Orders(ctx context.Context, page PageRequest) ([]Order, *Pagination, error) {
	var orders []Order
	pagination, err := c.get(ctx, "/api/v1/orders", page.query(), &orders)
	if err != nil {
		return nil, nil, err
	}
	return orders, pagination, nil
}

// OrderByNumber returns an order by its order number.
func (c *Client) OrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var order Order
	if _, err := c.get(ctx, "/api/v1/orders/"+url.PathEscape(orderNumber), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := c.post(ctx, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), nil, nil, nil)
	return err
}
