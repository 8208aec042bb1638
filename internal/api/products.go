package api

import (
	"context"
	"fmt"
	"net/url"
)

// Products lists catalog products with pagination and optional filters.
func (c *Client) Products(ctx context.Context, page PageRequest, filters ProductFilters) ([]Product, *Pagination, error) {
	q := page.query()
	filters.apply(q)

	var products []Product
	pagination, err := c.get(ctx, "/api/v1/products", q, &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

// Product returns a single product by id.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if _, err := c.get(ctx, fmt.Sprintf("/api/v1/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductBySKU returns a single product by SKU.
func (c *Client) ProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var product Product
	if _, err := c.get(ctx, "/api/v1/products/sku/"+url.PathEscape(sku), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// SearchProducts searches the catalog by keyword.
func (c *Client) SearchProducts(ctx context.Context, keyword string, page PageRequest) ([]Product, *Pagination, error) {
	q := page.query()
	q.Set("keyword", keyword)

	var products []Product
	pagination, err := c.get(ctx, "/api/v1/products/search", q, &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

// FeaturedProducts lists featured products.
func (c *Client) FeaturedProducts(ctx context.Context, page PageRequest) ([]Product, *Pagination, error) {
	var products []Product
	pagination, err := c.get(ctx, "/api/v1/products/featured", page.query(), &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}

// ProductsByCategory lists products belonging to a category.
func (c *Client) ProductsByCategory(ctx context.Context, categoryID int64, page PageRequest) ([]Product, *Pagination, error) {
	var products []Product
	pagination, err := c.get(ctx, fmt.Sprintf("/api/v1/products/category/%d", categoryID), page.query(), &products)
	if err != nil {
		return nil, nil, err
	}
	return products, pagination, nil
}
