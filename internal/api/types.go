package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// User represents a storefront account.
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	FullName      string    `json:"fullName"`
	Phone         string    `json:"phone,omitempty"`
	Role          string    `json:"role"`   // USER or ADMIN
	Status        string    `json:"status"` // ACTIVE, INACTIVE, SUSPENDED
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProductImages groups the main image and the gallery for a product.
type ProductImages struct {
	Main    string   `json:"main,omitempty"`
	Gallery []string `json:"gallery,omitempty"`
}

// Product represents a catalog item.
type Product struct {
	ID            int64              `json:"id"`
	CategoryID    int64              `json:"categoryId"`
	CategoryName  string             `json:"categoryName"`
	SKU           string             `json:"sku"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Features      []string           `json:"features,omitempty"`
	Price         float64            `json:"price"`
	Currency      string             `json:"currency"`
	Prices        map[string]float64 `json:"prices,omitempty"`
	StockQuantity int                `json:"stockQuantity"`
	WeightGrams   int                `json:"weightGrams,omitempty"`
	Status        string             `json:"status"` // ACTIVE, INACTIVE, OUT_OF_STOCK
	IsFeatured    bool               `json:"isFeatured"`
	InStock       bool               `json:"inStock"`
	Images        *ProductImages     `json:"images,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// Category represents a node in the catalog category tree.
type Category struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	ParentID     int64      `json:"parentId,omitempty"`
	Children     []Category `json:"children,omitempty"`
	SortOrder    int        `json:"sortOrder"`
	IsActive     bool       `json:"isActive"`
	ProductCount int        `json:"productCount,omitempty"`
}

// CartItem is a single product line in the cart.
type CartItem struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"productId"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `json:"quantity"`
	Price     float64  `json:"price"`
	Total     float64  `json:"total"`
}

// Address is a shipping or billing address.
type Address struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	Country      string `json:"country"`
	PostalCode   string `json:"postalCode"`
}

// OrderItem is a purchased product line within an order.
type OrderItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"productId"`
	ProductSKU  string  `json:"productSku"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// Order represents a placed order.
type Order struct {
	ID              int64       `json:"id"`
	OrderNumber     string      `json:"orderNumber"`
	UserID          int64       `json:"userId"`
	Status          string      `json:"status"`        // PENDING, PROCESSING, SHIPPED, DELIVERED, CANCELLED
	PaymentMethod   string      `json:"paymentMethod"` // STRIPE, PAYPAL, COD
	PaymentStatus   string      `json:"paymentStatus"` // PENDING, PAID, FAILED, REFUNDED
	Currency        string      `json:"currency"`
	Subtotal        float64     `json:"subtotal"`
	ShippingFee     float64     `json:"shippingFee"`
	Tax             float64     `json:"tax"`
	Total           float64     `json:"total"`
	ShippingAddress Address     `json:"shippingAddress"`
	BillingAddress  *Address    `json:"billingAddress,omitempty"`
	Items           []OrderItem `json:"items"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	Carrier         string      `json:"carrier,omitempty"`
	CustomerNotes   string      `json:"customerNotes,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	PaidAt          *time.Time  `json:"paidAt,omitempty"`
	ShippedAt       *time.Time  `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time  `json:"deliveredAt,omitempty"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	User         *User  `json:"user,omitempty"`
}

// FieldError describes a single rejected field in a validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorDetails is the structured error block of the response envelope.
type ErrorDetails struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	FieldErrors []FieldError `json:"fieldErrors,omitempty"`
}

// Pagination is the metadata returned alongside list responses.
type Pagination struct {
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	HasNext       bool `json:"hasNext"`
	HasPrevious   bool `json:"hasPrevious"`
}

// envelope is the fixed response shape every backend endpoint uses.
// Data is decoded lazily into the caller's typed result.
type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *ErrorDetails   `json:"error,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// PageRequest carries pagination and sorting parameters for list
// endpoints. Zero values are omitted from the query string.
type PageRequest struct {
	Page int
	Size int
	Sort string // e.g. "createdAt,desc"
}

// ProductFilters narrows product list queries.
type ProductFilters struct {
	CategoryID int64
	MinPrice   float64
	MaxPrice   float64
	InStock    bool
	IsFeatured bool
	Keyword    string
}

// APIError represents a failed API call.
type APIError struct {
	StatusCode  int
	Code        string
	Message     string
	FieldErrors []FieldError
	Retryable   bool // 429 or 5xx; safe to re-dispatch after backoff
	AuthFailure bool // terminal authentication failure; re-login required
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NewAPIError creates an APIError for the given status code.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Retryable:  statusCode == http.StatusTooManyRequests || (statusCode >= 500 && statusCode < 600),
	}
}
