package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/device"
	"github.com/lyzr/storefront/common/models"
	"github.com/lyzr/storefront/common/requestqueue"
)

// ShopClient handles communication with the storefront API
// It uses context to pass the shopper ID and other metadata
type ShopClient struct {
	baseURL string
	http    *HTTPClient
	queue   *requestqueue.Queue
	logger  Logger
}

// ShopOption configures a ShopClient
type ShopOption func(*shopOptions)

type shopOptions struct {
	httpClient *http.Client
	queue      *requestqueue.Queue
}

// WithHTTPClient overrides the underlying http.Client
func WithHTTPClient(client *http.Client) ShopOption {
	return func(o *shopOptions) { o.httpClient = client }
}

// WithQueue shares an existing request queue instead of creating one
func WithQueue(q *requestqueue.Queue) ShopOption {
	return func(o *shopOptions) { o.queue = q }
}

// NewShopClient creates a client whose concurrency and timeout follow cfg
func NewShopClient(baseURL string, cfg device.AdaptiveConfig, logger Logger, opts ...ShopOption) *ShopClient {
	o := shopOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	if o.queue == nil {
		o.queue = requestqueue.New(cfg.MaxConcurrentRequests, requestqueue.WithName("api"))
	}

	return &ShopClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(o.httpClient, o.queue, cfg.RequestTimeout, logger),
		queue:   o.queue,
		logger:  logger,
	}
}

// Queue returns the request queue calls are admitted through
func (c *ShopClient) Queue() *requestqueue.Queue {
	return c.queue
}

func (c *ShopClient) url(format string, args ...interface{}) string {
	return c.baseURL + "/api/v1" + fmt.Sprintf(format, args...)
}

// Health checks the API is up
func (c *ShopClient) Health(ctx context.Context) error {
	return c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/health", nil, nil)
}

// ========================================================================
// Products
// ========================================================================

// ListProducts returns a page of products matching q
func (c *ShopClient) ListProducts(ctx context.Context, q models.ProductQuery) (*models.List[models.Product], error) {
	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	endpoint := c.url("/products")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var out models.List[models.Product]
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProduct fetches one product
func (c *ShopClient) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var out models.Product
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/products/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct adds a product to the catalog
func (c *ShopClient) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	var out models.Product
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/products"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchProduct applies an RFC 6902 JSON Patch to a product
func (c *ShopClient) PatchProduct(ctx context.Context, id uuid.UUID, patch json.RawMessage) (*models.Product, error) {
	var out models.Product
	if err := c.http.Do(ctx, http.MethodPatch, c.url("/products/%s", id), "application/json-patch+json", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes a product
func (c *ShopClient) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return c.http.DoJSON(ctx, http.MethodDelete, c.url("/products/%s", id), nil, nil)
}

// ========================================================================
// Cart
// ========================================================================

// GetCart returns the shopper's cart
func (c *ShopClient) GetCart(ctx context.Context) (*models.Cart, error) {
	var out models.Cart
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/cart"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddToCart adds quantity of a product to the cart
func (c *ShopClient) AddToCart(ctx context.Context, productID uuid.UUID, quantity int) (*models.Cart, error) {
	var out models.Cart
	req := models.AddCartItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/cart/items"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCartItem sets the quantity of a line; 0 removes it
func (c *ShopClient) UpdateCartItem(ctx context.Context, productID uuid.UUID, quantity int) (*models.Cart, error) {
	var out models.Cart
	req := models.UpdateCartItemRequest{Quantity: quantity}
	if err := c.http.DoJSON(ctx, http.MethodPut, c.url("/cart/items/%s", productID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromCart removes a line from the cart
func (c *ShopClient) RemoveFromCart(ctx context.Context, productID uuid.UUID) (*models.Cart, error) {
	var out models.Cart
	if err := c.http.DoJSON(ctx, http.MethodDelete, c.url("/cart/items/%s", productID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCart empties the cart
func (c *ShopClient) ClearCart(ctx context.Context) error {
	return c.http.DoJSON(ctx, http.MethodDelete, c.url("/cart"), nil, nil)
}

// ========================================================================
// Orders
// ========================================================================

// Checkout turns the cart into an order
func (c *ShopClient) Checkout(ctx context.Context) (*models.Order, error) {
	var out models.Order
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/orders"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns the shopper's orders, newest first
func (c *ShopClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out models.List[models.Order]
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/orders"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetOrder fetches one order
func (c *ShopClient) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var out models.Order
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/orders/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder cancels a pending or paid order
func (c *ShopClient) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var out models.Order
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url("/orders/%s/cancel", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrderStatus moves an order along its lifecycle
func (c *ShopClient) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	var out models.Order
	req := models.UpdateOrderStatusRequest{Status: status}
	if err := c.http.DoJSON(ctx, http.MethodPut, c.url("/orders/%s/status", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
