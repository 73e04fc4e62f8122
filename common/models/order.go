package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a shopper's cart, joined with current product data
type CartItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	ImageURL       string    `json:"image_url,omitempty"`
	Available      int       `json:"available"`
}

// Cart is a shopper's cart
type Cart struct {
	UserID     string     `json:"user_id"`
	Items      []CartItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

// AddCartItemRequest is the body of POST /cart/items
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// UpdateCartItemRequest is the body of PUT /cart/items/:productId
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
	OrderPaid:    {OrderShipped, OrderCancelled},
	OrderShipped: {OrderDelivered},
}

// CanTransition reports whether an order may move from s to next
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether a shopper may still cancel
func (s OrderStatus) Cancellable() bool {
	return s.CanTransition(OrderCancelled)
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Order is a placed order
// Maps to: orders table (+ order_items)
type Order struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"user_id"`
	Status     OrderStatus `db:"status" json:"status"`
	TotalCents int64       `db:"total_cents" json:"total_cents"`
	Currency   string      `db:"currency" json:"currency"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem is a price snapshot of a product at checkout
type OrderItem struct {
	ProductID      uuid.UUID `db:"product_id" json:"product_id"`
	Name           string    `db:"name" json:"name"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	Quantity       int       `db:"quantity" json:"quantity"`
}

// UpdateOrderStatusRequest is the body of PUT /orders/:id/status
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// Order event types
const (
	EventOrderPlaced        = "order.placed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published on the order.events topic
type OrderEvent struct {
	Type    string      `json:"type"` // order.placed | order.cancelled | order.status_changed
	OrderID uuid.UUID   `json:"order_id"`
	UserID  string      `json:"user_id"`
	Status  OrderStatus `json:"status"`
	// Products whose stock changed
	ProductIDs []uuid.UUID `json:"product_ids,omitempty"`
}
