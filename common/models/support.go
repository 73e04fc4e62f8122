package models

import (
	"time"

	"github.com/google/uuid"
)

// ReturnStatus is the state of a return request
type ReturnStatus string

const (
	ReturnRequested ReturnStatus = "requested"
	ReturnApproved  ReturnStatus = "approved"
	ReturnRejected  ReturnStatus = "rejected"
)

// Return is a shopper's request to send items back
// Maps to: returns table (+ return_items)
type Return struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	OrderID    uuid.UUID    `db:"order_id" json:"order_id"`
	UserID     string       `db:"user_id" json:"user_id"`
	Status     ReturnStatus `db:"status" json:"status"`
	Reason     string       `db:"reason" json:"reason"`
	Items      []ReturnItem `json:"items"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ReturnItem is a quantity of one ordered product
type ReturnItem struct {
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
}

// CreateReturnRequest is the body of POST /returns
type CreateReturnRequest struct {
	OrderID uuid.UUID    `json:"order_id"`
	Reason  string       `json:"reason"`
	Items   []ReturnItem `json:"items"`
}

// Refund is money issued back for an approved return
// Maps to: refunds table
type Refund struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ReturnID    uuid.UUID `db:"return_id" json:"return_id"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
	Currency    string    `db:"currency" json:"currency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TicketStatus is the state of a support ticket
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is a customer support ticket
// Maps to: tickets table
type Ticket struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	OrderID   *uuid.UUID   `db:"order_id" json:"order_id,omitempty"`
	Subject   string       `db:"subject" json:"subject"`
	Message   string       `db:"message" json:"message"`
	Status    TicketStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	ClosedAt  *time.Time   `db:"closed_at" json:"closed_at,omitempty"`
}

// CreateTicketRequest is the body of POST /tickets
type CreateTicketRequest struct {
	OrderID *uuid.UUID `json:"order_id,omitempty"`
	Subject string     `json:"subject"`
	Message string     `json:"message"`
}
