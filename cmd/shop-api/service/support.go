package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

// ReturnRepository is the storage used by ReturnService
type ReturnRepository interface {
	Create(ctx context.Context, ret *models.Return) error
	Get(ctx context.Context, id uuid.UUID) (*models.Return, error)
	List(ctx context.Context, userID string) ([]models.Return, error)
	ReturnedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error)
	Resolve(ctx context.Context, id uuid.UUID, to models.ReturnStatus, refund *models.Refund) (*models.Return, error)
	ListRefunds(ctx context.Context, userID string) ([]models.Refund, error)
}

// OrderReader looks up a single order
type OrderReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// ReturnService handles returns and refunds
type ReturnService struct {
	repo   ReturnRepository
	orders OrderReader
	log    *logger.Logger
}

// NewReturnService creates a new return service
func NewReturnService(repo ReturnRepository, orders OrderReader, log *logger.Logger) *ReturnService {
	return &ReturnService{
		repo:   repo,
		orders: orders,
		log:    log,
	}
}

// Create requests a return of items from a delivered order. Quantities
// already covered by open or approved returns count against the order.
func (s *ReturnService) Create(ctx context.Context, userID string, req models.CreateReturnRequest) (*models.Return, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("reason is required")
	}
	if len(req.Items) == 0 {
		return nil, invalid("at least one item is required")
	}

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", req.OrderID, ErrNotFound)
	}
	if order.Status != models.OrderDelivered {
		return nil, fmt.Errorf("%w: only delivered orders can be returned, order is %s", ErrInvalidTransition, order.Status)
	}

	ordered := make(map[uuid.UUID]int, len(order.Items))
	for _, it := range order.Items {
		ordered[it.ProductID] += it.Quantity
	}
	already, err := s.repo.ReturnedQuantities(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	// Merge duplicate lines before checking
	requested := map[uuid.UUID]int{}
	var productOrder []uuid.UUID
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if _, ok := ordered[it.ProductID]; !ok {
			return nil, invalid("product %s is not part of order %s", it.ProductID, order.ID)
		}
		if _, seen := requested[it.ProductID]; !seen {
			productOrder = append(productOrder, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}

	ret := &models.Return{
		ID:        uuid.New(),
		OrderID:   order.ID,
		UserID:    userID,
		Status:    models.ReturnRequested,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	for _, id := range productOrder {
		if remaining := ordered[id] - already[id]; requested[id] > remaining {
			return nil, invalid("product %s: %d requested but only %d returnable", id, requested[id], remaining)
		}
		ret.Items = append(ret.Items, models.ReturnItem{ProductID: id, Quantity: requested[id]})
	}

	if err := s.repo.Create(ctx, ret); err != nil {
		return nil, err
	}

	s.log.Info("return requested", "return_id", ret.ID, "order_id", order.ID, "user_id", userID)
	return ret, nil
}

// List returns the user's returns
func (s *ReturnService) List(ctx context.Context, userID string) ([]models.Return, error) {
	return s.repo.List(ctx, userID)
}

// Approve accepts a requested return and refunds the returned lines at
// the prices paid
func (s *ReturnService) Approve(ctx context.Context, id uuid.UUID) (*models.Return, *models.Refund, error) {
	ret, err := s.requested(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.orders.Get(ctx, ret.OrderID)
	if err != nil {
		return nil, nil, err
	}
	prices := make(map[uuid.UUID]int64, len(order.Items))
	for _, it := range order.Items {
		prices[it.ProductID] = it.UnitPriceCents
	}

	refund := &models.Refund{
		ID:        uuid.New(),
		ReturnID:  ret.ID,
		OrderID:   ret.OrderID,
		UserID:    ret.UserID,
		Currency:  order.Currency,
		CreatedAt: time.Now().UTC(),
	}
	for _, it := range ret.Items {
		refund.AmountCents += prices[it.ProductID] * int64(it.Quantity)
	}

	resolved, err := s.repo.Resolve(ctx, id, models.ReturnApproved, refund)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("return approved", "return_id", id, "refund_id", refund.ID, "amount_cents", refund.AmountCents)
	return resolved, refund, nil
}

// Reject declines a requested return
func (s *ReturnService) Reject(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	if _, err := s.requested(ctx, id); err != nil {
		return nil, err
	}

	resolved, err := s.repo.Resolve(ctx, id, models.ReturnRejected, nil)
	if err != nil {
		return nil, err
	}

	s.log.Info("return rejected", "return_id", id)
	return resolved, nil
}

// ListRefunds returns the user's refunds
func (s *ReturnService) ListRefunds(ctx context.Context, userID string) ([]models.Refund, error) {
	return s.repo.ListRefunds(ctx, userID)
}

func (s *ReturnService) requested(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	ret, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret.Status != models.ReturnRequested {
		return nil, fmt.Errorf("%w: return is already %s", ErrInvalidTransition, ret.Status)
	}
	return ret, nil
}

// TicketRepository is the storage used by TicketService
type TicketRepository interface {
	Create(ctx context.Context, t *models.Ticket) error
	Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, userID string) ([]models.Ticket, error)
	Close(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

// TicketService handles customer support tickets
type TicketService struct {
	repo   TicketRepository
	orders OrderReader
	log    *logger.Logger
}

// NewTicketService creates a new ticket service
func NewTicketService(repo TicketRepository, orders OrderReader, log *logger.Logger) *TicketService {
	return &TicketService{
		repo:   repo,
		orders: orders,
		log:    log,
	}
}

// Create opens a ticket, optionally about one of the user's orders
func (s *TicketService) Create(ctx context.Context, userID string, req models.CreateTicketRequest) (*models.Ticket, error) {
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	if subject == "" || message == "" {
		return nil, invalid("subject and message are required")
	}

	if req.OrderID != nil {
		order, err := s.orders.Get(ctx, *req.OrderID)
		if err != nil {
			return nil, err
		}
		if order.UserID != userID {
			return nil, fmt.Errorf("order %s: %w", *req.OrderID, ErrNotFound)
		}
	}

	t := &models.Ticket{
		ID:        uuid.New(),
		UserID:    userID,
		OrderID:   req.OrderID,
		Subject:   subject,
		Message:   message,
		Status:    models.TicketOpen,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info("ticket opened", "ticket_id", t.ID, "user_id", userID)
	return t, nil
}

// List returns the user's tickets
func (s *TicketService) List(ctx context.Context, userID string) ([]models.Ticket, error) {
	return s.repo.List(ctx, userID)
}

// Get returns one of the user's tickets
func (s *TicketService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Ticket, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	return t, nil
}

// Close closes one of the user's open tickets
func (s *TicketService) Close(ctx context.Context, userID string, id uuid.UUID) (*models.Ticket, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TicketOpen {
		return nil, fmt.Errorf("%w: ticket is already %s", ErrInvalidTransition, t.Status)
	}

	closed, err := s.repo.Close(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("ticket closed", "ticket_id", id)
	return closed, nil
}
