package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/metrics"
	"github.com/lyzr/storefront/common/models"
	"github.com/lyzr/storefront/common/queue"
)

// OrderRepository is the storage used by OrderService
type OrderRepository interface {
	PlaceOrder(ctx context.Context, userID string) (*models.Order, error)
	List(ctx context.Context, userID string) ([]models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, restock bool) (*models.Order, error)
}

// OrderService handles checkout and the order lifecycle
type OrderService struct {
	repo   OrderRepository
	events queue.Queue
	log    *logger.Logger
}

// NewOrderService creates a new order service. events may be nil.
func NewOrderService(repo OrderRepository, events queue.Queue, log *logger.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// Checkout converts the user's cart into a pending order
func (s *OrderService) Checkout(ctx context.Context, userID string) (*models.Order, error) {
	order, err := s.repo.PlaceOrder(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics.RecordOrderPlaced()
	s.publish(ctx, models.EventOrderPlaced, order)

	s.log.Info("order placed",
		"order_id", order.ID,
		"user_id", userID,
		"items", len(order.Items),
		"total_cents", order.TotalCents,
	)
	return order, nil
}

// List returns the user's orders
func (s *OrderService) List(ctx context.Context, userID string) ([]models.Order, error) {
	return s.repo.List(ctx, userID)
}

// Get returns one of the user's orders. Orders of other users are not found.
func (s *OrderService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return order, nil
}

// Cancel cancels a pending or paid order and restores stock
func (s *OrderService) Cancel(ctx context.Context, userID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, fmt.Errorf("%w: %s orders cannot be cancelled", ErrInvalidTransition, order.Status)
	}

	return s.transition(ctx, order, models.OrderCancelled)
}

// UpdateStatus moves an order along pending, paid, shipped, delivered
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, invalid("unknown order status %q", to)
	}

	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, to)
	}

	return s.transition(ctx, order, to)
}

func (s *OrderService) transition(ctx context.Context, order *models.Order, to models.OrderStatus) (*models.Order, error) {
	restock := to == models.OrderCancelled
	updated, err := s.repo.Transition(ctx, order.ID, order.Status, to, restock)
	if err != nil {
		return nil, err
	}

	eventType := models.EventOrderStatusChanged
	if restock {
		eventType = models.EventOrderCancelled
	}
	s.publish(ctx, eventType, updated)

	s.log.Info("order status changed",
		"order_id", order.ID,
		"from", order.Status,
		"to", to,
	)
	return updated, nil
}

// publish emits an order event. Failures are logged; the order is already committed.
func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order) {
	if s.events == nil {
		return
	}

	event := models.OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
	}
	for _, it := range order.Items {
		event.ProductIDs = append(event.ProductIDs, it.ProductID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to encode order event", "order_id", order.ID, "error", err)
		return
	}
	if err := s.events.Publish(ctx, queue.TopicOrderEvents, order.ID.String(), payload); err != nil {
		s.log.Warn("failed to publish order event", "order_id", order.ID, "type", eventType, "error", err)
	}
}
