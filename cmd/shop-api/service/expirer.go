package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/logger"
	"github.com/lyzr/storefront/common/models"
)

const expiryBatchSize = 100

// StaleOrderLister finds pending orders that were never paid
type StaleOrderLister interface {
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}

// OrderExpirer periodically cancels pending orders older than the TTL so
// their reserved stock goes back on sale
type OrderExpirer struct {
	orders   *OrderService
	stale    StaleOrderLister
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger
}

// NewOrderExpirer creates a new expirer
func NewOrderExpirer(orders *OrderService, stale StaleOrderLister, ttl, interval time.Duration, log *logger.Logger) *OrderExpirer {
	return &OrderExpirer{
		orders:   orders,
		stale:    stale,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Start runs ExpireOnce every interval until ctx is done
func (e *OrderExpirer) Start(ctx context.Context) error {
	e.log.Info("order expirer starting",
		"interval", e.interval,
		"pending_ttl", e.ttl)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("order expirer shutting down")
			return ctx.Err()
		case <-ticker.C:
			if _, err := e.ExpireOnce(ctx); err != nil {
				e.log.Error("failed to expire pending orders", "error", err)
			}
		}
	}
}

// ExpireOnce cancels one batch of stale pending orders and returns how many
// were cancelled. Orders paid in the meantime are skipped.
func (e *OrderExpirer) ExpireOnce(ctx context.Context) (int, error) {
	cutoff := e.now().Add(-e.ttl)
	ids, err := e.stale.ListStalePending(ctx, cutoff, expiryBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		_, err := e.orders.Expire(ctx, id)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidTransition):
			e.log.Debug("order left pending before expiry", "order_id", id)
		default:
			return expired, err
		}
	}

	if expired > 0 {
		e.log.Info("expired pending orders", "count", expired, "cutoff", cutoff)
	}
	return expired, nil
}

// Expire cancels a pending order on behalf of the system and restores stock
func (s *OrderService) Expire(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, ErrInvalidTransition
	}
	return s.transition(ctx, order, models.OrderCancelled)
}
