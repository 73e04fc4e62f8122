package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lyzr/storefront/common/db"
	"github.com/lyzr/storefront/common/models"
)

// OrderRepository handles database operations for orders and order_items
type OrderRepository struct {
	db TxRunner
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db TxRunner) *OrderRepository {
	return &OrderRepository{db: db}
}

// PlaceOrder turns the user's cart into a pending order in one transaction:
// product rows are locked, stock is verified and decremented, prices are
// snapshotted from the locked rows and the cart is emptied.
func (r *OrderRepository) PlaceOrder(ctx context.Context, userID string) (*models.Order, error) {
	var order *models.Order

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		lines, err := cartItems(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]uuid.UUID, len(lines))
		for i, line := range lines {
			ids[i] = line.ProductID
		}
		products, err := lockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		order = &models.Order{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    models.OrderPending,
			Items:     make([]models.OrderItem, 0, len(lines)),
			CreatedAt: now,
			UpdatedAt: now,
		}

		for _, line := range lines {
			p, ok := products[line.ProductID]
			if !ok || !p.Active || p.Stock < line.Quantity {
				return fmt.Errorf("%s: %w", line.Name, ErrInsufficientStock)
			}
			if order.Currency == "" {
				order.Currency = p.Currency
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID:      p.ID,
				Name:           p.Name,
				UnitPriceCents: p.PriceCents,
				Quantity:       line.Quantity,
			})
			order.TotalCents += p.PriceCents * int64(line.Quantity)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO orders (id, user_id, status, total_cents, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, order.ID, order.UserID, order.Status, order.TotalCents, order.Currency, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range order.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, name, unit_price_cents, quantity)
				VALUES ($1, $2, $3, $4, $5)
			`, order.ID, item.ProductID, item.Name, item.UnitPriceCents, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
			if err := adjustStock(ctx, tx, item.ProductID, -item.Quantity); err != nil {
				return err
			}
		}

		return clearCart(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// List returns a user's orders, newest first
func (r *OrderRepository) List(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, status, total_cents, currency, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Items = []models.OrderItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := orderItems(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for orderID, its := range items {
		orders[index[orderID]].Items = its
	}

	return orders, nil
}

// Get retrieves an order with its items
func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return getOrder(ctx, r.db, id)
}

// Transition moves an order from one status to another. The update only
// applies while the order is still in from; restock returns the ordered
// quantities to stock in the same transaction.
func (r *OrderRepository) Transition(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, restock bool) (*models.Order, error) {
	var order *models.Order

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
			id, from, to)
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("order %s is no longer %s: %w", id, from, ErrConflict)
		}

		order, err = getOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		if restock {
			for _, item := range order.Items {
				if err := adjustStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// ListStalePending returns up to limit pending orders created before before,
// oldest first
func (r *OrderRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, models.OrderPending, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan stale orders: %w", err)
	}
	return ids, nil
}

func getOrder(ctx context.Context, q db.Querier, id uuid.UUID) (*models.Order, error) {
	o := &models.Order{}
	err := q.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, currency, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, notFound(err))
	}

	items, err := orderItems(ctx, q, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = []models.OrderItem{}
	}

	return o, nil
}

func orderItems(ctx context.Context, q db.Querier, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, name, unit_price_cents, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, name
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID uuid.UUID
		var it models.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], it)
	}

	return out, rows.Err()
}
