package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lyzr/storefront/common/db"
	"github.com/lyzr/storefront/common/models"
)

// ReturnRepository handles database operations for returns and refunds
type ReturnRepository struct {
	db TxRunner
}

// NewReturnRepository creates a new return repository
func NewReturnRepository(db TxRunner) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// Create inserts a return and its items
func (r *ReturnRepository) Create(ctx context.Context, ret *models.Return) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO returns (id, order_id, user_id, status, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ret.ID, ret.OrderID, ret.UserID, ret.Status, ret.Reason, ret.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create return: %w", err)
		}

		for _, item := range ret.Items {
			_, err := tx.Exec(ctx,
				`INSERT INTO return_items (return_id, product_id, quantity) VALUES ($1, $2, $3)`,
				ret.ID, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("failed to create return item: %w", err)
			}
		}
		return nil
	})
}

// Get retrieves a return with its items
func (r *ReturnRepository) Get(ctx context.Context, id uuid.UUID) (*models.Return, error) {
	return getReturn(ctx, r.db, id)
}

// List returns a user's returns, newest first
func (r *ReturnRepository) List(ctx context.Context, userID string) ([]models.Return, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM returns WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to scan returns: %w", err)
	}

	returns := make([]models.Return, 0, len(ids))
	for _, id := range ids {
		ret, err := getReturn(ctx, r.db, id)
		if err != nil {
			return nil, err
		}
		returns = append(returns, *ret)
	}
	return returns, nil
}

// ReturnedQuantities sums the quantities of an order already covered by
// requested or approved returns, per product
func (r *ReturnRepository) ReturnedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT ri.product_id, SUM(ri.quantity)
		FROM return_items ri
		JOIN returns rt ON rt.id = ri.return_id
		WHERE rt.order_id = $1 AND rt.status <> $2
		GROUP BY ri.product_id
	`, orderID, models.ReturnRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to sum returned quantities: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID]int{}
	for rows.Next() {
		var id uuid.UUID
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan returned quantity: %w", err)
		}
		out[id] = qty
	}
	return out, rows.Err()
}

// Resolve moves a requested return to approved or rejected. An approval
// records the refund and puts the returned items back in stock.
func (r *ReturnRepository) Resolve(ctx context.Context, id uuid.UUID, to models.ReturnStatus, refund *models.Refund) (*models.Return, error) {
	var ret *models.Return

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE returns SET status = $3, resolved_at = NOW() WHERE id = $1 AND status = $2`,
			id, models.ReturnRequested, to)
		if err != nil {
			return fmt.Errorf("failed to resolve return: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("return %s is no longer %s: %w", id, models.ReturnRequested, ErrConflict)
		}

		ret, err = getReturn(ctx, tx, id)
		if err != nil {
			return err
		}
		if refund == nil {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO refunds (id, return_id, order_id, user_id, amount_cents, currency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, refund.ID, refund.ReturnID, refund.OrderID, refund.UserID, refund.AmountCents, refund.Currency, refund.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create refund: %w", err)
		}

		for _, item := range ret.Items {
			if err := adjustStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ret, nil
}

// ListRefunds returns a user's refunds, newest first
func (r *ReturnRepository) ListRefunds(ctx context.Context, userID string) ([]models.Refund, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, return_id, order_id, user_id, amount_cents, currency, created_at
		FROM refunds
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refunds: %w", err)
	}

	refunds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Refund, error) {
		var rf models.Refund
		err := row.Scan(&rf.ID, &rf.ReturnID, &rf.OrderID, &rf.UserID, &rf.AmountCents, &rf.Currency, &rf.CreatedAt)
		return rf, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan refunds: %w", err)
	}
	return refunds, nil
}

func getReturn(ctx context.Context, q db.Querier, id uuid.UUID) (*models.Return, error) {
	ret := &models.Return{}
	err := q.QueryRow(ctx, `
		SELECT id, order_id, user_id, status, reason, created_at, resolved_at
		FROM returns
		WHERE id = $1
	`, id).Scan(&ret.ID, &ret.OrderID, &ret.UserID, &ret.Status, &ret.Reason, &ret.CreatedAt, &ret.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get return %s: %w", id, notFound(err))
	}

	rows, err := q.Query(ctx,
		`SELECT product_id, quantity FROM return_items WHERE return_id = $1 ORDER BY product_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get return items: %w", err)
	}
	ret.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ReturnItem, error) {
		var it models.ReturnItem
		err := row.Scan(&it.ProductID, &it.Quantity)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan return items: %w", err)
	}

	return ret, nil
}

// TicketRepository handles database operations for support tickets
type TicketRepository struct {
	db db.Querier
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(q db.Querier) *TicketRepository {
	return &TicketRepository{db: q}
}

const ticketColumns = `id, user_id, order_id, subject, message, status, created_at, closed_at`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.OrderID, &t.Subject, &t.Message, &t.Status, &t.CreatedAt, &t.ClosedAt)
	return t, err
}

// Create inserts a ticket
func (r *TicketRepository) Create(ctx context.Context, t *models.Ticket) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tickets (id, user_id, order_id, subject, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.UserID, t.OrderID, t.Subject, t.Message, t.Status, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// Get retrieves a ticket
func (r *TicketRepository) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %s: %w", id, notFound(err))
	}
	return &t, nil
}

// List returns a user's tickets, newest first
func (r *TicketRepository) List(ctx context.Context, userID string) ([]models.Ticket, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	tickets, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Ticket, error) {
		return scanTicket(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tickets: %w", err)
	}
	return tickets, nil
}

// Close marks an open ticket closed
func (r *TicketRepository) Close(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `
		UPDATE tickets SET status = $3, closed_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+ticketColumns,
		id, models.TicketOpen, models.TicketClosed))
	if err != nil {
		if notFound(err) == ErrNotFound {
			return nil, fmt.Errorf("ticket %s is not open: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("failed to close ticket: %w", err)
	}
	return &t, nil
}
