package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/lyzr/storefront/common/db"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when checkout asks for more than is on hand
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart is returned when checking out a cart with no lines
	ErrEmptyCart = errors.New("cart is empty")

	// ErrConflict is returned when a conditional update lost a race
	ErrConflict = errors.New("state changed concurrently")
)

// TxRunner is a Querier that can also open transactions (satisfied by *db.DB)
type TxRunner interface {
	db.Querier
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// notFound maps pgx.ErrNoRows onto ErrNotFound
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
