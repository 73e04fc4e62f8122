package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lyzr/storefront/common/db"
	"github.com/lyzr/storefront/common/models"
)

// CartRepository handles database operations for cart_items
type CartRepository struct {
	db db.Querier
}

// NewCartRepository creates a new cart repository
func NewCartRepository(q db.Querier) *CartRepository {
	return &CartRepository{db: q}
}

// Items returns a user's cart lines joined with current product data
func (r *CartRepository) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	return cartItems(ctx, r.db, userID)
}

func cartItems(ctx context.Context, q db.Querier, userID string) ([]models.CartItem, error) {
	query := `
		SELECT c.product_id, p.name, p.price_cents, c.quantity,
		       COALESCE(NULLIF(p.thumbnail_url, ''), p.image_url),
		       CASE WHEN p.active THEN p.stock ELSE 0 END
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.product_id
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var it models.CartItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPriceCents, &it.Quantity, &it.ImageURL, &it.Available); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart: %w", err)
	}

	return items, nil
}

// Add increases the quantity of a line, creating it if absent
func (r *CartRepository) Add(ctx context.Context, userID string, productID uuid.UUID, quantity int) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`

	if _, err := r.db.Exec(ctx, query, userID, productID, quantity); err != nil {
		return fmt.Errorf("failed to add to cart: %w", err)
	}
	return nil
}

// SetQuantity replaces the quantity of an existing line
func (r *CartRepository) SetQuantity(ctx context.Context, userID string, productID uuid.UUID, quantity int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", productID, ErrNotFound)
	}
	return nil
}

// Remove deletes one line
func (r *CartRepository) Remove(ctx context.Context, userID string, productID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", productID, ErrNotFound)
	}
	return nil
}

// Clear empties a user's cart
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return clearCart(ctx, r.db, userID)
}

func clearCart(ctx context.Context, q db.Querier, userID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
