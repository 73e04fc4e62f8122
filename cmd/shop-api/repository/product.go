package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lyzr/storefront/common/db"
	"github.com/lyzr/storefront/common/models"
)

const productColumns = `id, sku, name, description, category, price_cents, currency,
	stock, image_url, thumbnail_url, active, created_at, updated_at`

// ProductRepository handles database operations for products
type ProductRepository struct {
	db db.Querier
}

// NewProductRepository creates a new product repository
func NewProductRepository(q db.Querier) *ProductRepository {
	return &ProductRepository{db: q}
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.PriceCents,
		&p.Currency,
		&p.Stock,
		&p.ImageURL,
		&p.ThumbnailURL,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns active products matching category and a name/description
// search, newest first. limit <= 0 returns every match.
func (r *ProductRepository) List(ctx context.Context, category, search string, limit, offset int) ([]models.Product, int, error) {
	where := []string{"active = TRUE"}
	args := []any{}

	if category != "" {
		args = append(args, category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products WHERE " + clause + " ORDER BY created_at DESC, id"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}

// Get retrieves an active product by ID
func (r *ProductRepository) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE id = $1 AND active = TRUE"

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, notFound(err))
	}
	return p, nil
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, sku, name, description, category, price_cents, currency,
			stock, image_url, thumbnail_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.Category,
		p.PriceCents,
		p.Currency,
		p.Stock,
		p.ImageURL,
		p.ThumbnailURL,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update writes every mutable column of an existing product
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET sku = $2, name = $3, description = $4, category = $5, price_cents = $6,
		    currency = $7, stock = $8, image_url = $9, thumbnail_url = $10,
		    active = $11, updated_at = $12
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.Category,
		p.PriceCents,
		p.Currency,
		p.Stock,
		p.ImageURL,
		p.ThumbnailURL,
		p.Active,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update product %s: %w", p.ID, ErrNotFound)
	}

	return nil
}

// Deactivate hides a product from the catalog. Rows are kept because
// order_items reference them.
func (r *ProductRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete product %s: %w", id, ErrNotFound)
	}
	return nil
}

// lockProducts reads products with row locks, keyed by ID. Must run inside a transaction.
func lockProducts(ctx context.Context, q db.Querier, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	rows, err := q.Query(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// adjustStock adds delta to a product's stock
func adjustStock(ctx context.Context, q db.Querier, id uuid.UUID, delta int) error {
	_, err := q.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock of %s: %w", id, err)
	}
	return nil
}
