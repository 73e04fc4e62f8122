package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lyzr/storefront/common/db"
	"github.com/lyzr/storefront/common/models"
)

// AIRepository handles ai_generations, ai_audit_log and settings
type AIRepository struct {
	db db.Querier
}

// NewAIRepository creates a new AI repository
func NewAIRepository(q db.Querier) *AIRepository {
	return &AIRepository{db: q}
}

// SaveGeneration records a successful generation
func (r *AIRepository) SaveGeneration(ctx context.Context, g *models.Generation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ai_generations (id, user_id, product_id, kind, prompt, output, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.UserID, g.ProductID, g.Kind, g.Prompt, g.Output, g.Model, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}
	return nil
}

// SaveAudit records a failed generation attempt
func (r *AIRepository) SaveAudit(ctx context.Context, e *models.AuditEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ai_audit_log (id, user_id, kind, prompt, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UserID, e.Kind, e.Prompt, e.Error, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	return nil
}

// ListGenerations returns a user's most recent generations
func (r *AIRepository) ListGenerations(ctx context.Context, userID string, limit int) ([]models.Generation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, product_id, kind, prompt, output, model, created_at
		FROM ai_generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	gens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Generation, error) {
		var g models.Generation
		err := row.Scan(&g.ID, &g.UserID, &g.ProductID, &g.Kind, &g.Prompt, &g.Output, &g.Model, &g.CreatedAt)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan generations: %w", err)
	}
	return gens, nil
}

// Setting reads one value from the settings table; a missing key is ""
func (r *AIRepository) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return "", nil
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}
