package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coinpilot/coinpilot/internal/models"
	"github.com/google/uuid"
)

// RecommendationRepository handles recommendation database operations.
type RecommendationRepository struct {
	db *sql.DB
}

// NewRecommendationRepository creates a new recommendation repository.
func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

const recommendationColumns = `id, strategy_id, user_id, action, explanation, active, metadata, created_at`

// SaveRecommendation deactivates any active recommendation for the strategy
// and inserts the new one as active, in a single transaction. At most one
// recommendation per strategy is ever active.
func (r *RecommendationRepository) SaveRecommendation(ctx context.Context, strategyID, userID string, decision models.CommitteeDecision, metadata string) (*models.Recommendation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE recommendations SET active = false WHERE strategy_id = $1 AND active = true`,
		strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate previous recommendation: %w", err)
	}

	rec := models.Recommendation{
		ID:          uuid.New().String(),
		StrategyID:  strategyID,
		UserID:      userID,
		Action:      decision.Recommendation,
		Explanation: decision.Explanation,
		Active:      true,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}

	query := `
		INSERT INTO recommendations (` + recommendationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		rec.ID, rec.StrategyID, rec.UserID, rec.Action, rec.Explanation,
		rec.Active, rec.Metadata, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert recommendation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit recommendation: %w", err)
	}

	return &rec, nil
}

// GetActiveRecommendation returns the strategy's currently active
// recommendation, or ErrNotFound when none exists. Feeds the committee's
// previous-recommendation context.
func (r *RecommendationRepository) GetActiveRecommendation(ctx context.Context, strategyID string) (*models.Recommendation, error) {
	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE strategy_id = $1 AND active = true
	`

	var rec models.Recommendation
	err := r.db.QueryRowContext(ctx, query, strategyID).Scan(
		&rec.ID, &rec.StrategyID, &rec.UserID, &rec.Action, &rec.Explanation,
		&rec.Active, &rec.Metadata, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active recommendation: %w", err)
	}

	return &rec, nil
}

// ListByStrategy returns a strategy's recommendation history, newest first.
func (r *RecommendationRepository) ListByStrategy(ctx context.Context, strategyID string, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + recommendationColumns + `
		FROM recommendations
		WHERE strategy_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strategyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	recs := []models.Recommendation{}
	for rows.Next() {
		var rec models.Recommendation
		err := rows.Scan(
			&rec.ID, &rec.StrategyID, &rec.UserID, &rec.Action, &rec.Explanation,
			&rec.Active, &rec.Metadata, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
