package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/coinpilot/coinpilot/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StrategyRepository handles strategy database operations. All reads and
// writes are scoped by owner; another user's strategies are indistinguishable
// from absent ones.
type StrategyRepository struct {
	db *sql.DB
}

// NewStrategyRepository creates a new strategy repository.
func NewStrategyRepository(db *sql.DB) *StrategyRepository {
	return &StrategyRepository{db: db}
}

const strategyColumns = `id, user_id, name, description, coin, amount, schedule_enabled, schedule_interval, last_run_at, next_run_at, created_at, updated_at`

// CreateStrategy creates a new strategy for a user.
func (r *StrategyRepository) CreateStrategy(ctx context.Context, userID string, req models.CreateStrategyRequest) (*models.Strategy, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount must be a decimal string: %w", err)
	}

	now := time.Now()
	strategy := models.Strategy{
		ID:               uuid.New().String(),
		UserID:           userID,
		Name:             req.Name,
		Description:      req.Description,
		Coin:             strings.ToUpper(strings.TrimSpace(req.Coin)),
		Amount:           amount,
		ScheduleEnabled:  req.ScheduleEnabled,
		ScheduleInterval: req.ScheduleInterval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var nextRunAt *time.Time
	if strategy.ScheduleEnabled {
		next := now.Add(time.Duration(strategy.ScheduleInterval) * time.Minute)
		nextRunAt = &next
		strategy.NextRunAt = nextRunAt
	}

	query := `
		INSERT INTO strategies (` + strategyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		strategy.ID, strategy.UserID, strategy.Name, strategy.Description,
		strategy.Coin, strategy.Amount.String(), strategy.ScheduleEnabled,
		strategy.ScheduleInterval, nil, nextRunAt, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy: %w", err)
	}

	return &strategy, nil
}

// GetStrategy retrieves a strategy by ID, scoped to its owner.
func (r *StrategyRepository) GetStrategy(ctx context.Context, id, ownerID string) (*models.Strategy, error) {
	query := `
		SELECT ` + strategyColumns + `
		FROM strategies
		WHERE id = $1 AND user_id = $2
	`
	return r.scanStrategy(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// ListStrategies returns all strategies owned by a user, newest first.
func (r *StrategyRepository) ListStrategies(ctx context.Context, ownerID string) ([]models.Strategy, error) {
	query := `
		SELECT ` + strategyColumns + `
		FROM strategies
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	strategies := []models.Strategy{}
	for rows.Next() {
		strategy, err := r.scanStrategyRow(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *strategy)
	}

	return strategies, rows.Err()
}

// UpdateStrategy updates an owner's strategy.
func (r *StrategyRepository) UpdateStrategy(ctx context.Context, id, ownerID string, req models.CreateStrategyRequest) (*models.Strategy, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount must be a decimal string: %w", err)
	}

	query := `
		UPDATE strategies
		SET name = $3, description = $4, coin = $5, amount = $6,
		    schedule_enabled = $7, schedule_interval = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, ownerID,
		req.Name, req.Description, strings.ToUpper(strings.TrimSpace(req.Coin)),
		amount.String(), req.ScheduleEnabled, req.ScheduleInterval, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update strategy: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetStrategy(ctx, id, ownerID)
}

// DeleteStrategy removes an owner's strategy and its dependent rows.
func (r *StrategyRepository) DeleteStrategy(ctx context.Context, id, ownerID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetScheduledStrategies claims schedule-enabled strategies that are due,
// advancing next_run_at in the same statement so concurrent scheduler ticks
// never double-claim a strategy.
func (r *StrategyRepository) GetScheduledStrategies(ctx context.Context) ([]models.Strategy, error) {
	query := `
		UPDATE strategies
		SET next_run_at = NOW() + (schedule_interval * INTERVAL '1 minute')
		WHERE schedule_enabled = true
		  AND schedule_interval > 0
		  AND (next_run_at IS NULL OR next_run_at <= NOW())
		RETURNING ` + strategyColumns + `
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to claim scheduled strategies: %w", err)
	}
	defer rows.Close()

	strategies := []models.Strategy{}
	for rows.Next() {
		strategy, err := r.scanStrategyRow(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *strategy)
	}

	return strategies, rows.Err()
}

// UpdateLastRun records when a scheduled strategy last went through the
// pipeline.
func (r *StrategyRepository) UpdateLastRun(ctx context.Context, id string, lastRunAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE strategies SET last_run_at = $2 WHERE id = $1`, id, lastRunAt)
	if err != nil {
		return fmt.Errorf("failed to update last run: %w", err)
	}
	return nil
}

func (r *StrategyRepository) scanStrategy(row *sql.Row) (*models.Strategy, error) {
	var strategy models.Strategy
	var amount string

	err := row.Scan(
		&strategy.ID,
		&strategy.UserID,
		&strategy.Name,
		&strategy.Description,
		&strategy.Coin,
		&amount,
		&strategy.ScheduleEnabled,
		&strategy.ScheduleInterval,
		&strategy.LastRunAt,
		&strategy.NextRunAt,
		&strategy.CreatedAt,
		&strategy.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}

	strategy.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount is not a decimal: %w", err)
	}

	return &strategy, nil
}

func (r *StrategyRepository) scanStrategyRow(rows *sql.Rows) (*models.Strategy, error) {
	var strategy models.Strategy
	var amount string

	err := rows.Scan(
		&strategy.ID,
		&strategy.UserID,
		&strategy.Name,
		&strategy.Description,
		&strategy.Coin,
		&amount,
		&strategy.ScheduleEnabled,
		&strategy.ScheduleInterval,
		&strategy.LastRunAt,
		&strategy.NextRunAt,
		&strategy.CreatedAt,
		&strategy.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan strategy: %w", err)
	}

	strategy.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("stored amount is not a decimal: %w", err)
	}

	return &strategy, nil
}
