package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coinpilot/coinpilot/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationRepository handles notification database operations.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// AddNotification appends a notification to a strategy's feed.
func (r *NotificationRepository) AddNotification(ctx context.Context, strategyID, message, action string, confidence float64, priceAtRecommendation decimal.Decimal) (*models.Notification, error) {
	notification := models.Notification{
		ID:                    uuid.New().String(),
		StrategyID:            strategyID,
		Message:               message,
		Action:                action,
		Confidence:            confidence,
		PriceAtRecommendation: priceAtRecommendation,
		CreatedAt:             time.Now(),
	}

	query := `
		INSERT INTO notifications (id, strategy_id, message, action, confidence, price_at_recommendation, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.StrategyID, notification.Message,
		notification.Action, notification.Confidence,
		notification.PriceAtRecommendation.String(), false, notification.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add notification: %w", err)
	}

	return &notification, nil
}

// ListByStrategy returns a strategy's notifications, newest first.
func (r *NotificationRepository) ListByStrategy(ctx context.Context, strategyID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy_id, message, action, confidence, price_at_recommendation, read, created_at
		FROM notifications
		WHERE strategy_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strategyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var notification models.Notification
		var price string
		err := rows.Scan(
			&notification.ID, &notification.StrategyID, &notification.Message,
			&notification.Action, &notification.Confidence, &price,
			&notification.Read, &notification.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notification.PriceAtRecommendation, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("stored price is not a decimal: %w", err)
		}
		notifications = append(notifications, notification)
	}

	return notifications, rows.Err()
}

// MarkRead flags a notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
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
