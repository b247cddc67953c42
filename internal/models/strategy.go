package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Strategy represents a user's coin holding together with a natural-language
// investment preference. The advisory pipeline turns the preference into a
// hold/swap recommendation for the holding.
type Strategy struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"` // Free-text investment preference
	Coin             string          `json:"coin"`        // Current holding symbol
	Amount           decimal.Decimal `json:"amount"`
	ScheduleEnabled  bool            `json:"schedule_enabled"`
	ScheduleInterval int             `json:"schedule_interval"` // Interval in minutes
	LastRunAt        *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt        *time.Time      `json:"next_run_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CreateStrategyRequest represents the request to create or update a strategy
type CreateStrategyRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Coin             string `json:"coin"`
	Amount           string `json:"amount"`
	ScheduleEnabled  bool   `json:"schedule_enabled"`
	ScheduleInterval int    `json:"schedule_interval"`
}

// Validate checks the request for required fields and a parseable amount.
func (r CreateStrategyRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if strings.TrimSpace(r.Coin) == "" {
		return fmt.Errorf("coin is required")
	}
	if _, err := decimal.NewFromString(r.Amount); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	if r.ScheduleEnabled && r.ScheduleInterval < 1 {
		return fmt.Errorf("schedule_interval must be at least 1 minute when scheduling is enabled")
	}
	return nil
}

// Notification surfaces a committee decision to the strategy's feed.
type Notification struct {
	ID                    string          `json:"id"`
	StrategyID            string          `json:"strategy_id"`
	Message               string          `json:"message"`
	Action                string          `json:"action"`
	Confidence            float64         `json:"confidence"`
	PriceAtRecommendation decimal.Decimal `json:"price_at_recommendation"`
	Read                  bool            `json:"read"`
	CreatedAt             time.Time       `json:"created_at"`
}
