// Package scheduler runs the advisory pipeline for schedule-enabled
// strategies on their configured intervals.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinpilot/coinpilot/internal/advisor"
	"github.com/coinpilot/coinpilot/internal/models"
)

// StrategySource is the slice of strategy persistence the scheduler needs.
type StrategySource interface {
	GetScheduledStrategies(ctx context.Context) ([]models.Strategy, error)
	UpdateLastRun(ctx context.Context, id string, lastRunAt time.Time) error
}

// Adviser runs the pipeline with persistence for one strategy.
type Adviser interface {
	Advise(ctx context.Context, strategy *models.Strategy, sink advisor.ProgressSink) (*models.WorkflowResult, *models.Recommendation, error)
}

// AdvisorScheduler periodically claims due strategies and runs them
// through the advisory pipeline.
type AdvisorScheduler struct {
	strategies    StrategySource
	adviser       Adviser
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
}

// NewAdvisorScheduler creates a scheduler that checks every minute.
func NewAdvisorScheduler(strategies StrategySource, adviser Adviser, logger *slog.Logger) *AdvisorScheduler {
	return &AdvisorScheduler{
		strategies:    strategies,
		adviser:       adviser,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 1 * time.Minute,
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or the
// context is cancelled.
func (s *AdvisorScheduler) Start(ctx context.Context) {
	s.logger.Info("advisor scheduler starting", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately so a restart does not delay overdue strategies.
	s.runDueStrategies(ctx)

	for {
		select {
		case <-ticker.C:
			s.runDueStrategies(ctx)
		case <-s.stopChan:
			s.logger.Info("advisor scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("advisor scheduler stopping", "reason", ctx.Err())
			return
		}
	}
}

// Stop stops the scheduler.
func (s *AdvisorScheduler) Stop() {
	close(s.stopChan)
}

// runDueStrategies claims due strategies and runs each through the
// pipeline. Claiming advances next_run_at atomically, so a failed run
// waits for the next interval rather than retrying immediately.
func (s *AdvisorScheduler) runDueStrategies(ctx context.Context) {
	strategies, err := s.strategies.GetScheduledStrategies(ctx)
	if err != nil {
		s.logger.Error("failed to claim scheduled strategies", "error", err)
		return
	}

	if len(strategies) == 0 {
		return
	}

	s.logger.Info("running scheduled strategies", "count", len(strategies))

	for i := range strategies {
		strategy := &strategies[i]
		s.logger.Info("running scheduled strategy",
			"strategy_id", strategy.ID,
			"name", strategy.Name,
			"interval_minutes", strategy.ScheduleInterval,
		)

		result, _, err := s.adviser.Advise(ctx, strategy, nil)
		if err != nil {
			s.logger.Error("scheduled run failed to persist",
				"strategy_id", strategy.ID, "error", err)
		} else if result != nil && !result.Success {
			s.logger.Warn("scheduled run produced no decision",
				"strategy_id", strategy.ID,
				"error", result.Error,
				"error_type", result.ErrorType,
			)
		}

		if err := s.strategies.UpdateLastRun(ctx, strategy.ID, time.Now()); err != nil {
			s.logger.Error("failed to record last run",
				"strategy_id", strategy.ID, "error", err)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
