package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/models"
	"github.com/shopspring/decimal"
)

// RecommendationStore is the slice of recommendation persistence the
// service needs.
type RecommendationStore interface {
	GetActiveRecommendation(ctx context.Context, strategyID string) (*models.Recommendation, error)
	SaveRecommendation(ctx context.Context, strategyID, userID string, decision models.CommitteeDecision, metadata string) (*models.Recommendation, error)
}

// NotificationStore is the slice of notification persistence the service
// needs.
type NotificationStore interface {
	AddNotification(ctx context.Context, strategyID, message, action string, confidence float64, priceAtRecommendation decimal.Decimal) (*models.Notification, error)
}

// StageObserver receives per-stage outcomes, typically for metrics.
type StageObserver interface {
	ObserveStage(stage string, durationMs int64, toolCalls int, success bool, errorType string)
}

// Service wraps the pipeline with its persistence side effects: carrying
// the previous recommendation in, and writing the new recommendation and a
// notification out on success.
type Service struct {
	advisor   *Advisor
	recStore  RecommendationStore
	noteStore NotificationStore
	observer  StageObserver
	logger    *slog.Logger
}

// NewService creates an advice service.
func NewService(advisor *Advisor, recStore RecommendationStore, noteStore NotificationStore, logger *slog.Logger) *Service {
	return &Service{
		advisor:   advisor,
		recStore:  recStore,
		noteStore: noteStore,
		logger:    logger,
	}
}

// WithObserver attaches a stage observer. Returns the service for chaining.
func (s *Service) WithObserver(observer StageObserver) *Service {
	s.observer = observer
	return s
}

// Advise runs the pipeline for a strategy and persists the outcome. The
// returned WorkflowResult is never nil; the recommendation is nil when the
// pipeline failed. Persistence failures after a successful pipeline run are
// returned as errors alongside the result.
func (s *Service) Advise(ctx context.Context, strategy *models.Strategy, sink ProgressSink) (*models.WorkflowResult, *models.Recommendation, error) {
	prev := s.previousRecommendation(ctx, strategy.ID)

	result := s.advisor.RunWithProgress(ctx, strategy, prev, sink)
	if s.observer != nil {
		for _, stage := range result.Stages {
			errorType := ""
			if !stage.Success {
				errorType = result.ErrorType
			}
			s.observer.ObserveStage(stage.Name, stage.DurationMs, stage.ToolCalls, stage.Success, errorType)
		}
	}
	if !result.Success {
		return result, nil, nil
	}

	metadata := marshalAnalysis(result)
	rec, err := s.recStore.SaveRecommendation(ctx, strategy.ID, strategy.UserID, *result.Decision, metadata)
	if err != nil {
		return result, nil, fmt.Errorf("failed to save recommendation: %w", err)
	}

	confidence := decisionConfidence(result)
	price := s.holdingPrice(ctx, strategy.Coin)
	if _, err := s.noteStore.AddNotification(ctx, strategy.ID, result.Decision.Explanation, result.Decision.Recommendation, confidence, price); err != nil {
		// The recommendation is already saved; a lost notification is not
		// worth failing the whole run.
		s.logger.Error("failed to add notification", "strategy_id", strategy.ID, "error", err)
	}

	return result, rec, nil
}

// previousRecommendation loads the active recommendation as committee
// context. Any lookup problem just means the committee runs without it.
func (s *Service) previousRecommendation(ctx context.Context, strategyID string) *models.PreviousRecommendation {
	rec, err := s.recStore.GetActiveRecommendation(ctx, strategyID)
	if err != nil || rec == nil {
		return nil
	}

	return &models.PreviousRecommendation{
		Recommendation:   rec.Action,
		Timestamp:        rec.CreatedAt,
		OriginalDuration: extractDuration(rec.Action),
		Justification:    rec.Explanation,
	}
}

var (
	swapDuration = regexp.MustCompile(`and hold for (.+)$`)
	holdDuration = regexp.MustCompile(`for more (.+)$`)
)

// extractDuration pulls the hold duration out of a recommendation string.
func extractDuration(recommendation string) string {
	if match := swapDuration.FindStringSubmatch(recommendation); match != nil {
		return strings.TrimSpace(match[1])
	}
	if match := holdDuration.FindStringSubmatch(recommendation); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}

// decisionConfidence maps the winning coin's combined score onto [0,1].
func decisionConfidence(result *models.WorkflowResult) float64 {
	best := 0.0
	for _, coin := range result.QualAnalysis {
		if score := coin.CombinedScore(); score > best {
			best = score
		}
	}
	return clamp(best/10, 0, 1)
}

// holdingPrice quotes the current holding for the notification record.
// Zero when no quote is available.
func (s *Service) holdingPrice(ctx context.Context, symbol string) decimal.Decimal {
	args, _ := json.Marshal(map[string][]string{"symbols": {symbol}})
	result, err := s.advisor.executor.Execute(ctx, marketdata.ToolGetQuotes, args)
	if err != nil {
		s.logger.Warn("holding price unavailable", "symbol", symbol, "error", err)
		return decimal.Zero
	}

	var quotes []marketdata.Quote
	if err := decodeToolResult(result, &quotes); err != nil || len(quotes) == 0 {
		return decimal.Zero
	}
	return quotes[0].PriceUSD
}

// marshalAnalysis serializes the analysis snapshot stored alongside a
// recommendation.
func marshalAnalysis(result *models.WorkflowResult) string {
	snapshot := map[string]any{
		"profile":           result.Profile,
		"candidates":        result.Candidates,
		"quant_analysis":    result.QuantAnalysis,
		"qual_analysis":     result.QualAnalysis,
		"stages":            result.Stages,
		"total_duration_ms": result.TotalDurationMs,
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return ""
	}
	return string(payload)
}
