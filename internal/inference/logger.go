package inference

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinpilot/coinpilot/internal/models"
)

// LogRepository persists inference call records.
type LogRepository interface {
	Create(ctx context.Context, log models.InferenceLog) error
}

// Logger records every gateway call to the database for cost and latency
// auditing.
type Logger struct {
	repo   LogRepository
	logger *slog.Logger
}

// NewLogger creates a new inference logger
func NewLogger(repo LogRepository, logger *slog.Logger) *Logger {
	return &Logger{
		repo:   repo,
		logger: logger,
	}
}

// CallRecord captures the outcome of a single gateway call.
type CallRecord struct {
	Provider  string
	Model     string
	Operation string
	Usage     Usage
	Latency   time.Duration
	Err       error
}

// LogCall persists a call record asynchronously so logging never blocks the
// pipeline.
func (l *Logger) LogCall(ctx context.Context, record CallRecord) {
	latencyMs := int(record.Latency.Milliseconds())

	log := models.InferenceLog{
		Provider:     record.Provider,
		Model:        record.Model,
		Operation:    record.Operation,
		TokensUsed:   record.Usage.TotalTokens,
		InputTokens:  &record.Usage.PromptTokens,
		OutputTokens: &record.Usage.CompletionTokens,
		LatencyMs:    &latencyMs,
		Status:       "success",
	}

	if record.Err != nil {
		log.Status = "error"
		errMsg := record.Err.Error()
		log.ErrorMessage = &errMsg
	}

	go func() {
		bgCtx := context.Background()
		if err := l.repo.Create(bgCtx, log); err != nil {
			l.logger.Error("failed to log inference call", "error", err)
		}
	}()
}
