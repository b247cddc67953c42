// Package advisor implements the advisory pipeline: five sequential stages
// that turn a strategy's free-text preference into a structured profile,
// screen candidate coins, score them quantitatively and qualitatively, and
// issue a final hold/swap recommendation.
package advisor

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coinpilot/coinpilot/internal/inference"
)

// Stage names in execution order.
const (
	StageProfile      = "profile"
	StageScreener     = "screener"
	StageQuantitative = "quantitative"
	StageQualitative  = "qualitative"
	StageCommittee    = "committee"
)

// Config carries the tunables shared by all stages.
type Config struct {
	Model          string
	MaxToolRounds  int
	CandidateLimit int
}

// Advisor runs the pipeline. Stages are stateless given their inputs; the
// only cross-stage state lives in the WorkflowResult built by Run.
type Advisor struct {
	client   inference.Client
	executor inference.ToolExecutor
	cfg      Config
	logger   *slog.Logger
}

// New creates an advisor. The executor may be live or simulated; stages
// depend only on the shape of its results.
func New(client inference.Client, executor inference.ToolExecutor, cfg Config, logger *slog.Logger) *Advisor {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 8
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 15
	}
	return &Advisor{
		client:   client,
		executor: executor,
		cfg:      cfg,
		logger:   logger,
	}
}

// decodeToolResult converts an executor result into out via its JSON
// representation, so stages stay agnostic to the executor's concrete types.
func decodeToolResult(result any, out any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("tool result could not be serialized: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("tool result has unexpected shape: %w", err)
	}
	return nil
}
