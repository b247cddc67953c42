package models

import "time"

// CommitteeDecision is the committee stage's final output. Recommendation
// always begins with "Swap" or "Don't swap anything" and names a concrete
// target and duration.
type CommitteeDecision struct {
	Recommendation string `json:"recommendation"`
	Explanation    string `json:"explanation"`
}

// Recommendation is a persisted committee decision. At most one
// recommendation per strategy is active at any time.
type Recommendation struct {
	ID          string    `json:"id"`
	StrategyID  string    `json:"strategy_id"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	Explanation string    `json:"explanation"`
	Active      bool      `json:"active"`
	Metadata    string    `json:"metadata,omitempty"` // Serialized analysis snapshot
	CreatedAt   time.Time `json:"created_at"`
}

// PreviousRecommendation is carried into the committee stage as context for
// consistency with earlier advice. The pipeline never mutates it.
type PreviousRecommendation struct {
	Recommendation   string    `json:"recommendation"`
	Timestamp        time.Time `json:"timestamp"`
	OriginalDuration string    `json:"original_duration"`
	Justification    string    `json:"justification"`
}

// StageStatus records per-stage metadata for a workflow run.
type StageStatus struct {
	Name         string `json:"name"`
	Success      bool   `json:"success"`
	DurationMs   int64  `json:"duration_ms"`
	ToolCalls    int    `json:"tool_calls"`
	FallbackMode bool   `json:"fallback_mode,omitempty"`
	Error        string `json:"error,omitempty"`
}

// WorkflowResult aggregates everything a workflow run produced. It is filled
// incrementally stage by stage; on failure the partial result is retained
// for diagnostics.
type WorkflowResult struct {
	Strategy        *Strategy          `json:"strategy"`
	Profile         *InvestorProfile   `json:"profile,omitempty"`
	Candidates      []string           `json:"candidates,omitempty"`
	QuantAnalysis   []ScoredCoin       `json:"quant_analysis,omitempty"`
	QualAnalysis    []ScoredCoin       `json:"qual_analysis,omitempty"`
	Decision        *CommitteeDecision `json:"decision,omitempty"`
	Success         bool               `json:"success"`
	Error           string             `json:"error,omitempty"`
	ErrorType       string             `json:"error_type,omitempty"`
	Stages          []StageStatus      `json:"stages"`
	TotalDurationMs int64              `json:"total_duration_ms"`
}

// Progress event types emitted by the streaming workflow variant.
const (
	ProgressAgentStart    = "agent_start"
	ProgressAgentComplete = "agent_complete"
	ProgressAgentError    = "agent_error"
)

// ProgressEvent is relayed to callers of the streaming workflow variant
// before and after each stage.
type ProgressEvent struct {
	Type    string `json:"type"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}
