package models

import "time"

// InferenceLog records a single language-model API call.
type InferenceLog struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"` // 'openai' or 'anthropic'
	Model        string    `json:"model"`
	Operation    string    `json:"operation"` // e.g. 'profile', 'screener', 'committee'
	TokensUsed   int       `json:"tokens_used"`
	InputTokens  *int      `json:"input_tokens,omitempty"`
	OutputTokens *int      `json:"output_tokens,omitempty"`
	LatencyMs    *int      `json:"latency_ms,omitempty"`
	Status       string    `json:"status"` // 'success' or 'error'
	ErrorMessage *string   `json:"error_message,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
