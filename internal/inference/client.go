package inference

import (
	"context"
	"fmt"
	"strings"
)

// Message roles used in completion requests.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a provider-neutral chat message. Assistant messages may carry
// tool-call requests; tool messages carry a result for a specific call.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall // Set on assistant messages requesting tools
	ToolCallID string     // Set on tool result messages
}

// ToolCall is a model-initiated request to invoke a named function.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // Raw JSON argument payload
}

// ToolSpec describes a function the model may call. Parameters is a JSON
// Schema object ({"type":"object","properties":{...},"required":[...]}).
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token consumption for a single call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest is a single chat-style completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64 // Must be within [0,1]
	MaxTokens   int     // Must be positive
	Tools       []ToolSpec
	Operation   string // Stage label for inference logging
}

// CompletionResponse is the provider-neutral completion result. Text is
// never silently empty: providers fall back to a reasoning side-channel
// when the primary content field is blank.
type CompletionResponse struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Client sends completion requests to a language-model endpoint. Calls are
// single-attempt; transport failures surface as *GatewayError.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func validateRequest(req CompletionRequest) error {
	if strings.TrimSpace(req.System) == "" {
		return &ValidationError{Reason: "system prompt must not be empty"}
	}
	if len(req.Messages) == 0 {
		return &ValidationError{Reason: "at least one message is required"}
	}
	for i, msg := range req.Messages {
		if msg.Role == RoleUser && strings.TrimSpace(msg.Content) == "" {
			return &ValidationError{Reason: fmt.Sprintf("message %d: user content must not be empty", i)}
		}
	}
	if req.Temperature < 0 || req.Temperature > 1 {
		return &ValidationError{Reason: fmt.Sprintf("temperature %.2f out of range [0,1]", req.Temperature)}
	}
	if req.MaxTokens <= 0 {
		return &ValidationError{Reason: "max tokens must be positive"}
	}
	return nil
}

// UserRequest builds a single-turn request with one user message.
func UserRequest(model, system, user string, temperature float64, maxTokens int) CompletionRequest {
	return CompletionRequest{
		Model:       model,
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: user}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
