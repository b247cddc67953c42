package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []*CompletionResponse
	requests  []CompletionRequest
	err       error
}

func (c *scriptedClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return nil, fmt.Errorf("scripted client exhausted")
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

type recordingExecutor struct {
	calls []string
	fail  map[string]error
}

func (e *recordingExecutor) Execute(_ context.Context, name string, _ json.RawMessage) (any, error) {
	e.calls = append(e.calls, name)
	if err, ok := e.fail[name]; ok {
		return nil, err
	}
	return map[string]string{"result": "ok"}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseRequest() CompletionRequest {
	return UserRequest("test-model", "system", "user", 0.2, 500)
}

func TestRunWithToolsNoToolCalls(t *testing.T) {
	client := &scriptedClient{responses: []*CompletionResponse{{Text: "final answer"}}}
	executor := &recordingExecutor{}

	text, count, err := RunWithTools(context.Background(), client, baseRequest(), executor, 5, discardLogger())
	if err != nil {
		t.Fatalf("RunWithTools returned error: %v", err)
	}
	if text != "final answer" {
		t.Errorf("unexpected text: %q", text)
	}
	if count != 0 {
		t.Errorf("expected 0 tool calls, got %d", count)
	}
	if len(executor.calls) != 0 {
		t.Errorf("executor should not have been invoked")
	}
}

func TestRunWithToolsExecutesAndFeedsBack(t *testing.T) {
	client := &scriptedClient{responses: []*CompletionResponse{
		{ToolCalls: []ToolCall{
			{ID: "call-1", Name: "list_coins", Arguments: `{"market_cap":"high"}`},
			{ID: "call-2", Name: "get_quotes", Arguments: `{"symbols":["BTC"]}`},
		}},
		{Text: `["BTC","ETH"]`},
	}}
	executor := &recordingExecutor{}

	text, count, err := RunWithTools(context.Background(), client, baseRequest(), executor, 5, discardLogger())
	if err != nil {
		t.Fatalf("RunWithTools returned error: %v", err)
	}
	if text != `["BTC","ETH"]` {
		t.Errorf("unexpected final text: %q", text)
	}
	if count != 2 {
		t.Errorf("expected 2 tool calls, got %d", count)
	}
	if len(executor.calls) != 2 || executor.calls[0] != "list_coins" || executor.calls[1] != "get_quotes" {
		t.Errorf("unexpected executor calls: %v", executor.calls)
	}

	// Second request must carry the assistant tool-call message and both
	// tool results.
	second := client.requests[1]
	if len(second.Messages) != 4 {
		t.Fatalf("expected 4 messages in second request, got %d", len(second.Messages))
	}
	if second.Messages[1].Role != RoleAssistant || len(second.Messages[1].ToolCalls) != 2 {
		t.Errorf("assistant tool-call message not threaded: %+v", second.Messages[1])
	}
	if second.Messages[2].Role != RoleTool || second.Messages[2].ToolCallID != "call-1" {
		t.Errorf("first tool result not threaded: %+v", second.Messages[2])
	}
}

func TestRunWithToolsToolFailureDoesNotAbort(t *testing.T) {
	client := &scriptedClient{responses: []*CompletionResponse{
		{ToolCalls: []ToolCall{{ID: "call-1", Name: "get_quotes", Arguments: `{}`}}},
		{Text: "recovered"},
	}}
	executor := &recordingExecutor{fail: map[string]error{"get_quotes": fmt.Errorf("upstream timeout")}}

	text, count, err := RunWithTools(context.Background(), client, baseRequest(), executor, 5, discardLogger())
	if err != nil {
		t.Fatalf("expected loop to survive tool failure, got: %v", err)
	}
	if text != "recovered" {
		t.Errorf("unexpected text: %q", text)
	}
	if count != 1 {
		t.Errorf("expected 1 tool call, got %d", count)
	}

	// The failure must be visible to the model as an error payload.
	second := client.requests[1]
	toolMsg := second.Messages[len(second.Messages)-1]
	if toolMsg.Role != RoleTool {
		t.Fatalf("expected tool message, got role %q", toolMsg.Role)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(toolMsg.Content), &payload); err != nil {
		t.Fatalf("tool error payload is not JSON: %v", err)
	}
	if payload["error"] == "" {
		t.Errorf("expected error payload, got %v", payload)
	}
}

func TestRunWithToolsExhaustsRounds(t *testing.T) {
	// Model requests tools forever.
	client := &scriptedClient{responses: []*CompletionResponse{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "list_coins", Arguments: `{}`}}},
		{ToolCalls: []ToolCall{{ID: "c2", Name: "list_coins", Arguments: `{}`}}},
		{ToolCalls: []ToolCall{{ID: "c3", Name: "list_coins", Arguments: `{}`}}},
	}}
	executor := &recordingExecutor{}

	_, _, err := RunWithTools(context.Background(), client, baseRequest(), executor, 3, discardLogger())
	if err == nil {
		t.Fatal("expected exhaustion error, got nil")
	}

	var exhausted *ToolLoopExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ToolLoopExhaustedError, got %T", err)
	}
	if exhausted.Rounds != 3 {
		t.Errorf("expected 3 rounds, got %d", exhausted.Rounds)
	}
}

func TestRunWithToolsGatewayErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: &GatewayError{Provider: "openai", StatusCode: 503, Err: fmt.Errorf("unavailable")}}
	executor := &recordingExecutor{}

	_, _, err := RunWithTools(context.Background(), client, baseRequest(), executor, 3, discardLogger())
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected *GatewayError, got %v", err)
	}
	if gatewayErr.StatusCode != 503 {
		t.Errorf("expected status 503, got %d", gatewayErr.StatusCode)
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CompletionRequest)
	}{
		{"empty system", func(r *CompletionRequest) { r.System = " " }},
		{"no messages", func(r *CompletionRequest) { r.Messages = nil }},
		{"empty user content", func(r *CompletionRequest) { r.Messages[0].Content = "" }},
		{"temperature too high", func(r *CompletionRequest) { r.Temperature = 1.5 }},
		{"temperature negative", func(r *CompletionRequest) { r.Temperature = -0.1 }},
		{"zero max tokens", func(r *CompletionRequest) { r.MaxTokens = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)

			err := validateRequest(req)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
		})
	}
}
