package inference

import (
	"context"
	"encoding/json"
	"log/slog"
)

// ToolExecutor answers model-initiated tool calls. Implementations may be a
// live market-data provider or a deterministic simulator; stages must not be
// able to tell them apart by shape.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// RunWithTools drives a tool-calling conversation: it calls the gateway,
// executes any requested tools, feeds the results back, and repeats until
// the model returns a final message without tool calls. A single tool
// failure is serialized into the conversation so the model can adapt; only
// exceeding maxRounds fails the loop.
//
// Returns the final text, the number of tool calls executed, and an error.
func RunWithTools(ctx context.Context, client Client, req CompletionRequest, executor ToolExecutor, maxRounds int, logger *slog.Logger) (string, int, error) {
	toolCallCount := 0

	for round := 1; round <= maxRounds; round++ {
		resp, err := client.Complete(ctx, req)
		if err != nil {
			return "", toolCallCount, err
		}

		if len(resp.ToolCalls) == 0 {
			logger.Debug("tool loop complete",
				"operation", req.Operation,
				"rounds", round,
				"tool_calls", toolCallCount)
			return resp.Text, toolCallCount, nil
		}

		req.Messages = append(req.Messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			toolCallCount++

			result, err := executor.Execute(ctx, call.Name, json.RawMessage(call.Arguments))
			if err != nil {
				toolErr := &ToolExecutionError{Tool: call.Name, Err: err}
				logger.Warn("tool execution failed",
					"operation", req.Operation,
					"tool", call.Name,
					"error", err)

				// Surface the failure to the model instead of aborting.
				payload, _ := json.Marshal(map[string]string{"error": toolErr.Error()})
				req.Messages = append(req.Messages, Message{
					Role:       RoleTool,
					Content:    string(payload),
					ToolCallID: call.ID,
				})
				continue
			}

			payload, err := json.Marshal(result)
			if err != nil {
				payload, _ = json.Marshal(map[string]string{"error": "tool result could not be serialized"})
			}

			req.Messages = append(req.Messages, Message{
				Role:       RoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
			})
		}
	}

	return "", toolCallCount, &ToolLoopExhaustedError{Rounds: maxRounds}
}
