package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client against the Anthropic messages API.
type AnthropicClient struct {
	client  anthropic.Client
	timeout time.Duration
	logger  *slog.Logger
	infLog  *Logger
}

// NewAnthropicClient creates an Anthropic-backed gateway client.
func NewAnthropicClient(apiKey string, timeout time.Duration, logger *slog.Logger, infLog *Logger) *AnthropicClient {
	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		timeout: timeout,
		logger:  logger,
		infLog:  infLog,
	}
}

// Complete sends a single messages request. No internal retries.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: buildAnthropicMessages(req),
	}

	for _, tool := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tool.Parameters["properties"],
				},
			},
		})
	}

	startTime := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	latency := time.Since(startTime)

	usage := Usage{}
	if err == nil {
		usage.PromptTokens = int(resp.Usage.InputTokens)
		usage.CompletionTokens = int(resp.Usage.OutputTokens)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	if c.infLog != nil {
		c.infLog.LogCall(ctx, CallRecord{
			Provider:  "anthropic",
			Model:     req.Model,
			Operation: req.Operation,
			Usage:     usage,
			Latency:   latency,
			Err:       err,
		})
	}

	if err != nil {
		return nil, &GatewayError{Provider: "anthropic", StatusCode: anthropicStatusCode(err), Err: err}
	}

	if len(resp.Content) == 0 {
		return nil, &GatewayError{Provider: "anthropic", Err: fmt.Errorf("no response content")}
	}

	result := &CompletionResponse{Usage: usage}

	var thinking string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if result.Text == "" {
				result.Text = block.Text
			}
		case "thinking":
			thinking = block.Thinking
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: string(block.Input),
			})
		}
	}

	// Extended-thinking models may put their answer only in the thinking
	// channel; never return silently empty text.
	if result.Text == "" && thinking != "" {
		c.logger.Debug("falling back to thinking content", "model", req.Model)
		result.Text = thinking
	}

	return result, nil
}

func buildAnthropicMessages(req CompletionRequest) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: json.RawMessage(call.Arguments),
					},
				})
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return messages
}

func anthropicStatusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
