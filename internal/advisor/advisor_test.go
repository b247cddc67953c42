package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/models"
	"github.com/shopspring/decimal"
)

// fakeClient answers Complete calls from an ordered list of responders, so
// a test can script an entire pipeline run.
type fakeClient struct {
	responders []func(req inference.CompletionRequest) (*inference.CompletionResponse, error)
	requests   []inference.CompletionRequest
}

func (c *fakeClient) Complete(_ context.Context, req inference.CompletionRequest) (*inference.CompletionResponse, error) {
	c.requests = append(c.requests, req)
	if len(c.requests) > len(c.responders) {
		return nil, fmt.Errorf("unexpected completion call %d (operation %s)", len(c.requests), req.Operation)
	}
	return c.responders[len(c.requests)-1](req)
}

func respondText(text string) func(inference.CompletionRequest) (*inference.CompletionResponse, error) {
	return func(inference.CompletionRequest) (*inference.CompletionResponse, error) {
		return &inference.CompletionResponse{Text: text}, nil
	}
}

func respondError(err error) func(inference.CompletionRequest) (*inference.CompletionResponse, error) {
	return func(inference.CompletionRequest) (*inference.CompletionResponse, error) {
		return nil, err
	}
}

// countingExecutor wraps another executor and counts invocations per tool.
type countingExecutor struct {
	inner inference.ToolExecutor
	calls map[string]int
}

func newCountingExecutor(inner inference.ToolExecutor) *countingExecutor {
	return &countingExecutor{inner: inner, calls: make(map[string]int)}
}

func (e *countingExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	e.calls[name]++
	return e.inner.Execute(ctx, name, args)
}

func (e *countingExecutor) total() int {
	sum := 0
	for _, n := range e.calls {
		sum += n
	}
	return sum
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStrategy() *models.Strategy {
	return &models.Strategy{
		ID:          "strat-1",
		UserID:      "user-1",
		Name:        "Conservative DeFi Yield",
		Description: "stable yield farming, low risk",
		Coin:        "USDC",
		Amount:      decimal.RequireFromString("10000"),
	}
}

func newTestAdvisor(client inference.Client, executor inference.ToolExecutor) *Advisor {
	return New(client, executor, Config{Model: "test-model"}, testLogger())
}

func testProfile() *models.InvestorProfile {
	return &models.InvestorProfile{
		CurrentHoldingSymbol: "USDC",
		RiskTolerance:        models.RiskLow,
		DesiredMarketCap:     models.MarketCapHigh,
		InvestmentHorizon:    models.HorizonLongTerm,
	}
}
