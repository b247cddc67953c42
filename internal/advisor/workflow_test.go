package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/models"
)

// happyPathResponders scripts a full pipeline run: profile, screener,
// qualitative scoring, and a final hold decision.
func happyPathResponders() []func(inference.CompletionRequest) (*inference.CompletionResponse, error) {
	return []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText(`{"current_holding_symbol": "USDC", "risk_tolerance": "low", "desired_market_cap": "high", "investment_horizon": "long-term"}`),
		respondText(`["BTC", "ETH", "SOL", "ADA"]`),
		scoreEveryCoin(6),
		respondText(`{"recommendation": "Don't swap anything and hold USDC for more 6 months", "explanation": "The stable holding still fits a low-risk profile."}`),
	}
}

func TestWorkflowEndToEnd(t *testing.T) {
	client := &fakeClient{responders: happyPathResponders()}
	executor := newCountingExecutor(marketdata.NewSimulatedExecutor(testLogger()))
	advisor := newTestAdvisor(client, executor)

	result := advisor.Run(context.Background(), testStrategy(), nil)

	if !result.Success {
		t.Fatalf("workflow failed: %s (%s)", result.Error, result.ErrorType)
	}
	if result.Profile == nil || result.Profile.RiskTolerance != models.RiskLow {
		t.Errorf("profile missing or wrong: %+v", result.Profile)
	}
	if len(result.Candidates) != 4 {
		t.Errorf("expected 4 candidates, got %v", result.Candidates)
	}

	// Quant analysis covers candidates plus the USDC holding.
	if len(result.QuantAnalysis) != 5 {
		t.Errorf("expected 5 quant entries, got %d", len(result.QuantAnalysis))
	}
	if len(result.QualAnalysis) != 5 {
		t.Errorf("expected 5 qual entries, got %d", len(result.QualAnalysis))
	}

	if result.Decision == nil {
		t.Fatal("decision missing")
	}
	if !strings.HasPrefix(result.Decision.Recommendation, "Swap") &&
		!strings.HasPrefix(result.Decision.Recommendation, "Don't swap anything") {
		t.Errorf("recommendation violates contract: %q", result.Decision.Recommendation)
	}

	if len(result.Stages) != 5 {
		t.Fatalf("expected 5 stage records, got %d", len(result.Stages))
	}
	order := []string{StageProfile, StageScreener, StageQuantitative, StageQualitative, StageCommittee}
	for i, stage := range result.Stages {
		if stage.Name != order[i] {
			t.Errorf("stage %d: got %s, want %s", i, stage.Name, order[i])
		}
		if !stage.Success {
			t.Errorf("stage %s marked failed: %s", stage.Name, stage.Error)
		}
	}
}

func TestWorkflowAbortsOnFirstFailure(t *testing.T) {
	// Profile output has no JSON at all, so the first stage fails.
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText("I am not able to classify this preference."),
	}}
	executor := newCountingExecutor(marketdata.NewSimulatedExecutor(testLogger()))
	advisor := newTestAdvisor(client, executor)

	result := advisor.Run(context.Background(), testStrategy(), nil)

	if result.Success {
		t.Fatal("workflow should have failed")
	}
	if result.ErrorType != "extraction_error" {
		t.Errorf("unexpected error type: %s", result.ErrorType)
	}
	if len(client.requests) != 1 {
		t.Errorf("downstream stages ran: %d gateway calls", len(client.requests))
	}
	if executor.total() != 0 {
		t.Errorf("downstream stages ran: %d tool executions", executor.total())
	}
	if len(result.Stages) != 1 || result.Stages[0].Success {
		t.Errorf("expected exactly one failed stage record, got %+v", result.Stages)
	}
}

func TestWorkflowRetainsPartialResultOnMidFailure(t *testing.T) {
	// Committee returns freeform text, failing the final stage.
	responders := happyPathResponders()
	responders[3] = respondText(`{"recommendation": "Maybe buy something else", "explanation": "Unsure."}`)
	client := &fakeClient{responders: responders}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	result := advisor.Run(context.Background(), testStrategy(), nil)

	if result.Success {
		t.Fatal("workflow should have failed at committee")
	}
	if result.ErrorType != "validation_error" {
		t.Errorf("unexpected error type: %s", result.ErrorType)
	}
	if result.Decision != nil {
		t.Error("failed committee must not produce a decision")
	}

	// Earlier stage outputs stay available for diagnostics.
	if result.Profile == nil || len(result.Candidates) == 0 || len(result.QualAnalysis) == 0 {
		t.Error("partial results lost on failure")
	}
	if len(result.Stages) != 5 {
		t.Errorf("expected 5 stage records, got %d", len(result.Stages))
	}
}

func TestWorkflowEmitsProgressEvents(t *testing.T) {
	client := &fakeClient{responders: happyPathResponders()}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	var events []models.ProgressEvent
	result := advisor.RunWithProgress(context.Background(), testStrategy(), nil, func(event models.ProgressEvent) {
		events = append(events, event)
	})

	if !result.Success {
		t.Fatalf("workflow failed: %s", result.Error)
	}
	if len(events) != 10 {
		t.Fatalf("expected 10 events (start+complete per stage), got %d", len(events))
	}
	for i := 0; i < len(events); i += 2 {
		if events[i].Type != models.ProgressAgentStart {
			t.Errorf("event %d: got %s, want %s", i, events[i].Type, models.ProgressAgentStart)
		}
		if events[i+1].Type != models.ProgressAgentComplete {
			t.Errorf("event %d: got %s, want %s", i+1, events[i+1].Type, models.ProgressAgentComplete)
		}
		if events[i].Stage != events[i+1].Stage {
			t.Errorf("event pair %d spans stages %s and %s", i, events[i].Stage, events[i+1].Stage)
		}
	}
}

func TestWorkflowSurvivesPanickingSink(t *testing.T) {
	client := &fakeClient{responders: happyPathResponders()}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	result := advisor.RunWithProgress(context.Background(), testStrategy(), nil, func(models.ProgressEvent) {
		panic("sink exploded")
	})

	if !result.Success {
		t.Fatalf("panicking sink changed pipeline outcome: %s", result.Error)
	}
}

func TestWorkflowScreenerFallbackIsVisible(t *testing.T) {
	responders := happyPathResponders()
	responders[1] = respondText("no list, sorry")
	client := &fakeClient{responders: responders}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	result := advisor.Run(context.Background(), testStrategy(), nil)

	if !result.Success {
		t.Fatalf("fallback run should succeed: %s", result.Error)
	}
	if !result.Stages[1].FallbackMode {
		t.Error("screener fallback not flagged in stage metadata")
	}
	if len(result.Candidates) == 0 {
		t.Error("fallback produced no candidates")
	}
}
