package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/models"
)

func TestValidateRecommendation(t *testing.T) {
	tests := []struct {
		name           string
		recommendation string
		wantErr        bool
	}{
		{"swap format", "Swap USDC for ETH and hold for 6 months", false},
		{"hold format", "Don't swap anything and hold USDC for more 3 months", false},
		{"freeform advice", "You should probably buy ETH soon", true},
		{"swap missing duration", "Swap USDC for ETH", true},
		{"hold missing duration", "Don't swap anything", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRecommendation(tt.recommendation)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for %q", tt.recommendation)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.recommendation, err)
			}
		})
	}
}

func TestRunCommitteeAcceptsValidDecision(t *testing.T) {
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText(`My decision follows.
{"recommendation": "Don't swap anything and hold USDC for more 6 months", "explanation": "The holding's combined score leads the field."}`),
	}}
	advisor := newTestAdvisor(client, nil)

	qual := 8.0
	coins := []models.ScoredCoin{
		{Symbol: "USDC", QuantScore: 7, QualitativeScore: &qual, IsCurrentHolding: true},
		{Symbol: "BTC", QuantScore: 6},
	}

	decision, err := advisor.runCommittee(context.Background(), coins, testStrategy(), models.HorizonLongTerm, nil)
	if err != nil {
		t.Fatalf("runCommittee returned error: %v", err)
	}
	if !strings.HasPrefix(decision.Recommendation, "Don't swap anything") {
		t.Errorf("unexpected recommendation: %q", decision.Recommendation)
	}
	if decision.Explanation == "" {
		t.Error("explanation missing")
	}
}

func TestRunCommitteeRejectsMalformedDecision(t *testing.T) {
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText(`{"recommendation": "Consider diversifying into ETH", "explanation": "General advice."}`),
	}}
	advisor := newTestAdvisor(client, nil)

	coins := []models.ScoredCoin{{Symbol: "USDC", QuantScore: 5, IsCurrentHolding: true}}

	_, err := advisor.runCommittee(context.Background(), coins, testStrategy(), models.HorizonLongTerm, nil)

	var validationErr *inference.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestRunCommitteeCarriesPreviousRecommendation(t *testing.T) {
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText(`{"recommendation": "Swap USDC for ETH and hold for 3 months", "explanation": "Momentum favors ETH."}`),
	}}
	advisor := newTestAdvisor(client, nil)

	prev := &models.PreviousRecommendation{
		Recommendation:   "Don't swap anything and hold USDC for more 3 months",
		Timestamp:        time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		OriginalDuration: "3 months",
		Justification:    "Market too volatile to rotate.",
	}

	coins := []models.ScoredCoin{{Symbol: "USDC", QuantScore: 5, IsCurrentHolding: true}}

	_, err := advisor.runCommittee(context.Background(), coins, testStrategy(), models.HorizonLongTerm, prev)
	if err != nil {
		t.Fatalf("runCommittee returned error: %v", err)
	}

	prompt := client.requests[0].Messages[0].Content
	if !strings.Contains(prompt, "PREVIOUS RECOMMENDATION") {
		t.Error("previous recommendation not included in prompt")
	}
	if !strings.Contains(prompt, prev.Justification) {
		t.Error("previous justification not included in prompt")
	}
}

func TestIsSwap(t *testing.T) {
	if !IsSwap("Swap USDC for ETH and hold for 6 months") {
		t.Error("swap recommendation not detected")
	}
	if IsSwap("Don't swap anything and hold USDC for more 6 months") {
		t.Error("hold recommendation misdetected as swap")
	}
}
