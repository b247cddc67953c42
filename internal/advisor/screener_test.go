package advisor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/models"
)

func TestRunScreenerSelectsUniqueBoundedList(t *testing.T) {
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText(`After reviewing the market: ["BTC", "eth", "BTC", "SOL", "", "ADA"]`),
	}}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	symbols, toolCalls, fallback, err := advisor.runScreener(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("runScreener returned error: %v", err)
	}
	if fallback {
		t.Error("fallback flagged for a valid model list")
	}
	if toolCalls != 0 {
		t.Errorf("expected 0 tool calls, got %d", toolCalls)
	}

	want := []string{"BTC", "ETH", "SOL", "ADA"}
	if !reflect.DeepEqual(symbols, want) {
		t.Errorf("got %v, want %v", symbols, want)
	}
}

func TestRunScreenerTruncatesToLimit(t *testing.T) {
	raw := `["A1","A2","A3","A4","A5","A6","A7","A8","A9","A10","A11","A12","A13","A14","A15","A16","A17"]`
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText(raw),
	}}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	symbols, _, _, err := advisor.runScreener(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("runScreener returned error: %v", err)
	}
	if len(symbols) != 15 {
		t.Errorf("expected 15 symbols, got %d", len(symbols))
	}

	seen := make(map[string]bool)
	for _, symbol := range symbols {
		if seen[symbol] {
			t.Errorf("duplicate symbol %s", symbol)
		}
		seen[symbol] = true
	}
}

func TestRunScreenerFallsBackOnUnusableOutput(t *testing.T) {
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondText("I could not settle on a list, sorry about that."),
	}}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	symbols, _, fallback, err := advisor.runScreener(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}
	if !fallback {
		t.Error("fallback not flagged")
	}
	if len(symbols) == 0 || len(symbols) > 15 {
		t.Errorf("fallback pool size out of bounds: %d", len(symbols))
	}
}

func TestRunScreenerGatewayErrorIsNotFallback(t *testing.T) {
	client := &fakeClient{responders: []func(inference.CompletionRequest) (*inference.CompletionResponse, error){
		respondError(&inference.GatewayError{Provider: "anthropic", StatusCode: 429, Err: errors.New("rate limited")}),
	}}
	advisor := newTestAdvisor(client, marketdata.NewSimulatedExecutor(testLogger()))

	_, _, fallback, err := advisor.runScreener(context.Background(), testProfile())
	if err == nil {
		t.Fatal("expected gateway error to fail the stage")
	}
	if fallback {
		t.Error("gateway failure must not trigger the fallback pool")
	}
}

func TestFallbackPoolDeterminism(t *testing.T) {
	for _, risk := range []models.RiskTolerance{models.RiskLow, models.RiskMedium, models.RiskHigh} {
		for _, band := range []models.MarketCapBand{models.MarketCapLow, models.MarketCapMid, models.MarketCapHigh} {
			first := fallbackPool(risk, band, 15)
			second := fallbackPool(risk, band, 15)

			if !reflect.DeepEqual(first, second) {
				t.Errorf("pool for %s/%s not reproducible", risk, band)
			}
			if len(first) == 0 || len(first) > 15 {
				t.Errorf("pool for %s/%s has %d entries", risk, band, len(first))
			}

			seen := make(map[string]bool)
			for _, symbol := range first {
				if seen[symbol] {
					t.Errorf("pool for %s/%s repeats %s", risk, band, symbol)
				}
				seen[symbol] = true
			}
		}
	}
}

func TestFallbackPoolReflectsProfile(t *testing.T) {
	conservative := fallbackPool(models.RiskLow, models.MarketCapHigh, 15)
	aggressive := fallbackPool(models.RiskHigh, models.MarketCapLow, 15)

	if reflect.DeepEqual(conservative, aggressive) {
		t.Error("different profiles should not share a fallback pool")
	}
	if conservative[0] != "BTC" {
		t.Errorf("conservative pool should lead with high caps, got %s", conservative[0])
	}
	if aggressive[0] != "RUNE" {
		t.Errorf("aggressive low-cap pool should lead with low caps, got %s", aggressive[0])
	}
}
