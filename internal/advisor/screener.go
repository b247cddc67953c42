package advisor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/models"
)

// Fixed-order candidate pools backing the deterministic screener fallback,
// grouped by market-cap band.
var (
	fallbackHighCap = []string{"BTC", "ETH", "USDT", "USDC", "BNB", "SOL", "XRP", "ADA", "DOGE", "AVAX"}
	fallbackMidCap  = []string{"LINK", "DOT", "MATIC", "UNI", "ATOM", "LTC", "NEAR", "AAVE", "ARB", "OP"}
	fallbackLowCap  = []string{"RUNE", "KAVA", "ROSE", "CELO", "ZRX", "BAND", "OCEAN", "ANKR", "SKL", "CTSI"}
)

// runScreener selects candidate symbols for the profile via a tool-calling
// conversation. If the conversation succeeds but its final output is not a
// usable symbol array, the stage falls back to a deterministic pool keyed by
// risk tolerance and desired market cap; gateway and round-budget failures
// still fail the stage.
func (a *Advisor) runScreener(ctx context.Context, profile *models.InvestorProfile) (symbols []string, toolCalls int, fallback bool, err error) {
	req := inference.UserRequest(a.cfg.Model, screenerSystemPrompt, buildScreenerPrompt(profile, a.cfg.CandidateLimit), 0.3, 2048)
	req.Operation = StageScreener
	req.Tools = screenerTools()

	text, toolCalls, err := inference.RunWithTools(ctx, a.client, req, a.executor, a.cfg.MaxToolRounds, a.logger)
	if err != nil {
		return nil, toolCalls, false, err
	}

	candidates, parseErr := parseCandidateList(text, a.cfg.CandidateLimit)
	if parseErr != nil {
		a.logger.Warn("screener output unusable, using deterministic fallback pool",
			"risk_tolerance", profile.RiskTolerance,
			"desired_market_cap", profile.DesiredMarketCap,
			"error", parseErr)
		return fallbackPool(profile.RiskTolerance, profile.DesiredMarketCap, a.cfg.CandidateLimit), toolCalls, true, nil
	}

	a.logger.Info("screener selected candidates",
		"count", len(candidates),
		"tool_calls", toolCalls)

	return candidates, toolCalls, false, nil
}

// parseCandidateList extracts and normalizes the screener's final symbol
// array: uppercase, deduplicated in order, truncated to limit.
func parseCandidateList(text string, limit int) ([]string, error) {
	raw, err := inference.ExtractArray(text)
	if err != nil {
		return nil, err
	}

	var parsed []string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &inference.ValidationError{Reason: "candidate list is not an array of strings"}
	}

	seen := make(map[string]bool, len(parsed))
	symbols := make([]string, 0, len(parsed))
	for _, symbol := range parsed {
		normalized := strings.ToUpper(strings.TrimSpace(symbol))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		symbols = append(symbols, normalized)
		if len(symbols) == limit {
			break
		}
	}

	if len(symbols) == 0 {
		return nil, &inference.ValidationError{Reason: "candidate list is empty"}
	}

	return symbols, nil
}

// fallbackPool composes a reproducible candidate list: the desired band
// first, then a risk-appropriate secondary band. Order is fixed so that the
// same profile always yields the same pool.
func fallbackPool(risk models.RiskTolerance, band models.MarketCapBand, limit int) []string {
	var primary, secondary []string

	switch band {
	case models.MarketCapLow:
		primary = fallbackLowCap
	case models.MarketCapMid:
		primary = fallbackMidCap
	default:
		primary = fallbackHighCap
	}

	switch risk {
	case models.RiskLow:
		secondary = fallbackHighCap
	case models.RiskHigh:
		secondary = fallbackLowCap
	default:
		secondary = fallbackMidCap
	}

	seen := make(map[string]bool, limit)
	pool := make([]string, 0, limit)
	for _, symbol := range append(append([]string{}, primary...), secondary...) {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		pool = append(pool, symbol)
		if len(pool) == limit {
			break
		}
	}

	return pool
}

func screenerTools() []inference.ToolSpec {
	return []inference.ToolSpec{
		{
			Name:        marketdata.ToolListCoins,
			Description: "List available coins in a market-cap band (low, mid, or high).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"market_cap": map[string]any{
						"type":        "string",
						"enum":        []string{"low", "mid", "high"},
						"description": "Market-cap band to list",
					},
				},
				"required": []string{"market_cap"},
			},
		},
		{
			Name:        marketdata.ToolGetQuotes,
			Description: "Get current USD prices and 24h change for a list of ticker symbols.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbols": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Ticker symbols to quote",
					},
				},
				"required": []string{"symbols"},
			},
		},
	}
}
