package advisor

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/models"
)

// Momentum window weights and tanh normalization scales. The scales are
// sized so a typical strong move in each window saturates around +/-7 of
// the 10-point swing.
const (
	weight90d = 0.5
	weight30d = 0.3
	weight24h = 0.2

	scale90d = 60.0
	scale30d = 30.0
	scale24h = 10.0
)

// runQuantitative fetches price momentum for every candidate plus the
// current holding and computes a 0-10 quant score per symbol. Purely
// mechanical; no gateway call. A failed price fetch for any symbol fails
// the stage since a partial scoreboard would bias the committee.
func (a *Advisor) runQuantitative(ctx context.Context, candidates []string, holding string) ([]models.ScoredCoin, int, error) {
	// Normalize once; the scored symbols are normalized too, so the
	// holding tag below stays an exact comparison.
	holding = strings.ToUpper(strings.TrimSpace(holding))
	symbols := dedupeWithHolding(candidates, holding)

	coins := make([]models.ScoredCoin, 0, len(symbols))
	toolCalls := 0

	for _, symbol := range symbols {
		args, _ := json.Marshal(map[string]string{"symbol": symbol})
		toolCalls++

		result, err := a.executor.Execute(ctx, marketdata.ToolGetPriceChanges, args)
		if err != nil {
			return nil, toolCalls, &inference.ToolExecutionError{Tool: marketdata.ToolGetPriceChanges, Err: err}
		}

		var changes marketdata.PriceChanges
		if err := decodeToolResult(result, &changes); err != nil {
			return nil, toolCalls, &inference.ToolExecutionError{Tool: marketdata.ToolGetPriceChanges, Err: err}
		}

		coins = append(coins, models.ScoredCoin{
			Symbol:           symbol,
			Change90d:        changes.Change90d,
			Change30d:        changes.Change30d,
			Change24h:        changes.Change24h,
			QuantScore:       quantScore(changes),
			IsCurrentHolding: symbol == holding,
		})
	}

	a.logger.Info("quantitative scores computed", "coins", len(coins))

	return coins, toolCalls, nil
}

// quantScore maps three momentum windows onto [0,10], centered at 5.
func quantScore(changes marketdata.PriceChanges) float64 {
	score := 5 +
		weight90d*normalize(changes.Change90d, scale90d) +
		weight30d*normalize(changes.Change30d, scale30d) +
		weight24h*normalize(changes.Change24h, scale24h)
	return clamp(score, 0, 10)
}

// normalize squashes a percentage change onto [-10,10] with saturation.
func normalize(pctChange, scale float64) float64 {
	return 10 * math.Tanh(pctChange/scale)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// dedupeWithHolding returns candidates plus the holding, uppercased and
// deduplicated, preserving candidate order. The holding is appended last
// when absent so selection rank of model-chosen candidates is untouched.
func dedupeWithHolding(candidates []string, holding string) []string {
	holding = strings.ToUpper(strings.TrimSpace(holding))

	seen := make(map[string]bool, len(candidates)+1)
	symbols := make([]string, 0, len(candidates)+1)
	for _, candidate := range candidates {
		normalized := strings.ToUpper(strings.TrimSpace(candidate))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		symbols = append(symbols, normalized)
	}
	if holding != "" && !seen[holding] {
		symbols = append(symbols, holding)
	}

	return symbols
}
