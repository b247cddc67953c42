package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/models"
)

// Number of quant leaders selected for qualitative review. The current
// holding joins the selection even when it sits below the cut.
const qualitativeSelectionSize = 5

// runQualitative assigns a 0-10 reputational score to the top quant coins
// plus the current holding. Security briefings come from the tool executor;
// a briefing failure downgrades to "no data" rather than failing the stage.
// Non-selected coins pass through with no qualitative score.
func (a *Advisor) runQualitative(ctx context.Context, coins []models.ScoredCoin, holding string) ([]models.ScoredCoin, int, error) {
	selected := selectForReview(coins, holding)
	if len(selected) == 0 {
		return coins, 0, nil
	}

	briefings := make(map[string]string, len(selected))
	toolCalls := 0
	for _, coin := range selected {
		args, _ := json.Marshal(map[string]string{"symbol": coin.Symbol})
		toolCalls++

		result, err := a.executor.Execute(ctx, marketdata.ToolGetSecurityReport, args)
		if err != nil {
			a.logger.Warn("security report unavailable", "symbol", coin.Symbol, "error", err)
			briefings[coin.Symbol] = "no security data available"
			continue
		}
		payload, err := json.Marshal(result)
		if err != nil {
			briefings[coin.Symbol] = "no security data available"
			continue
		}
		briefings[coin.Symbol] = string(payload)
	}

	req := inference.UserRequest(a.cfg.Model, qualitativeSystemPrompt, buildQualitativePrompt(selected, briefings), 0.2, 2048)
	req.Operation = StageQualitative

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return nil, toolCalls, err
	}

	raw, err := inference.ExtractObject(resp.Text, "scores")
	if err != nil {
		return nil, toolCalls, err
	}

	var parsed struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, toolCalls, &inference.ValidationError{Reason: fmt.Sprintf("qualitative scores are not a valid object: %v", err)}
	}

	selectedSet := make(map[string]bool, len(selected))
	for _, coin := range selected {
		selectedSet[coin.Symbol] = true
		score, ok := parsed.Scores[coin.Symbol]
		if !ok {
			return nil, toolCalls, &inference.ValidationError{Reason: fmt.Sprintf("qualitative score missing for %s", coin.Symbol)}
		}
		if score < 0 || score > 10 {
			return nil, toolCalls, &inference.ValidationError{Reason: fmt.Sprintf("qualitative score %.2f for %s out of range [0,10]", score, coin.Symbol)}
		}
	}

	out := make([]models.ScoredCoin, len(coins))
	for i, coin := range coins {
		out[i] = coin
		if selectedSet[coin.Symbol] {
			score := parsed.Scores[coin.Symbol]
			out[i].QualitativeScore = &score
		}
	}

	a.logger.Info("qualitative scores assigned",
		"reviewed", len(selected),
		"passed_through", len(coins)-len(selected))

	return out, toolCalls, nil
}

// selectForReview picks the top coins by quant score plus the current
// holding when it falls outside the cut. Ties break by symbol so selection
// is reproducible.
func selectForReview(coins []models.ScoredCoin, holding string) []models.ScoredCoin {
	ranked := make([]models.ScoredCoin, len(coins))
	copy(ranked, coins)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].QuantScore != ranked[j].QuantScore {
			return ranked[i].QuantScore > ranked[j].QuantScore
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	limit := qualitativeSelectionSize
	if limit > len(ranked) {
		limit = len(ranked)
	}
	selected := ranked[:limit]

	holdingIncluded := false
	for _, coin := range selected {
		if coin.Symbol == holding {
			holdingIncluded = true
			break
		}
	}
	if !holdingIncluded {
		for _, coin := range ranked[limit:] {
			if coin.Symbol == holding {
				selected = append(selected, coin)
				break
			}
		}
	}

	return selected
}
