package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/models"
)

// Contractual shapes for the committee's recommendation string.
var (
	swapPattern = regexp.MustCompile(`^Swap .+ for .+ and hold for .+$`)
	holdPattern = regexp.MustCompile(`^Don't swap anything and hold .+ for more .+$`)
)

// runCommittee synthesizes the scored coins and any previous recommendation
// into the final decision. A recommendation string outside the contractual
// format fails the stage; malformed advice is never passed to users.
func (a *Advisor) runCommittee(ctx context.Context, coins []models.ScoredCoin, strategy *models.Strategy, horizon models.InvestmentHorizon, prev *models.PreviousRecommendation) (*models.CommitteeDecision, error) {
	holding := strings.ToUpper(strings.TrimSpace(strategy.Coin))
	prompt := buildCommitteePrompt(coins, holding, strategy.Amount.String(), horizon, prev)

	req := inference.UserRequest(a.cfg.Model, committeeSystemPrompt, prompt, 0.3, 2048)
	req.Operation = StageCommittee

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := inference.ExtractObject(resp.Text, "recommendation")
	if err != nil {
		return nil, err
	}

	var decision models.CommitteeDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, &inference.ValidationError{Reason: fmt.Sprintf("committee decision is not a valid object: %v", err)}
	}

	decision.Recommendation = strings.TrimSpace(decision.Recommendation)
	if err := validateRecommendation(decision.Recommendation); err != nil {
		return nil, err
	}
	if strings.TrimSpace(decision.Explanation) == "" {
		return nil, &inference.ValidationError{Reason: "committee decision has no explanation"}
	}

	a.logger.Info("committee decision reached",
		"strategy_id", strategy.ID,
		"recommendation", decision.Recommendation)

	return &decision, nil
}

func validateRecommendation(recommendation string) error {
	if swapPattern.MatchString(recommendation) || holdPattern.MatchString(recommendation) {
		return nil
	}
	return &inference.ValidationError{
		Reason: fmt.Sprintf("recommendation %q does not match the required action format", recommendation),
	}
}

// IsSwap reports whether a recommendation string advises swapping.
func IsSwap(recommendation string) bool {
	return strings.HasPrefix(recommendation, "Swap")
}
