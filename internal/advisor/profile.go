package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/models"
)

// runProfile classifies the strategy's free-text preference into a
// structured investor profile. Single gateway call, no tools. A missing or
// out-of-enum field fails the stage; the profiler never guesses.
func (a *Advisor) runProfile(ctx context.Context, strategy *models.Strategy) (*models.InvestorProfile, error) {
	req := inference.UserRequest(a.cfg.Model, profileSystemPrompt, buildProfilePrompt(strategy), 0.1, 1024)
	req.Operation = StageProfile

	resp, err := a.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := inference.ExtractObject(resp.Text, "risk_tolerance")
	if err != nil {
		return nil, err
	}

	var profile models.InvestorProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, &inference.ValidationError{Reason: fmt.Sprintf("profile is not a valid object: %v", err)}
	}

	// The model occasionally rewrites the holding symbol; the strategy is
	// authoritative.
	profile.CurrentHoldingSymbol = strings.ToUpper(strings.TrimSpace(strategy.Coin))

	if err := profile.Validate(); err != nil {
		return nil, &inference.ValidationError{Reason: err.Error()}
	}

	a.logger.Info("investor profile classified",
		"strategy_id", strategy.ID,
		"risk_tolerance", profile.RiskTolerance,
		"desired_market_cap", profile.DesiredMarketCap,
		"investment_horizon", profile.InvestmentHorizon)

	return &profile, nil
}
