package advisor

import (
	"fmt"
	"strings"

	"github.com/coinpilot/coinpilot/internal/models"
)

const (
	profileSystemPrompt = "You are a crypto investment profiler. Classify the investor's free-text " +
		"preference into a structured profile and respond with valid JSON only."

	screenerSystemPrompt = "You are a crypto market screener. Use the available tools to explore the " +
		"market, then select candidate coins matching the investor profile. Your final message must be " +
		"a JSON array of ticker symbols and nothing else."

	qualitativeSystemPrompt = "You are a crypto due-diligence analyst. Rate each coin's reputational " +
		"and security cleanliness on a 0-10 scale using the briefing provided. Respond with valid JSON only."

	committeeSystemPrompt = "You are the chair of a crypto investment committee. Weigh the scored " +
		"alternatives against the investor's current holding and issue one final decision. Respond with " +
		"valid JSON only."
)

func buildProfilePrompt(strategy *models.Strategy) string {
	var sb strings.Builder

	sb.WriteString("Classify this investment strategy into a structured investor profile.\n\n")
	sb.WriteString(fmt.Sprintf("STRATEGY NAME: %s\n", strategy.Name))
	sb.WriteString(fmt.Sprintf("CURRENT HOLDING: %s (amount: %s)\n", strategy.Coin, strategy.Amount))
	sb.WriteString("INVESTOR PREFERENCE:\n")
	sb.WriteString(strategy.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Respond with a JSON object in exactly this shape:\n\n")
	sb.WriteString("{\n")
	sb.WriteString(fmt.Sprintf("  \"current_holding_symbol\": \"%s\",\n", strategy.Coin))
	sb.WriteString("  \"risk_tolerance\": \"low\" | \"medium\" | \"high\",\n")
	sb.WriteString("  \"desired_market_cap\": \"low\" | \"mid\" | \"high\",\n")
	sb.WriteString("  \"investment_horizon\": \"short-term\" | \"long-term\"\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Every field is required. Do not invent values outside the listed options.\n")

	return sb.String()
}

func buildScreenerPrompt(profile *models.InvestorProfile, limit int) string {
	var sb strings.Builder

	sb.WriteString("Select candidate coins for this investor profile:\n\n")
	sb.WriteString(fmt.Sprintf("  current holding:    %s\n", profile.CurrentHoldingSymbol))
	sb.WriteString(fmt.Sprintf("  risk tolerance:     %s\n", profile.RiskTolerance))
	sb.WriteString(fmt.Sprintf("  desired market cap: %s\n", profile.DesiredMarketCap))
	sb.WriteString(fmt.Sprintf("  investment horizon: %s\n\n", profile.InvestmentHorizon))

	sb.WriteString("Use the list_coins tool to see what is available in the desired market-cap band ")
	sb.WriteString("and the get_quotes tool to check prices where useful. Favor liquidity and ")
	sb.WriteString("diversity appropriate to the risk tolerance.\n\n")
	sb.WriteString(fmt.Sprintf("When you are done, reply with ONLY a JSON array of at most %d unique ticker symbols, for example:\n\n", limit))
	sb.WriteString("[\"BTC\", \"ETH\", \"SOL\"]\n")

	return sb.String()
}

func buildQualitativePrompt(selected []models.ScoredCoin, briefings map[string]string) string {
	var sb strings.Builder

	sb.WriteString("Assess the reputational and security posture of these coins.\n\n")
	for _, coin := range selected {
		sb.WriteString(fmt.Sprintf("=== %s (quant score %.1f) ===\n", coin.Symbol, coin.QuantScore))
		if briefing, ok := briefings[coin.Symbol]; ok {
			sb.WriteString("Security briefing: ")
			sb.WriteString(briefing)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Score each coin from 0 (untrustworthy) to 10 (impeccable), weighing audit ")
	sb.WriteString("coverage, incident history, and general reputation.\n\n")
	sb.WriteString("Respond with a JSON object in exactly this shape:\n\n")
	sb.WriteString("{\n  \"scores\": {\n")
	for i, coin := range selected {
		sb.WriteString(fmt.Sprintf("    \"%s\": 7.5", coin.Symbol))
		if i < len(selected)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  }\n}\n")

	return sb.String()
}

func buildCommitteePrompt(coins []models.ScoredCoin, holding string, amount string, horizon models.InvestmentHorizon, prev *models.PreviousRecommendation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("The investor currently holds %s %s with a %s horizon.\n\n", amount, holding, horizon))

	sb.WriteString("SCORED ALTERNATIVES (combined = average of quant and qualitative where both exist):\n\n")
	for _, coin := range coins {
		marker := ""
		if coin.IsCurrentHolding {
			marker = "  <- current holding"
		}
		if coin.QualitativeScore != nil {
			sb.WriteString(fmt.Sprintf("  %-6s quant %.1f  qual %.1f  combined %.1f%s\n",
				coin.Symbol, coin.QuantScore, *coin.QualitativeScore, coin.CombinedScore(), marker))
		} else {
			sb.WriteString(fmt.Sprintf("  %-6s quant %.1f  (no qualitative review)%s\n",
				coin.Symbol, coin.QuantScore, marker))
		}
	}
	sb.WriteString("\n")

	if prev != nil {
		sb.WriteString("PREVIOUS RECOMMENDATION (for consistency, not binding):\n")
		sb.WriteString(fmt.Sprintf("  issued:    %s\n", prev.Timestamp.Format("2006-01-02")))
		sb.WriteString(fmt.Sprintf("  advice:    %s\n", prev.Recommendation))
		sb.WriteString(fmt.Sprintf("  duration:  %s\n", prev.OriginalDuration))
		sb.WriteString(fmt.Sprintf("  rationale: %s\n\n", prev.Justification))
	}

	sb.WriteString("Compare the current holding's combined score against the alternatives and decide.\n\n")
	sb.WriteString("Respond with a JSON object in exactly this shape:\n\n")
	sb.WriteString("{\n")
	sb.WriteString(fmt.Sprintf("  \"recommendation\": \"Swap %s for <SYMBOL> and hold for <duration>\",\n", holding))
	sb.WriteString("  \"explanation\": \"two or three sentences of rationale\"\n")
	sb.WriteString("}\n\n")
	sb.WriteString("If holding is the better choice, the recommendation must instead read exactly:\n")
	sb.WriteString(fmt.Sprintf("\"Don't swap anything and hold %s for more <duration>\"\n", holding))

	return sb.String()
}
