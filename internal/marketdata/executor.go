// Package marketdata provides the tool executors backing the advisory
// pipeline's tool calls. Two implementations exist: a deterministic
// simulator and a live CoinGecko client. Both return the same shapes, so
// pipeline stages behave identically regardless of data provenance.
package marketdata

import "github.com/shopspring/decimal"

// Tool names the pipeline exposes to the model.
const (
	ToolListCoins         = "list_coins"
	ToolGetQuotes         = "get_quotes"
	ToolGetPriceChanges   = "get_price_changes"
	ToolGetSecurityReport = "get_security_report"
)

// CoinListing is a single entry returned by the list_coins tool.
type CoinListing struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapBand string `json:"market_cap_band"`
}

// Quote is a point-in-time price snapshot returned by get_quotes.
type Quote struct {
	Symbol    string          `json:"symbol"`
	PriceUSD  decimal.Decimal `json:"price_usd"`
	Change24h float64         `json:"24h_change"`
}

// PriceChanges carries the three momentum windows used by the quantitative
// stage, as percentage deltas.
type PriceChanges struct {
	Symbol    string  `json:"symbol"`
	Change90d float64 `json:"90d_change"`
	Change30d float64 `json:"30d_change"`
	Change24h float64 `json:"24h_change"`
}

// SecurityReport summarizes a coin's reputational and security posture for
// the qualitative stage.
type SecurityReport struct {
	Symbol        string   `json:"symbol"`
	AuditScore    float64  `json:"audit_score"` // [0,10]
	IncidentCount int      `json:"incident_count"`
	Flags         []string `json:"flags,omitempty"`
}

type listCoinsArgs struct {
	MarketCap string `json:"market_cap"`
}

type symbolsArgs struct {
	Symbols []string `json:"symbols"`
}

type symbolArgs struct {
	Symbol string `json:"symbol"`
}
