package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// Universe of listings served by the simulator, grouped by market-cap band.
var simulatedUniverse = map[string][]CoinListing{
	"high": {
		{Symbol: "BTC", Name: "Bitcoin", MarketCapBand: "high"},
		{Symbol: "ETH", Name: "Ethereum", MarketCapBand: "high"},
		{Symbol: "USDT", Name: "Tether", MarketCapBand: "high"},
		{Symbol: "USDC", Name: "USD Coin", MarketCapBand: "high"},
		{Symbol: "BNB", Name: "BNB", MarketCapBand: "high"},
		{Symbol: "SOL", Name: "Solana", MarketCapBand: "high"},
		{Symbol: "XRP", Name: "XRP", MarketCapBand: "high"},
		{Symbol: "ADA", Name: "Cardano", MarketCapBand: "high"},
		{Symbol: "DOGE", Name: "Dogecoin", MarketCapBand: "high"},
		{Symbol: "AVAX", Name: "Avalanche", MarketCapBand: "high"},
	},
	"mid": {
		{Symbol: "LINK", Name: "Chainlink", MarketCapBand: "mid"},
		{Symbol: "DOT", Name: "Polkadot", MarketCapBand: "mid"},
		{Symbol: "MATIC", Name: "Polygon", MarketCapBand: "mid"},
		{Symbol: "UNI", Name: "Uniswap", MarketCapBand: "mid"},
		{Symbol: "ATOM", Name: "Cosmos", MarketCapBand: "mid"},
		{Symbol: "LTC", Name: "Litecoin", MarketCapBand: "mid"},
		{Symbol: "NEAR", Name: "NEAR Protocol", MarketCapBand: "mid"},
		{Symbol: "AAVE", Name: "Aave", MarketCapBand: "mid"},
		{Symbol: "ARB", Name: "Arbitrum", MarketCapBand: "mid"},
		{Symbol: "OP", Name: "Optimism", MarketCapBand: "mid"},
	},
	"low": {
		{Symbol: "RUNE", Name: "THORChain", MarketCapBand: "low"},
		{Symbol: "KAVA", Name: "Kava", MarketCapBand: "low"},
		{Symbol: "ROSE", Name: "Oasis Network", MarketCapBand: "low"},
		{Symbol: "CELO", Name: "Celo", MarketCapBand: "low"},
		{Symbol: "ZRX", Name: "0x Protocol", MarketCapBand: "low"},
		{Symbol: "BAND", Name: "Band Protocol", MarketCapBand: "low"},
		{Symbol: "OCEAN", Name: "Ocean Protocol", MarketCapBand: "low"},
		{Symbol: "ANKR", Name: "Ankr", MarketCapBand: "low"},
		{Symbol: "SKL", Name: "SKALE", MarketCapBand: "low"},
		{Symbol: "CTSI", Name: "Cartesi", MarketCapBand: "low"},
	},
}

// SimulatedExecutor answers tool calls with deterministic synthetic data
// derived from a hash of the symbol. The same inputs always produce the
// same outputs, which keeps pipeline runs reproducible in tests and demos.
type SimulatedExecutor struct {
	logger *slog.Logger
}

// NewSimulatedExecutor creates a deterministic tool executor.
func NewSimulatedExecutor(logger *slog.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{logger: logger}
}

// Execute dispatches a named tool call.
func (e *SimulatedExecutor) Execute(_ context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolListCoins:
		var a listCoinsArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid list_coins arguments: %w", err)
		}
		return e.listCoins(a.MarketCap), nil

	case ToolGetQuotes:
		var a symbolsArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid get_quotes arguments: %w", err)
		}
		quotes := make([]Quote, 0, len(a.Symbols))
		for _, symbol := range a.Symbols {
			quotes = append(quotes, e.quote(symbol))
		}
		return quotes, nil

	case ToolGetPriceChanges:
		var a symbolArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid get_price_changes arguments: %w", err)
		}
		if a.Symbol == "" {
			return nil, fmt.Errorf("get_price_changes requires a symbol")
		}
		return e.priceChanges(a.Symbol), nil

	case ToolGetSecurityReport:
		var a symbolArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid get_security_report arguments: %w", err)
		}
		if a.Symbol == "" {
			return nil, fmt.Errorf("get_security_report requires a symbol")
		}
		return e.securityReport(a.Symbol), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (e *SimulatedExecutor) listCoins(marketCap string) []CoinListing {
	band := strings.ToLower(strings.TrimSpace(marketCap))
	if listings, ok := simulatedUniverse[band]; ok {
		return listings
	}

	// Unknown or empty band returns the full universe.
	all := make([]CoinListing, 0, 30)
	for _, band := range []string{"high", "mid", "low"} {
		all = append(all, simulatedUniverse[band]...)
	}
	return all
}

func (e *SimulatedExecutor) quote(symbol string) Quote {
	h := symbolHash(symbol, "price")
	price := decimal.NewFromFloat(0.5 + float64(h%1_000_000)/100.0)
	return Quote{
		Symbol:    normalizeSymbol(symbol),
		PriceUSD:  price,
		Change24h: e.priceChanges(symbol).Change24h,
	}
}

func (e *SimulatedExecutor) priceChanges(symbol string) PriceChanges {
	return PriceChanges{
		Symbol:    normalizeSymbol(symbol),
		Change90d: spread(symbolHash(symbol, "90d"), -55, 120),
		Change30d: spread(symbolHash(symbol, "30d"), -35, 60),
		Change24h: spread(symbolHash(symbol, "24h"), -12, 12),
	}
}

func (e *SimulatedExecutor) securityReport(symbol string) SecurityReport {
	h := symbolHash(symbol, "security")
	report := SecurityReport{
		Symbol:        normalizeSymbol(symbol),
		AuditScore:    spread(h, 3, 10),
		IncidentCount: int(h % 4),
	}
	if report.AuditScore < 5 {
		report.Flags = append(report.Flags, "limited audit coverage")
	}
	if report.IncidentCount >= 3 {
		report.Flags = append(report.Flags, "repeated security incidents")
	}
	return report
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func symbolHash(symbol, salt string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(normalizeSymbol(symbol)))
	h.Write([]byte(":"))
	h.Write([]byte(salt))
	return h.Sum64()
}

// spread maps a hash onto [min,max] with two decimal places.
func spread(h uint64, min, max float64) float64 {
	span := max - min
	raw := min + float64(h%10_000)/10_000*span
	return float64(int(raw*100)) / 100
}
