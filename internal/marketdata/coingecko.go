package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// CoinGeckoExecutor answers tool calls with live data from the CoinGecko
// REST API. Selected explicitly by configuration, never by fallthrough.
type CoinGeckoExecutor struct {
	client *resty.Client
	logger *slog.Logger

	// Symbol-to-id cache; CoinGecko addresses coins by slug id. One
	// executor serves every concurrent workflow, so access is locked.
	mu  sync.RWMutex
	ids map[string]string
}

func (e *CoinGeckoExecutor) cachedID(symbol string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	id, ok := e.ids[symbol]
	return id, ok
}

func (e *CoinGeckoExecutor) storeID(symbol, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids[symbol] = id
}

// NewCoinGeckoExecutor creates a live market-data executor.
func NewCoinGeckoExecutor(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *CoinGeckoExecutor {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	if apiKey != "" {
		client.SetHeader("x-cg-demo-api-key", apiKey)
	}

	return &CoinGeckoExecutor{
		client: client,
		logger: logger,
		ids:    make(map[string]string),
	}
}

// Execute dispatches a named tool call against the live API.
func (e *CoinGeckoExecutor) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolListCoins:
		var a listCoinsArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid list_coins arguments: %w", err)
		}
		return e.listCoins(ctx, a.MarketCap)

	case ToolGetQuotes:
		var a symbolsArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid get_quotes arguments: %w", err)
		}
		quotes := make([]Quote, 0, len(a.Symbols))
		for _, symbol := range a.Symbols {
			quote, err := e.quote(ctx, symbol)
			if err != nil {
				return nil, err
			}
			quotes = append(quotes, quote)
		}
		return quotes, nil

	case ToolGetPriceChanges:
		var a symbolArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid get_price_changes arguments: %w", err)
		}
		return e.priceChanges(ctx, a.Symbol)

	case ToolGetSecurityReport:
		var a symbolArgs
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, fmt.Errorf("invalid get_security_report arguments: %w", err)
		}
		return e.securityReport(ctx, a.Symbol)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

type geckoMarket struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	Change24h    float64 `json:"price_change_percentage_24h"`
}

// Market-cap band thresholds in USD.
const (
	highCapFloor = 10_000_000_000
	midCapFloor  = 500_000_000
)

func (e *CoinGeckoExecutor) listCoins(ctx context.Context, marketCap string) ([]CoinListing, error) {
	var markets []geckoMarket
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"order":       "market_cap_desc",
			"per_page":    "250",
			"page":        "1",
		}).
		SetResult(&markets).
		Get("/coins/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to list coins: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("coins/markets returned status %d", resp.StatusCode())
	}

	band := strings.ToLower(strings.TrimSpace(marketCap))
	listings := make([]CoinListing, 0, len(markets))
	for _, market := range markets {
		marketBand := capBand(market.MarketCap)
		if band != "" && band != marketBand {
			continue
		}
		e.storeID(normalizeSymbol(market.Symbol), market.ID)
		listings = append(listings, CoinListing{
			Symbol:        normalizeSymbol(market.Symbol),
			Name:          market.Name,
			MarketCapBand: marketBand,
		})
	}

	return listings, nil
}

func capBand(marketCapUSD float64) string {
	switch {
	case marketCapUSD >= highCapFloor:
		return "high"
	case marketCapUSD >= midCapFloor:
		return "mid"
	default:
		return "low"
	}
}

func (e *CoinGeckoExecutor) quote(ctx context.Context, symbol string) (Quote, error) {
	id, err := e.resolveID(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}

	var markets []geckoMarket
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"ids":         id,
		}).
		SetResult(&markets).
		Get("/coins/markets")
	if err != nil {
		return Quote{}, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 || len(markets) == 0 {
		return Quote{}, fmt.Errorf("no quote available for %s (status %d)", symbol, resp.StatusCode())
	}

	return Quote{
		Symbol:    normalizeSymbol(symbol),
		PriceUSD:  decimal.NewFromFloat(markets[0].CurrentPrice),
		Change24h: markets[0].Change24h,
	}, nil
}

type geckoChart struct {
	Prices [][]float64 `json:"prices"`
}

func (e *CoinGeckoExecutor) priceChanges(ctx context.Context, symbol string) (PriceChanges, error) {
	id, err := e.resolveID(ctx, symbol)
	if err != nil {
		return PriceChanges{}, err
	}

	var chart geckoChart
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": "usd",
			"days":        "90",
			"interval":    "daily",
		}).
		SetResult(&chart).
		Get("/coins/" + id + "/market_chart")
	if err != nil {
		return PriceChanges{}, fmt.Errorf("failed to fetch price history for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 || len(chart.Prices) < 2 {
		return PriceChanges{}, fmt.Errorf("no price history for %s (status %d)", symbol, resp.StatusCode())
	}

	latest := chart.Prices[len(chart.Prices)-1][1]

	return PriceChanges{
		Symbol:    normalizeSymbol(symbol),
		Change90d: percentChange(chart.Prices[0][1], latest),
		Change30d: percentChange(priceAt(chart.Prices, 30), latest),
		Change24h: percentChange(priceAt(chart.Prices, 1), latest),
	}, nil
}

// priceAt returns the price daysAgo from the end of a daily series.
func priceAt(prices [][]float64, daysAgo int) float64 {
	idx := len(prices) - 1 - daysAgo
	if idx < 0 {
		idx = 0
	}
	return prices[idx][1]
}

func percentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// securityReport derives a coarse security posture from public listing
// metadata. Live security scoring is intentionally conservative; the
// qualitative stage treats it as one input, not an oracle.
func (e *CoinGeckoExecutor) securityReport(ctx context.Context, symbol string) (SecurityReport, error) {
	id, err := e.resolveID(ctx, symbol)
	if err != nil {
		return SecurityReport{}, err
	}

	var detail struct {
		SentimentUp   float64 `json:"sentiment_votes_up_percentage"`
		PublicNotice  string  `json:"public_notice"`
		MarketCapRank int     `json:"market_cap_rank"`
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"localization":   "false",
			"tickers":        "false",
			"market_data":    "false",
			"community_data": "false",
			"developer_data": "false",
		}).
		SetResult(&detail).
		Get("/coins/" + id)
	if err != nil {
		return SecurityReport{}, fmt.Errorf("failed to fetch coin detail for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return SecurityReport{}, fmt.Errorf("no coin detail for %s (status %d)", symbol, resp.StatusCode())
	}

	report := SecurityReport{
		Symbol:     normalizeSymbol(symbol),
		AuditScore: 5 + detail.SentimentUp/25, // Rough [5,9] band from sentiment
	}
	if detail.PublicNotice != "" {
		report.IncidentCount = 1
		report.Flags = append(report.Flags, "active public notice")
	}
	if detail.MarketCapRank == 0 || detail.MarketCapRank > 500 {
		report.Flags = append(report.Flags, "thin market presence")
	}
	if report.AuditScore > 10 {
		report.AuditScore = 10
	}

	return report, nil
}

func (e *CoinGeckoExecutor) resolveID(ctx context.Context, symbol string) (string, error) {
	normalized := normalizeSymbol(symbol)
	if id, ok := e.cachedID(normalized); ok {
		return id, nil
	}

	var result struct {
		Coins []struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"coins"`
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParam("query", normalized).
		SetResult(&result).
		Get("/search")
	if err != nil {
		return "", fmt.Errorf("failed to resolve symbol %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("symbol search returned status %d", resp.StatusCode())
	}

	for _, coin := range result.Coins {
		if normalizeSymbol(coin.Symbol) == normalized {
			e.storeID(normalized, coin.ID)
			return coin.ID, nil
		}
	}

	return "", fmt.Errorf("unknown symbol: %s", symbol)
}
