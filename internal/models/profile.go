package models

import "fmt"

// RiskTolerance classifies how much drawdown the user is willing to absorb.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// MarketCapBand classifies the user's preferred market-cap segment.
type MarketCapBand string

const (
	MarketCapLow  MarketCapBand = "low"
	MarketCapMid  MarketCapBand = "mid"
	MarketCapHigh MarketCapBand = "high"
)

// InvestmentHorizon classifies the intended holding period.
type InvestmentHorizon string

const (
	HorizonShortTerm InvestmentHorizon = "short-term"
	HorizonLongTerm  InvestmentHorizon = "long-term"
)

// InvestorProfile is the structured classification of a strategy's free-text
// preference, produced once by the profile stage and consumed downstream.
type InvestorProfile struct {
	CurrentHoldingSymbol string            `json:"current_holding_symbol"`
	RiskTolerance        RiskTolerance     `json:"risk_tolerance"`
	DesiredMarketCap     MarketCapBand     `json:"desired_market_cap"`
	InvestmentHorizon    InvestmentHorizon `json:"investment_horizon"`
}

// Validate checks that all four fields are present and drawn from their enums.
func (p InvestorProfile) Validate() error {
	if p.CurrentHoldingSymbol == "" {
		return fmt.Errorf("current_holding_symbol is missing")
	}
	switch p.RiskTolerance {
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("risk_tolerance %q is not one of low, medium, high", p.RiskTolerance)
	}
	switch p.DesiredMarketCap {
	case MarketCapLow, MarketCapMid, MarketCapHigh:
	default:
		return fmt.Errorf("desired_market_cap %q is not one of low, mid, high", p.DesiredMarketCap)
	}
	switch p.InvestmentHorizon {
	case HorizonShortTerm, HorizonLongTerm:
	default:
		return fmt.Errorf("investment_horizon %q is not one of short-term, long-term", p.InvestmentHorizon)
	}
	return nil
}
