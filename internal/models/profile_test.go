package models

import "testing"

func TestInvestorProfileValidate(t *testing.T) {
	valid := InvestorProfile{
		CurrentHoldingSymbol: "USDC",
		RiskTolerance:        RiskLow,
		DesiredMarketCap:     MarketCapHigh,
		InvestmentHorizon:    HorizonLongTerm,
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid profile failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*InvestorProfile)
	}{
		{"missing holding", func(p *InvestorProfile) { p.CurrentHoldingSymbol = "" }},
		{"bad risk tolerance", func(p *InvestorProfile) { p.RiskTolerance = "extreme" }},
		{"bad market cap", func(p *InvestorProfile) { p.DesiredMarketCap = "mega" }},
		{"bad horizon", func(p *InvestorProfile) { p.InvestmentHorizon = "forever" }},
		{"empty risk tolerance", func(p *InvestorProfile) { p.RiskTolerance = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestScoredCoinCombinedScore(t *testing.T) {
	coin := ScoredCoin{Symbol: "BTC", QuantScore: 8.0}
	if got := coin.CombinedScore(); got != 8.0 {
		t.Errorf("combined score without qualitative = %v, want 8.0", got)
	}

	qual := 6.0
	coin.QualitativeScore = &qual
	if got := coin.CombinedScore(); got != 7.0 {
		t.Errorf("combined score with qualitative = %v, want 7.0", got)
	}
}

func TestCreateStrategyRequestValidate(t *testing.T) {
	valid := CreateStrategyRequest{
		Name:        "Conservative DeFi Yield",
		Description: "stable yield farming, low risk",
		Coin:        "USDC",
		Amount:      "10000",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request failed validation: %v", err)
	}

	bad := valid
	bad.Amount = "ten thousand"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for non-decimal amount")
	}

	sched := valid
	sched.ScheduleEnabled = true
	sched.ScheduleInterval = 0
	if err := sched.Validate(); err == nil {
		t.Error("expected error for zero schedule interval")
	}
}
