package models

// ScoredCoin carries a candidate's price momentum and scores through the
// quantitative and qualitative stages. QualitativeScore stays nil for coins
// that were not selected for qualitative review.
type ScoredCoin struct {
	Symbol           string   `json:"symbol"`
	Change90d        float64  `json:"90d_change"`
	Change30d        float64  `json:"30d_change"`
	Change24h        float64  `json:"24h_change"`
	QuantScore       float64  `json:"quant_score"`
	QualitativeScore *float64 `json:"qualitative_score,omitempty"`
	IsCurrentHolding bool     `json:"is_current_holding,omitempty"`
}

// CombinedScore averages quant and qualitative scores where both exist,
// falling back to the quant score alone.
func (c ScoredCoin) CombinedScore() float64 {
	if c.QualitativeScore == nil {
		return c.QuantScore
	}
	return (c.QuantScore + *c.QualitativeScore) / 2
}
