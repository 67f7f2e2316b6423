package domain

import "time"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is a single construction-rule violation. Errors block
// save/compute; warnings are advisory.
type ValidationIssue struct {
	Rule          string   `json:"rule"`
	Message       string   `json:"message"`
	Severity      Severity `json:"severity"`
	IndicatorName string   `json:"indicator_name,omitempty"`
}

type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// CoherencyResult reports how much a system's indicators agree with each
// other. All ratios are in [0,1]; alignment values are in [-1,1].
type CoherencyResult struct {
	PerIndicatorAlignment map[string]float64 `json:"per_indicator_alignment"`
	AgreementRatio        float64            `json:"agreement_ratio"`
	ConstructiveRatio     float64            `json:"constructive_ratio"`
	DestructiveRatio      float64            `json:"destructive_ratio"`
	MixedRatio            float64            `json:"mixed_ratio"`
	Outliers              []string           `json:"outliers"`
	IsCoherent            bool               `json:"is_coherent"`
}

type ValuationTier string

const (
	TierStrongestBuy  ValuationTier = "strongest_buy"
	TierBuy           ValuationTier = "buy"
	TierHold          ValuationTier = "hold"
	TierSell          ValuationTier = "sell"
	TierStrongestSell ValuationTier = "strongest_sell"
)

type TrendTier string

const (
	TrendUp      TrendTier = "uptrend"
	TrendNeutral TrendTier = "neutral"
	TrendDown    TrendTier = "downtrend"
)

type SignalStrength string

const (
	StrengthStrongestBuy  SignalStrength = "strongest_buy"
	StrengthCautiousBuy   SignalStrength = "cautious_buy"
	StrengthLightBuy      SignalStrength = "light_buy"
	StrengthHold          SignalStrength = "hold"
	StrengthReduce        SignalStrength = "reduce"
	StrengthPartialProfit SignalStrength = "partial_profit"
	StrengthStrongestSell SignalStrength = "strongest_sell"
)

// Signal is the terminal artifact of one pipeline run against a valid system
// pair. Immutable once created; history is append-only.
type Signal struct {
	ID             int64          `json:"id"`
	Asset          Asset          `json:"asset"`
	SystemID       int64          `json:"system_id"`
	ValuationScore *float64       `json:"valuation_score,omitempty"`
	TrendScore     *float64       `json:"trend_score,omitempty"`
	ValuationTier  ValuationTier  `json:"valuation_tier,omitempty"`
	TrendTier      TrendTier      `json:"trend_tier,omitempty"`
	Strength       SignalStrength `json:"signal_strength"`
	AllocationPct  float64        `json:"allocation_pct"`
	ComputedAt     time.Time      `json:"computed_at"`
}
