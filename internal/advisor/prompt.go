package advisor

import (
	"fmt"
	"strings"

	"macro-compass/internal/domain"
)

const allocationPhilosophy = `You are a portfolio allocation narrator. You interpret composite valuation and trend signals, you do NOT generate signals yourself.

Signal model:
- Valuation tiers run from strongest_buy (deeply undervalued, composite z <= -2) to strongest_sell (deeply overvalued, z >= 2).
- Trend states are uptrend, neutral, downtrend, derived from averaged +1/-1 indicator votes.
- The allocation percentage is read from a fixed matrix over those two axes.

Rules:
- Reference only the numbers you are given. Never fabricate data.
- Explain what the tier pair means and why the allocation follows from it.
- If coherency flags outliers, mention that the indicator set disagrees internally and confidence is lower.
- Keep it to one short paragraph, plain language, no trade instructions.`

func BuildSystemPrompt() string {
	return allocationPhilosophy
}

func FormatSignalContext(signal domain.Signal, coherency *domain.CoherencyResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Asset: %s\n", strings.ToUpper(string(signal.Asset))))
	if signal.ValuationScore != nil {
		sb.WriteString(fmt.Sprintf("Valuation composite z: %.4f (%s)\n", *signal.ValuationScore, signal.ValuationTier))
	}
	if signal.TrendScore != nil {
		sb.WriteString(fmt.Sprintf("Trend composite: %.4f (%s)\n", *signal.TrendScore, signal.TrendTier))
	}
	sb.WriteString(fmt.Sprintf("Signal: %s\n", signal.Strength))
	sb.WriteString(fmt.Sprintf("Target allocation: %.0f%%\n", signal.AllocationPct*100))

	if coherency != nil {
		sb.WriteString(fmt.Sprintf("Indicator agreement: %.0f%%\n", coherency.AgreementRatio*100))
		if len(coherency.Outliers) > 0 {
			sb.WriteString("Disagreeing indicators: " + strings.Join(coherency.Outliers, ", ") + "\n")
		}
	}
	return sb.String()
}

// Narrative is the deterministic fallback used when no LLM is configured.
func Narrative(signal domain.Signal, coherency *domain.CoherencyResult) string {
	var sb strings.Builder

	asset := strings.ToUpper(string(signal.Asset))
	sb.WriteString(fmt.Sprintf("%s reads %s with a target allocation of %.0f%%.",
		asset, strings.ReplaceAll(string(signal.Strength), "_", " "), signal.AllocationPct*100))

	if signal.ValuationScore != nil {
		sb.WriteString(fmt.Sprintf(" Valuation composite sits at z=%.2f (%s).",
			*signal.ValuationScore, signal.ValuationTier))
	}
	if signal.TrendScore != nil {
		sb.WriteString(fmt.Sprintf(" Trend vote averages %.2f (%s).",
			*signal.TrendScore, signal.TrendTier))
	}
	if coherency != nil && len(coherency.Outliers) > 0 {
		sb.WriteString(fmt.Sprintf(" Note: %s disagree with the rest of the set, so confidence is reduced.",
			strings.Join(coherency.Outliers, ", ")))
	}
	return sb.String()
}
