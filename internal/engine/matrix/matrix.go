// Package matrix holds the allocation table that turns a valuation tier
// and a trend tier into a target allocation percentage. The table is
// fixed: rows are the five valuation tiers, columns the three trend
// states, and every cell is a fraction of the portfolio in [0, 1].
package matrix

import (
	"fmt"
	"sort"

	"macro-compass/internal/domain"
)

var allocations = map[domain.ValuationTier]map[domain.TrendTier]float64{
	domain.TierStrongestBuy: {
		domain.TrendUp:      1.00,
		domain.TrendNeutral: 0.85,
		domain.TrendDown:    0.70,
	},
	domain.TierBuy: {
		domain.TrendUp:      0.85,
		domain.TrendNeutral: 0.70,
		domain.TrendDown:    0.55,
	},
	domain.TierHold: {
		domain.TrendUp:      0.50,
		domain.TrendNeutral: 0.30,
		domain.TrendDown:    0.15,
	},
	domain.TierSell: {
		domain.TrendUp:      0.35,
		domain.TrendNeutral: 0.20,
		domain.TrendDown:    0.05,
	},
	domain.TierStrongestSell: {
		domain.TrendUp:      0.15,
		domain.TrendNeutral: 0.05,
		domain.TrendDown:    0.00,
	},
}

// Rows and Columns fix the display order of the table.
var (
	Rows = []domain.ValuationTier{
		domain.TierStrongestBuy, domain.TierBuy, domain.TierHold,
		domain.TierSell, domain.TierStrongestSell,
	}
	Columns = []domain.TrendTier{domain.TrendUp, domain.TrendNeutral, domain.TrendDown}
)

// Resolve returns the allocation for a tier pair.
func Resolve(valuation domain.ValuationTier, trend domain.TrendTier) (float64, error) {
	row, ok := allocations[valuation]
	if !ok {
		return 0, fmt.Errorf("matrix: unknown valuation tier %q", valuation)
	}
	pct, ok := row[trend]
	if !ok {
		return 0, fmt.Errorf("matrix: unknown trend tier %q", trend)
	}
	return pct, nil
}

// ResolveValuationOnly answers for assets without a trend system by
// reading the neutral column.
func ResolveValuationOnly(valuation domain.ValuationTier) (float64, error) {
	return Resolve(valuation, domain.TrendNeutral)
}

// Table returns a copy of the full matrix for display.
func Table() map[domain.ValuationTier]map[domain.TrendTier]float64 {
	out := make(map[domain.ValuationTier]map[domain.TrendTier]float64, len(allocations))
	for tier, row := range allocations {
		cells := make(map[domain.TrendTier]float64, len(row))
		for trend, pct := range row {
			cells[trend] = pct
		}
		out[tier] = cells
	}
	return out
}

// LabelFor names the combined stance of a tier pair.
func LabelFor(valuation domain.ValuationTier, trend domain.TrendTier) domain.SignalStrength {
	switch valuation {
	case domain.TierStrongestBuy:
		if trend == domain.TrendDown {
			return domain.StrengthCautiousBuy
		}
		return domain.StrengthStrongestBuy
	case domain.TierBuy:
		if trend == domain.TrendDown {
			return domain.StrengthCautiousBuy
		}
		return domain.StrengthLightBuy
	case domain.TierHold:
		switch trend {
		case domain.TrendUp:
			return domain.StrengthLightBuy
		case domain.TrendDown:
			return domain.StrengthReduce
		default:
			return domain.StrengthHold
		}
	case domain.TierSell:
		if trend == domain.TrendUp {
			return domain.StrengthPartialProfit
		}
		return domain.StrengthReduce
	default:
		if trend == domain.TrendUp {
			return domain.StrengthPartialProfit
		}
		return domain.StrengthStrongestSell
	}
}

// QuadrantLabel names the stance straight from the raw scores, for
// signal text on systems that have only one side of the picture.
// trendRatio is the averaged ±1 vote; pass 0 when no trend system
// exists.
func QuadrantLabel(z, trendRatio float64) domain.SignalStrength {
	undervalued := z <= -1
	overvalued := z >= 1
	up := trendRatio > 0.2
	down := trendRatio < -0.2

	switch {
	case undervalued && up:
		return domain.StrengthStrongestBuy
	case undervalued && down:
		return domain.StrengthCautiousBuy
	case undervalued:
		return domain.StrengthLightBuy
	case overvalued && up:
		return domain.StrengthPartialProfit
	case overvalued && down:
		return domain.StrengthStrongestSell
	case overvalued:
		return domain.StrengthReduce
	case down:
		return domain.StrengthReduce
	case up:
		return domain.StrengthLightBuy
	default:
		return domain.StrengthHold
	}
}

// AssetAllocation is one asset's share of the portfolio.
type AssetAllocation struct {
	Asset domain.Asset `json:"asset"`
	Pct   float64      `json:"pct"`
}

// PortfolioAllocation combines per-asset allocations into a portfolio
// view. Shares are reported as given and summed without normalizing;
// the total may exceed 1 when several assets signal strongly, which is
// the caller's leverage decision to make.
func PortfolioAllocation(byAsset map[domain.Asset]float64) ([]AssetAllocation, float64) {
	assets := make([]domain.Asset, 0, len(byAsset))
	for asset := range byAsset {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })

	out := make([]AssetAllocation, 0, len(assets))
	total := 0.0
	for _, asset := range assets {
		out = append(out, AssetAllocation{Asset: asset, Pct: byAsset[asset]})
		total += byAsset[asset]
	}
	return out, total
}
