// Package composite folds per-indicator readings into a single system
// score and maps that score onto a discrete tier. Valuation systems
// average z-scores and land in one of five tiers; trend systems average
// ±1 votes and land in one of three.
package composite

import (
	"errors"
	"math"
	"sort"

	"macro-compass/internal/domain"
)

// ErrEmptyIndicatorSet is returned when there is nothing to score.
var ErrEmptyIndicatorSet = errors.New("composite: no indicators to score")

const (
	trendUpThreshold   = 0.2
	trendDownThreshold = -0.2
	scoreRounding      = 4
)

// ValuationScore is the averaged z of a valuation system with its
// per-category breakdown.
type ValuationScore struct {
	Composite  float64
	Tier       domain.ValuationTier
	ByCategory map[domain.ValuationCategory]float64
	Count      int
}

// TrendScore is the averaged vote of a trend system.
type TrendScore struct {
	Composite  float64
	Tier       domain.TrendTier
	ByCategory map[domain.TrendCategory]float64
	Count      int
}

// Scorer computes composite scores. Weights are optional per-category
// multipliers applied before averaging; a nil map weighs everything
// equally.
type Scorer struct {
	valuationWeights map[domain.ValuationCategory]float64
}

func New() *Scorer {
	return &Scorer{}
}

// NewWeighted builds a scorer with per-category valuation weights.
// Categories absent from the map default to weight 1.
func NewWeighted(weights map[domain.ValuationCategory]float64) *Scorer {
	return &Scorer{valuationWeights: weights}
}

// ScoreValuation averages indicator z-scores into a composite in [-4, 4]
// and assigns the tier. Indicator order does not affect the result.
func (s *Scorer) ScoreValuation(indicators []domain.ValuationIndicator) (ValuationScore, error) {
	if len(indicators) == 0 {
		return ValuationScore{}, ErrEmptyIndicatorSet
	}

	catSums := map[domain.ValuationCategory]float64{}
	catCounts := map[domain.ValuationCategory]int{}
	var weightedSum, weightTotal float64
	for _, ind := range indicators {
		weight := s.valuationWeight(ind.Category)
		weightedSum += ind.ZScore * weight
		weightTotal += weight
		catSums[ind.Category] += ind.ZScore
		catCounts[ind.Category]++
	}

	byCategory := make(map[domain.ValuationCategory]float64, len(catSums))
	for _, cat := range sortedCategories(catCounts) {
		byCategory[cat] = round(catSums[cat] / float64(catCounts[cat]))
	}

	composite := round(weightedSum / weightTotal)
	return ValuationScore{
		Composite:  composite,
		Tier:       ValuationTierFor(composite),
		ByCategory: byCategory,
		Count:      len(indicators),
	}, nil
}

// ScoreTrend averages the ±1 votes into a composite in [-1, 1].
func (s *Scorer) ScoreTrend(indicators []domain.TrendIndicator) (TrendScore, error) {
	if len(indicators) == 0 {
		return TrendScore{}, ErrEmptyIndicatorSet
	}

	catSums := map[domain.TrendCategory]float64{}
	catCounts := map[domain.TrendCategory]int{}
	sum := 0.0
	for _, ind := range indicators {
		sum += float64(ind.Score)
		catSums[ind.Category] += float64(ind.Score)
		catCounts[ind.Category]++
	}

	byCategory := make(map[domain.TrendCategory]float64, len(catSums))
	for cat, catSum := range catSums {
		byCategory[cat] = round(catSum / float64(catCounts[cat]))
	}

	composite := round(sum / float64(len(indicators)))
	return TrendScore{
		Composite:  composite,
		Tier:       TrendTierFor(composite),
		ByCategory: byCategory,
		Count:      len(indicators),
	}, nil
}

// ValuationTierFor maps a composite z onto the five-tier scale. Low z
// means undervalued, so the buy side sits below zero.
func ValuationTierFor(z float64) domain.ValuationTier {
	switch {
	case z <= -2:
		return domain.TierStrongestBuy
	case z <= -1:
		return domain.TierBuy
	case z < 1:
		return domain.TierHold
	case z < 2:
		return domain.TierSell
	default:
		return domain.TierStrongestSell
	}
}

// TrendTierFor maps an averaged vote onto the three-state trend scale.
func TrendTierFor(score float64) domain.TrendTier {
	switch {
	case score > trendUpThreshold:
		return domain.TrendUp
	case score < trendDownThreshold:
		return domain.TrendDown
	default:
		return domain.TrendNeutral
	}
}

func (s *Scorer) valuationWeight(cat domain.ValuationCategory) float64 {
	if s.valuationWeights == nil {
		return 1
	}
	if w, ok := s.valuationWeights[cat]; ok && w > 0 {
		return w
	}
	return 1
}

func sortedCategories(counts map[domain.ValuationCategory]int) []domain.ValuationCategory {
	cats := make([]domain.ValuationCategory, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

func round(v float64) float64 {
	factor := math.Pow(10, scoreRounding)
	return math.Round(v*factor) / factor
}
