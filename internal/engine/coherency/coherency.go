// Package coherency measures whether the indicators inside a system move
// together. Each indicator contributes a recent series of scores; the
// analyzer compares every pair and reports how much of the set agrees,
// which indicators fight the consensus, and whether the system as a whole
// can be trusted to produce a composite.
package coherency

import (
	"math"
	"sort"

	"macro-compass/internal/domain"
)

const (
	agreementThreshold    = 0.3
	disagreementThreshold = -0.3
	coherentRatio         = 0.6
	outlierAlignment      = -0.3
)

// Series is one indicator's recent score history, oldest first.
type Series struct {
	Name   string
	Values []float64
}

// Analyzer computes pairwise alignment across indicator series.
type Analyzer struct {
	minAgreement float64
}

func New() *Analyzer {
	return &Analyzer{minAgreement: coherentRatio}
}

// Analyze scores every indicator pair and folds the pairwise alignments
// into a per-indicator average. Fewer than two series is trivially
// coherent: there is nothing to disagree with.
func (a *Analyzer) Analyze(series []Series) domain.CoherencyResult {
	sorted := make([]Series, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	if len(sorted) < 2 {
		result := domain.CoherencyResult{
			PerIndicatorAlignment: map[string]float64{},
			AgreementRatio:        1.0,
			ConstructiveRatio:     1.0,
			IsCoherent:            true,
		}
		for _, s := range sorted {
			result.PerIndicatorAlignment[s.Name] = 1.0
		}
		return result
	}

	sums := make(map[string]float64, len(sorted))
	counts := make(map[string]int, len(sorted))
	constructive, destructive, mixed := 0, 0, 0
	pairs := 0

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			alignment := pairAlignment(sorted[i].Values, sorted[j].Values)
			pairs++
			switch {
			case alignment > agreementThreshold:
				constructive++
			case alignment < disagreementThreshold:
				destructive++
			default:
				mixed++
			}
			sums[sorted[i].Name] += alignment
			sums[sorted[j].Name] += alignment
			counts[sorted[i].Name]++
			counts[sorted[j].Name]++
		}
	}

	perIndicator := make(map[string]float64, len(sorted))
	var outliers []string
	for _, s := range sorted {
		avg := sums[s.Name] / float64(counts[s.Name])
		perIndicator[s.Name] = round(avg, 4)
		if avg < outlierAlignment {
			outliers = append(outliers, s.Name)
		}
	}

	total := float64(pairs)
	result := domain.CoherencyResult{
		PerIndicatorAlignment: perIndicator,
		AgreementRatio:        round(float64(constructive)/total, 4),
		ConstructiveRatio:     round(float64(constructive)/total, 4),
		DestructiveRatio:      round(float64(destructive)/total, 4),
		MixedRatio:            round(float64(mixed)/total, 4),
		Outliers:              outliers,
	}
	result.IsCoherent = result.AgreementRatio >= a.minAgreement && len(outliers) == 0
	return result
}

// pairAlignment is the Pearson correlation when both series carry enough
// history, truncated to the shared overlap. Short series fall back to the
// sign agreement of their means, which is all a single reading can say.
func pairAlignment(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n > 1 {
		if r, ok := pearson(x[len(x)-n:], y[len(y)-n:]); ok {
			return r
		}
	}
	mx, my := mean(x), mean(y)
	switch {
	case mx == 0 || my == 0:
		return 0
	case (mx > 0) == (my > 0):
		return 1
	default:
		return -1
	}
}

func pearson(x, y []float64) (float64, bool) {
	mx, my := mean(x), mean(y)
	var cov, vx, vy float64
	for i := range x {
		dx := x[i] - mx
		dy := y[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vx*vy), true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
