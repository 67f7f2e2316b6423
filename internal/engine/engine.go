// Package engine runs the full signal pipeline: validate the system,
// refresh z-scores from raw series where provided, check indicator
// coherency, fold readings into composite scores, and resolve the
// allocation matrix into a signal.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"macro-compass/internal/domain"
	"macro-compass/internal/engine/coherency"
	"macro-compass/internal/engine/composite"
	"macro-compass/internal/engine/matrix"
	"macro-compass/internal/engine/validation"
	"macro-compass/internal/engine/zscore"
)

// ErrInvalidSystem is returned when validation fails; the issues ride
// along in the Result.
var ErrInvalidSystem = errors.New("engine: system failed validation")

// Config wires the sub-engines. Zero values fall back to defaults.
type Config struct {
	ZScore     *zscore.Config
	Validation *validation.Config
	Weights    map[domain.ValuationCategory]float64
}

// Engine is the composition pipeline.
type Engine struct {
	zscores   *zscore.Engine
	validator *validation.Engine
	coherency *coherency.Analyzer
	scorer    *composite.Scorer
	log       zerolog.Logger
	now       func() time.Time
}

// NewEngine builds a pipeline; pass nil for defaults.
func NewEngine(cfg *Config, log zerolog.Logger) *Engine {
	e := &Engine{
		zscores:   zscore.NewDefault(),
		validator: validation.NewDefault(),
		coherency: coherency.New(),
		scorer:    composite.New(),
		log:       log,
		now:       time.Now,
	}
	if cfg == nil {
		return e
	}
	if cfg.ZScore != nil {
		e.zscores = zscore.New(*cfg.ZScore)
	}
	if cfg.Validation != nil {
		e.validator = validation.New(*cfg.Validation)
	}
	if len(cfg.Weights) > 0 {
		e.scorer = composite.NewWeighted(cfg.Weights)
	}
	return e
}

// ComputeInput carries the system and optional raw history. Series maps
// indicator name to its raw readings, oldest first; Current maps name to
// the latest raw value. When both are present for an indicator its
// z-score is recomputed instead of trusting the stored one.
type ComputeInput struct {
	System  domain.System
	Series  map[string][]float64
	Current map[string]float64
}

// Result is everything the pipeline learned about a system.
type Result struct {
	Signal       domain.Signal
	Validation   domain.ValidationResult
	Coherency    *domain.CoherencyResult
	Valuation    *composite.ValuationScore
	Trend        *composite.TrendScore
	ScoreIssues  []domain.ValidationIssue
	ScoreDetails map[string]zscore.Result
}

// ValidateSystem runs only the validation stage.
func (e *Engine) ValidateSystem(system domain.System) domain.ValidationResult {
	return e.validator.Validate(system)
}

// Compute runs the pipeline end to end. Validation errors stop the run;
// a z-score failure on one indicator only drops that indicator, reported
// in ScoreIssues.
func (e *Engine) Compute(input ComputeInput) (Result, error) {
	result := Result{Validation: e.validator.Validate(input.System)}
	if !result.Validation.IsValid {
		return result, ErrInvalidSystem
	}

	system := input.System
	switch system.Type {
	case domain.SystemValuation:
		if err := e.computeValuation(input, &result); err != nil {
			return result, err
		}
	case domain.SystemTrend:
		if err := e.computeTrend(input, &result); err != nil {
			return result, err
		}
	default:
		return result, fmt.Errorf("engine: unknown system type %q", system.Type)
	}

	result.Signal.Asset = system.Asset
	result.Signal.SystemID = system.ID
	result.Signal.ComputedAt = e.now().UTC()
	return result, nil
}

func (e *Engine) computeValuation(input ComputeInput, result *Result) error {
	indicators := input.System.Valuation.Indicators
	scored := make([]domain.ValuationIndicator, 0, len(indicators))
	result.ScoreDetails = map[string]zscore.Result{}

	var coherencySeries []coherency.Series
	for _, ind := range indicators {
		series, hasSeries := input.Series[ind.Name]
		current, hasCurrent := input.Current[ind.Name]
		if hasSeries && hasCurrent {
			zr, err := e.zscores.Compute(series, current)
			if err != nil {
				result.ScoreIssues = append(result.ScoreIssues, domain.ValidationIssue{
					Rule:          "zscore_failed",
					Severity:      domain.SeverityError,
					IndicatorName: ind.Name,
					Message:       fmt.Sprintf("z-score for %q: %v", ind.Name, err),
				})
				e.log.Warn().Str("indicator", ind.Name).Err(err).Msg("dropping indicator from composite")
				continue
			}
			ind.ZScore = zr.ZScore
			result.ScoreDetails[ind.Name] = zr
		}
		scored = append(scored, ind)

		if hasSeries {
			coherencySeries = append(coherencySeries, coherency.Series{Name: ind.Name, Values: series})
		} else {
			coherencySeries = append(coherencySeries, coherency.Series{Name: ind.Name, Values: []float64{ind.ZScore}})
		}
	}

	coh := e.coherency.Analyze(coherencySeries)
	result.Coherency = &coh

	score, err := e.scorer.ScoreValuation(scored)
	if err != nil {
		return err
	}
	result.Valuation = &score

	pct, err := matrix.ResolveValuationOnly(score.Tier)
	if err != nil {
		return err
	}
	result.Signal = domain.Signal{
		ValuationScore: &score.Composite,
		ValuationTier:  score.Tier,
		Strength:       matrix.LabelFor(score.Tier, domain.TrendNeutral),
		AllocationPct:  pct,
	}
	return nil
}

func (e *Engine) computeTrend(input ComputeInput, result *Result) error {
	indicators := input.System.Trend.AllIndicators()

	var coherencySeries []coherency.Series
	for _, ind := range indicators {
		values := input.Series[ind.Name]
		if len(values) == 0 {
			values = []float64{float64(ind.Score)}
		}
		coherencySeries = append(coherencySeries, coherency.Series{Name: ind.Name, Values: values})
	}
	coh := e.coherency.Analyze(coherencySeries)
	result.Coherency = &coh

	score, err := e.scorer.ScoreTrend(indicators)
	if err != nil {
		return err
	}
	result.Trend = &score

	// Without a valuation view the hold row is the only defensible
	// stance; the trend state still moves the allocation.
	pct, err := matrix.Resolve(domain.TierHold, score.Tier)
	if err != nil {
		return err
	}
	result.Signal = domain.Signal{
		TrendScore:    &score.Composite,
		TrendTier:     score.Tier,
		Strength:      matrix.QuadrantLabel(0, score.Composite),
		AllocationPct: pct,
	}
	return nil
}

// Combine merges a valuation result and a trend result for the same
// asset into one signal using the full matrix.
func (e *Engine) Combine(valuation, trend Result) (domain.Signal, error) {
	if valuation.Valuation == nil || trend.Trend == nil {
		return domain.Signal{}, errors.New("engine: combine needs one result of each type")
	}

	pct, err := matrix.Resolve(valuation.Valuation.Tier, trend.Trend.Tier)
	if err != nil {
		return domain.Signal{}, err
	}
	return domain.Signal{
		Asset:          valuation.Signal.Asset,
		SystemID:       valuation.Signal.SystemID,
		ValuationScore: &valuation.Valuation.Composite,
		TrendScore:     &trend.Trend.Composite,
		ValuationTier:  valuation.Valuation.Tier,
		TrendTier:      trend.Trend.Tier,
		Strength:       matrix.LabelFor(valuation.Valuation.Tier, trend.Trend.Tier),
		AllocationPct:  pct,
		ComputedAt:     e.now().UTC(),
	}, nil
}
