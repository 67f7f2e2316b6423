package zscore

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/narumiruna/go-iforest/pkg/iforest"
)

// Method selects how outliers are excluded before the z-score is computed.
type Method string

const (
	MethodNone       Method = "none"
	MethodIQR        Method = "iqr"
	MethodPercentile Method = "percentile"
	MethodWinsorize  Method = "winsorize"
	MethodMAD        Method = "mad"
	MethodIForest    Method = "iforest"
)

var (
	ErrInsufficientData        = errors.New("insufficient data points")
	ErrDegenerateDistribution  = errors.New("degenerate distribution: zero standard deviation")
	errNonPositiveLogTransform = errors.New("log transform requires positive values")
)

const (
	zClamp        = 4.0
	madScale      = 0.6745
	minRetained   = 2
	scoreRounding = 4
	statsRounding = 6
	iforestSeed   = 1
)

type Config struct {
	Method           Method
	IQRMultiplier    float64
	PercentileLower  float64
	PercentileUpper  float64
	MADThreshold     float64
	IForestThreshold float64
	UseLogTransform  bool
	RollingWindow    int
}

func DefaultConfig() Config {
	return Config{
		Method:           MethodIQR,
		IQRMultiplier:    1.5,
		PercentileLower:  2.5,
		PercentileUpper:  97.5,
		MADThreshold:     3.0,
		IForestThreshold: 0.62,
	}
}

// Result reports the z-score plus computation metadata for auditability.
type Result struct {
	ZScore          float64 `json:"z_score"`
	Mean            float64 `json:"mean"`
	Std             float64 `json:"std"`
	RawValue        float64 `json:"raw_value"`
	DataPointsUsed  int     `json:"data_points_used"`
	OutliersRemoved int     `json:"outliers_removed"`
	Method          Method  `json:"method"`
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.Method == "" {
		cfg.Method = MethodIQR
	}
	if cfg.IQRMultiplier <= 0 {
		cfg.IQRMultiplier = 1.5
	}
	if cfg.PercentileUpper <= cfg.PercentileLower {
		cfg.PercentileLower = 2.5
		cfg.PercentileUpper = 97.5
	}
	if cfg.MADThreshold <= 0 {
		cfg.MADThreshold = 3.0
	}
	if cfg.IForestThreshold <= 0 {
		cfg.IForestThreshold = 0.62
	}
	return &Engine{cfg: cfg}
}

func NewDefault() *Engine {
	return New(DefaultConfig())
}

// Compute scores current against the historical values. NaN and Inf inputs
// are dropped before outlier removal. The returned RawValue is always the
// untransformed current value.
func (e *Engine) Compute(values []float64, current float64) (Result, error) {
	clean := dropInvalid(values)
	if len(clean) == 0 {
		return Result{Method: e.cfg.Method}, fmt.Errorf("%w: no valid observations", ErrInsufficientData)
	}
	rawCurrent := current

	if e.cfg.UseLogTransform {
		clean = positiveOnly(clean)
		if len(clean) == 0 {
			return Result{Method: e.cfg.Method}, fmt.Errorf("%w: %v", ErrInsufficientData, errNonPositiveLogTransform)
		}
		for i := range clean {
			clean[i] = math.Log(clean[i])
		}
		if current <= 0 {
			return Result{Method: e.cfg.Method}, fmt.Errorf("%w: current value %.4f", errNonPositiveLogTransform, rawCurrent)
		}
		current = math.Log(current)
	}

	// OutliersRemoved counts only what the outlier method excluded, not
	// points the log transform dropped for being non-positive.
	originalCount := len(clean)
	retained := e.removeOutliers(clean)
	outliersRemoved := originalCount - len(retained)

	if len(retained) < minRetained {
		return Result{Method: e.cfg.Method}, fmt.Errorf(
			"%w: %d points retained after outlier removal, need at least %d",
			ErrInsufficientData, len(retained), minRetained)
	}

	mean, std := sampleMeanStd(retained)
	if std == 0 {
		return Result{Method: e.cfg.Method}, fmt.Errorf("%w (mean %.6f)", ErrDegenerateDistribution, mean)
	}

	z := (current - mean) / std
	z = math.Max(-zClamp, math.Min(zClamp, z))

	return Result{
		ZScore:          round(z, scoreRounding),
		Mean:            round(mean, statsRounding),
		Std:             round(std, statsRounding),
		RawValue:        rawCurrent,
		DataPointsUsed:  len(retained),
		OutliersRemoved: outliersRemoved,
		Method:          e.cfg.Method,
	}, nil
}

// ComputeSeries scores each point against its own history. Points without
// enough history score zero. When RollingWindow is set, only that many prior
// points are used.
func (e *Engine) ComputeSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := 0
		if e.cfg.RollingWindow > 0 && i-e.cfg.RollingWindow > 0 {
			start = i - e.cfg.RollingWindow
		}
		history := values[start:i]
		if len(history) < minRetained+1 {
			out[i] = 0
			continue
		}
		result, err := e.Compute(history, values[i])
		if err != nil {
			out[i] = 0
			continue
		}
		out[i] = result.ZScore
	}
	return out
}

func (e *Engine) removeOutliers(values []float64) []float64 {
	switch e.cfg.Method {
	case MethodIQR:
		return e.iqrFilter(values)
	case MethodPercentile:
		return e.percentileFilter(values)
	case MethodWinsorize:
		return e.winsorize(values)
	case MethodMAD:
		return e.madFilter(values)
	case MethodIForest:
		return e.iforestFilter(values)
	default:
		return values
	}
}

func (e *Engine) iqrFilter(values []float64) []float64 {
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	iqr := q3 - q1
	lower := q1 - e.cfg.IQRMultiplier*iqr
	upper := q3 + e.cfg.IQRMultiplier*iqr
	return within(values, lower, upper)
}

func (e *Engine) percentileFilter(values []float64) []float64 {
	lower := quantile(values, e.cfg.PercentileLower/100)
	upper := quantile(values, e.cfg.PercentileUpper/100)
	return within(values, lower, upper)
}

// winsorize clips extremes to the percentile bounds instead of dropping them,
// so the retained count equals the input count.
func (e *Engine) winsorize(values []float64) []float64 {
	lower := quantile(values, e.cfg.PercentileLower/100)
	upper := quantile(values, e.cfg.PercentileUpper/100)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Max(lower, math.Min(upper, v))
	}
	return out
}

func (e *Engine) madFilter(values []float64) []float64 {
	med := median(values)
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		return values
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		modified := madScale * (v - med) / mad
		if math.Abs(modified) <= e.cfg.MADThreshold {
			out = append(out, v)
		}
	}
	return out
}

// iforestFilter drops points an isolation forest scores as anomalous. The
// forest picks its splits from the package-level math/rand source and
// exposes no seed of its own, so the source is re-seeded before every fit
// to keep repeated computations on the same series identical.
func (e *Engine) iforestFilter(values []float64) []float64 {
	if len(values) < 8 {
		return values
	}
	samples := make([][]float64, len(values))
	for i, v := range values {
		samples[i] = []float64{v}
	}
	rand.Seed(iforestSeed)
	forest := iforest.New()
	forest.Fit(samples)
	scores := forest.Score(samples)
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if scores[i] < e.cfg.IForestThreshold {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return values
	}
	return out
}

func dropInvalid(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func positiveOnly(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func within(values []float64, lower, upper float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lower && v <= upper {
			out = append(out, v)
		}
	}
	return out
}

// sampleMeanStd uses the sample (n-1) standard deviation.
func sampleMeanStd(values []float64) (float64, float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if len(values) < 2 {
		return mean, 0
	}
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n - 1
	return mean, math.Sqrt(variance)
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lowIdx := int(math.Floor(pos))
	highIdx := int(math.Ceil(pos))
	if lowIdx == highIdx {
		return sorted[lowIdx]
	}
	frac := pos - float64(lowIdx)
	return sorted[lowIdx]*(1-frac) + sorted[highIdx]*frac
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
