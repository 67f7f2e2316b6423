package domain

import (
	"sort"
	"time"
)

type Asset string

const (
	AssetBTC  Asset = "btc"
	AssetETH  Asset = "eth"
	AssetGold Asset = "gold"
	AssetSPX  Asset = "spx"
	AssetAlt  Asset = "alt"
)

// SupportedAssets lists all assets the engine produces signals for.
var SupportedAssets = []Asset{AssetBTC, AssetETH, AssetGold, AssetSPX, AssetAlt}

func IsSupportedAsset(a Asset) bool {
	for _, s := range SupportedAssets {
		if s == a {
			return true
		}
	}
	return false
}

// AssetSet is an already-resolved capability set: which assets the caller may
// compute signals for. Resolved upstream from subscription state and passed in
// as plain data.
type AssetSet map[Asset]struct{}

func NewAssetSet(assets ...Asset) AssetSet {
	set := make(AssetSet, len(assets))
	for _, a := range assets {
		set[a] = struct{}{}
	}
	return set
}

func (s AssetSet) Allows(a Asset) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[a]
	return ok
}

type SystemType string

const (
	SystemValuation SystemType = "valuation"
	SystemTrend     SystemType = "trend"
)

type ValuationCategory string

const (
	CategoryFundamental ValuationCategory = "fundamental"
	CategoryTechnical   ValuationCategory = "technical"
	CategorySentiment   ValuationCategory = "sentiment"
)

type TrendCategory string

const (
	CategoryTechnicalBTC TrendCategory = "technical_btc"
	CategoryOnChain      TrendCategory = "on_chain"
)

type ProvidedBy string

const (
	ProvidedOwnResearch    ProvidedBy = "own_research"
	ProvidedReferenceSheet ProvidedBy = "reference_sheet"
)

type TrendDirection string

const (
	DirectionLong  TrendDirection = "long"
	DirectionShort TrendDirection = "short"
)

// ValuationIndicator is a single hand-scored observation in a valuation
// system. Observations are immutable once scored for a DateUpdated; re-scoring
// creates a new observation rather than mutating history.
type ValuationIndicator struct {
	Name             string            `json:"name" binding:"required"`
	Category         ValuationCategory `json:"category" binding:"required,oneof=fundamental technical sentiment"`
	SourceURL        string            `json:"source_url" binding:"required"`
	SourceWebsite    string            `json:"source_website" binding:"required"`
	SourceAuthor     string            `json:"source_author,omitempty"`
	ProvidedBy       ProvidedBy        `json:"provided_by" binding:"required,oneof=own_research reference_sheet"`
	ZScore           float64           `json:"z_score" binding:"gte=-4,lte=4"`
	DateUpdated      time.Time         `json:"date_updated"`
	WhyChosen        string            `json:"why_chosen"`
	HowItWorks       string            `json:"how_it_works"`
	ScoringLogic     string            `json:"scoring_logic"`
	HasDecay         bool              `json:"has_decay"`
	DecayDescription string            `json:"decay_description,omitempty"`
	IsLogarithmic    bool              `json:"is_logarithmic"`
	IsNormalized     bool              `json:"is_normalized"`
}

// TrendIndicator is a single binary-scored indicator in a trend system.
type TrendIndicator struct {
	Name            string        `json:"name" binding:"required"`
	Category        TrendCategory `json:"category" binding:"required,oneof=technical_btc on_chain"`
	SourceURL       string        `json:"source_url" binding:"required"`
	SourceWebsite   string        `json:"source_website" binding:"required"`
	Author          string        `json:"author" binding:"required"`
	IndicatorType   string        `json:"indicator_type" binding:"required"`
	ScoringCriteria string        `json:"scoring_criteria"`
	Comment         string        `json:"comment"`
	Score           int           `json:"score" binding:"gte=-1,lte=1"`
	Repaints        bool          `json:"repaints"`
}

// ISPPoint is one point of the intended long/short trajectory.
type ISPPoint struct {
	Date      time.Time      `json:"date" binding:"required"`
	Direction TrendDirection `json:"direction" binding:"required,oneof=long short"`
}

// IntendedSignalPeriod is the hand-drawn reference trajectory a trend system
// is validated against. Points are unique per date and kept sorted ascending.
type IntendedSignalPeriod struct {
	Timeframe string     `json:"timeframe"`
	Points    []ISPPoint `json:"points"`
}

// AddPoint inserts a point, replacing any existing point on the same date.
func (p *IntendedSignalPeriod) AddPoint(point ISPPoint) {
	day := point.Date.Truncate(24 * time.Hour)
	point.Date = day
	for i, existing := range p.Points {
		if existing.Date.Equal(day) {
			p.Points[i] = point
			return
		}
	}
	p.Points = append(p.Points, point)
	sort.Slice(p.Points, func(i, j int) bool {
		return p.Points[i].Date.Before(p.Points[j].Date)
	})
}

// Normalize dedupes points by date (last wins) and sorts ascending. Used when
// points arrive in bulk from a payload instead of through AddPoint.
func (p *IntendedSignalPeriod) Normalize() {
	byDate := make(map[time.Time]ISPPoint, len(p.Points))
	for _, point := range p.Points {
		point.Date = point.Date.Truncate(24 * time.Hour)
		byDate[point.Date] = point
	}
	points := make([]ISPPoint, 0, len(byDate))
	for _, point := range byDate {
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	p.Points = points
}

// TradeCount returns the number of direction changes between adjacent points.
func (p *IntendedSignalPeriod) TradeCount() int {
	if p == nil || len(p.Points) < 2 {
		return 0
	}
	trades := 0
	for i := 1; i < len(p.Points); i++ {
		if p.Points[i].Direction != p.Points[i-1].Direction {
			trades++
		}
	}
	return trades
}

// ValuationSystemData holds the indicator set of a valuation system.
type ValuationSystemData struct {
	Indicators []ValuationIndicator `json:"indicators"`
}

// TrendSystemData holds the indicator sets and ISP of a trend system.
type TrendSystemData struct {
	TechnicalBTC []TrendIndicator      `json:"technical_btc"`
	OnChain      []TrendIndicator      `json:"on_chain"`
	ISP          *IntendedSignalPeriod `json:"isp,omitempty"`
}

// AllIndicators returns both categories in declaration order.
func (d *TrendSystemData) AllIndicators() []TrendIndicator {
	all := make([]TrendIndicator, 0, len(d.TechnicalBTC)+len(d.OnChain))
	all = append(all, d.TechnicalBTC...)
	all = append(all, d.OnChain...)
	return all
}

// System is a tagged union: exactly one of Valuation or Trend is set,
// matching Type.
type System struct {
	ID        int64                `json:"id"`
	Asset     Asset                `json:"asset" binding:"required"`
	Type      SystemType           `json:"type" binding:"required,oneof=valuation trend"`
	Valuation *ValuationSystemData `json:"valuation,omitempty"`
	Trend     *TrendSystemData     `json:"trend,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}
