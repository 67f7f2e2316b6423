// Package validation enforces system construction rules for valuation and
// trend systems. Validators never short-circuit: every run returns the full
// issue list so callers can present all problems at once.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"macro-compass/internal/domain"
)

// Config holds the tunable thresholds for both validators. Zero values are
// replaced with the published defaults.
type Config struct {
	// valuation
	MinTotal          int
	MinFundamental    int
	MinTechnical      int
	MinSentiment      int
	MinResearchChars  int
	MaxReferenceSheet int
	MaxPerWebsite     int
	MaxPerTVAuthor    int
	BannedIndicators  []string
	BannedSources     []string
	// trend
	TechnicalBTCExact  int
	OnChainMin         int
	OnChainMax         int
	MaxAuthorShare     float64
	MaxOnChainPerSite  int
	ISPMinTrades       int
	MinScoringCriteria int
	MinTrendComment    int
}

func DefaultConfig() Config {
	return Config{
		MinTotal:           15,
		MinFundamental:     5,
		MinTechnical:       5,
		MinSentiment:       2,
		MinResearchChars:   50,
		MaxReferenceSheet:  5,
		MaxPerWebsite:      2,
		MaxPerTVAuthor:     2,
		BannedIndicators:   defaultBannedIndicators,
		BannedSources:      defaultBannedSources,
		TechnicalBTCExact:  12,
		OnChainMin:         4,
		OnChainMax:         5,
		MaxAuthorShare:     0.30,
		MaxOnChainPerSite:  2,
		ISPMinTrades:       11,
		MinScoringCriteria: 10,
		MinTrendComment:    30,
	}
}

// Indicators whose signal has structurally decayed or broken; they fail the
// system no matter how they are documented.
var defaultBannedIndicators = []string{
	"stock to flow",
	"reserve risk",
	"puell multiple",
	"open interest",
	"liquidity",
}

var defaultBannedSources = []string{
	"woobull.com",
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinTotal <= 0 {
		cfg.MinTotal = def.MinTotal
	}
	if cfg.MinFundamental <= 0 {
		cfg.MinFundamental = def.MinFundamental
	}
	if cfg.MinTechnical <= 0 {
		cfg.MinTechnical = def.MinTechnical
	}
	if cfg.MinSentiment <= 0 {
		cfg.MinSentiment = def.MinSentiment
	}
	if cfg.MinResearchChars <= 0 {
		cfg.MinResearchChars = def.MinResearchChars
	}
	if cfg.MaxReferenceSheet <= 0 {
		cfg.MaxReferenceSheet = def.MaxReferenceSheet
	}
	if cfg.MaxPerWebsite <= 0 {
		cfg.MaxPerWebsite = def.MaxPerWebsite
	}
	if cfg.MaxPerTVAuthor <= 0 {
		cfg.MaxPerTVAuthor = def.MaxPerTVAuthor
	}
	if cfg.BannedIndicators == nil {
		cfg.BannedIndicators = def.BannedIndicators
	}
	if cfg.BannedSources == nil {
		cfg.BannedSources = def.BannedSources
	}
	if cfg.TechnicalBTCExact <= 0 {
		cfg.TechnicalBTCExact = def.TechnicalBTCExact
	}
	if cfg.OnChainMin <= 0 {
		cfg.OnChainMin = def.OnChainMin
	}
	if cfg.OnChainMax <= 0 {
		cfg.OnChainMax = def.OnChainMax
	}
	if cfg.MaxAuthorShare <= 0 {
		cfg.MaxAuthorShare = def.MaxAuthorShare
	}
	if cfg.MaxOnChainPerSite <= 0 {
		cfg.MaxOnChainPerSite = def.MaxOnChainPerSite
	}
	if cfg.ISPMinTrades <= 0 {
		cfg.ISPMinTrades = def.ISPMinTrades
	}
	if cfg.MinScoringCriteria <= 0 {
		cfg.MinScoringCriteria = def.MinScoringCriteria
	}
	if cfg.MinTrendComment <= 0 {
		cfg.MinTrendComment = def.MinTrendComment
	}
	return &Engine{cfg: cfg}
}

func NewDefault() *Engine {
	return New(DefaultConfig())
}

// Validate runs all construction rules for the system's declared type.
// The input is never mutated.
func (e *Engine) Validate(system domain.System) domain.ValidationResult {
	collector := newIssueCollector()

	switch system.Type {
	case domain.SystemValuation:
		if system.Valuation == nil {
			collector.errorf("system_data", "valuation system has no valuation data")
		} else {
			e.validateValuation(system.Valuation, collector)
		}
	case domain.SystemTrend:
		if system.Trend == nil {
			collector.errorf("system_data", "trend system has no trend data")
		} else {
			e.validateTrend(system.Trend, collector)
		}
	default:
		collector.errorf("system_type", "unknown system type %q", system.Type)
	}

	return domain.ValidationResult{
		IsValid:  len(collector.errors) == 0,
		Errors:   collector.errors,
		Warnings: collector.warnings,
	}
}

// issueCollector accumulates issues in rule-evaluation order so repeated runs
// over the same system produce identical lists.
type issueCollector struct {
	errors   []domain.ValidationIssue
	warnings []domain.ValidationIssue
}

func newIssueCollector() *issueCollector {
	return &issueCollector{
		errors:   []domain.ValidationIssue{},
		warnings: []domain.ValidationIssue{},
	}
}

func (c *issueCollector) errorf(rule, format string, args ...any) {
	c.errors = append(c.errors, domain.ValidationIssue{
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityError,
	})
}

func (c *issueCollector) indicatorErrorf(rule, indicator, format string, args ...any) {
	c.errors = append(c.errors, domain.ValidationIssue{
		Rule:          rule,
		Message:       fmt.Sprintf(format, args...),
		Severity:      domain.SeverityError,
		IndicatorName: indicator,
	})
}

func (c *issueCollector) warnf(rule, format string, args ...any) {
	c.warnings = append(c.warnings, domain.ValidationIssue{
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
		Severity: domain.SeverityWarning,
	})
}

func (c *issueCollector) indicatorWarnf(rule, indicator, format string, args ...any) {
	c.warnings = append(c.warnings, domain.ValidationIssue{
		Rule:          rule,
		Message:       fmt.Sprintf(format, args...),
		Severity:      domain.SeverityWarning,
		IndicatorName: indicator,
	})
}

// sortedKeys returns map keys in a stable order for deterministic messages.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
