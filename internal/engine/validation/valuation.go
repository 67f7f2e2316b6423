package validation

import (
	"strings"

	"macro-compass/internal/domain"
)

func (e *Engine) validateValuation(data *domain.ValuationSystemData, c *issueCollector) {
	e.checkValuationCounts(data, c)
	e.checkDuplicateNames(data, c)
	e.checkOriginality(data, c)
	e.checkBanned(data, c)
	e.checkSourceDiversification(data, c)
	e.checkResearchDepth(data, c)
	e.checkDecay(data, c)
}

func (e *Engine) checkValuationCounts(data *domain.ValuationSystemData, c *issueCollector) {
	total := len(data.Indicators)
	if total < e.cfg.MinTotal {
		c.errorf("min_total", "need at least %d indicators, have %d", e.cfg.MinTotal, total)
	}

	byCategory := map[domain.ValuationCategory]int{}
	for _, ind := range data.Indicators {
		byCategory[ind.Category]++
	}

	checks := []struct {
		category domain.ValuationCategory
		minimum  int
	}{
		{domain.CategoryFundamental, e.cfg.MinFundamental},
		{domain.CategoryTechnical, e.cfg.MinTechnical},
		{domain.CategorySentiment, e.cfg.MinSentiment},
	}
	for _, check := range checks {
		count := byCategory[check.category]
		if count < check.minimum {
			c.errorf("min_"+string(check.category),
				"need at least %d %s indicators, have %d (short %d)",
				check.minimum, check.category, count, check.minimum-count)
		} else if count >= check.minimum*3 {
			c.warnf("category_overweight",
				"%s has %d indicators against a minimum of %d; consider rebalancing",
				check.category, count, check.minimum)
		}
	}
}

func (e *Engine) checkDuplicateNames(data *domain.ValuationSystemData, c *issueCollector) {
	seen := map[string]int{}
	for _, ind := range data.Indicators {
		seen[normalizeName(ind.Name)]++
	}
	for _, name := range sortedKeys(seen) {
		if seen[name] > 1 {
			c.errorf("unique_names", "indicator name %q appears %d times", name, seen[name])
		}
	}
}

func (e *Engine) checkOriginality(data *domain.ValuationSystemData, c *issueCollector) {
	refCount := 0
	for _, ind := range data.Indicators {
		if ind.ProvidedBy == domain.ProvidedReferenceSheet {
			refCount++
		}
	}
	if refCount > e.cfg.MaxReferenceSheet {
		c.errorf("max_reference_sheet",
			"max %d indicators from the reference sheet, have %d", e.cfg.MaxReferenceSheet, refCount)
	}

	total := len(data.Indicators)
	original := total - refCount
	minOriginal := e.cfg.MinTotal - e.cfg.MaxReferenceSheet
	if total >= e.cfg.MinTotal && original < minOriginal {
		c.errorf("min_original",
			"need at least %d own-research indicators, have %d", minOriginal, original)
	}
}

func (e *Engine) checkBanned(data *domain.ValuationSystemData, c *issueCollector) {
	for _, ind := range data.Indicators {
		name := normalizeName(ind.Name)
		for _, banned := range e.cfg.BannedIndicators {
			if name == banned {
				c.indicatorErrorf("banned_indicator", ind.Name, "%q is a banned indicator", ind.Name)
			}
		}
		url := strings.ToLower(ind.SourceURL)
		for _, banned := range e.cfg.BannedSources {
			if strings.Contains(url, banned) {
				c.indicatorErrorf("banned_source", ind.Name, "%q uses a banned source (%s)", ind.Name, banned)
			}
		}
	}
}

func (e *Engine) checkSourceDiversification(data *domain.ValuationSystemData, c *issueCollector) {
	perCategorySite := map[string]int{}
	for _, ind := range data.Indicators {
		key := string(ind.Category) + "|" + strings.ToLower(ind.SourceWebsite)
		perCategorySite[key]++
	}
	for _, key := range sortedKeys(perCategorySite) {
		if perCategorySite[key] <= e.cfg.MaxPerWebsite {
			continue
		}
		parts := strings.SplitN(key, "|", 2)
		c.errorf("source_diversification",
			"max %d %s indicators per website, have %d from %s",
			e.cfg.MaxPerWebsite, parts[0], perCategorySite[key], parts[1])
	}

	tvAuthors := map[string]int{}
	for _, ind := range data.Indicators {
		if ind.SourceAuthor != "" && strings.Contains(strings.ToLower(ind.SourceWebsite), "tradingview") {
			tvAuthors[normalizeName(ind.SourceAuthor)]++
		}
	}
	for _, author := range sortedKeys(tvAuthors) {
		if tvAuthors[author] > e.cfg.MaxPerTVAuthor {
			c.warnf("tv_author_diversification",
				"max %d indicators per TradingView author, have %d from %q",
				e.cfg.MaxPerTVAuthor, tvAuthors[author], author)
		}
	}
}

func (e *Engine) checkResearchDepth(data *domain.ValuationSystemData, c *issueCollector) {
	for _, ind := range data.Indicators {
		if strings.TrimSpace(ind.SourceURL) == "" {
			c.indicatorErrorf("missing_source", ind.Name, "%q is missing a source URL", ind.Name)
		}

		fields := []struct {
			name  string
			value string
		}{
			{"why_chosen", ind.WhyChosen},
			{"how_it_works", ind.HowItWorks},
			{"scoring_logic", ind.ScoringLogic},
		}
		for _, field := range fields {
			length := len(strings.TrimSpace(field.value))
			if length < e.cfg.MinResearchChars {
				c.indicatorErrorf("research_depth", ind.Name,
					"%q: %s is too brief (%d chars, need %d+)",
					ind.Name, field.name, length, e.cfg.MinResearchChars)
			}
		}
	}
}

func (e *Engine) checkDecay(data *domain.ValuationSystemData, c *issueCollector) {
	for _, ind := range data.Indicators {
		if ind.HasDecay && strings.TrimSpace(ind.DecayDescription) == "" {
			c.indicatorErrorf("decay_undocumented", ind.Name,
				"%q is flagged as decaying but has no decay description", ind.Name)
		}
	}
}
