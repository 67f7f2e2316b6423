package validation

import (
	"strings"

	"macro-compass/internal/domain"
)

func (e *Engine) validateTrend(data *domain.TrendSystemData, c *issueCollector) {
	e.checkTrendCounts(data, c)
	e.checkRepainting(data, c)
	e.checkTrendDuplicateNames(data, c)
	e.checkAuthorConcentration(data, c)
	e.checkCrossCategoryAuthors(data, c)
	e.checkTypeDiversity(data, c)
	e.checkOnChainWebsites(data, c)
	e.checkISP(data, c)
	e.checkTrendCompleteness(data, c)
}

func (e *Engine) checkTrendCounts(data *domain.TrendSystemData, c *issueCollector) {
	tc := len(data.TechnicalBTC)
	oc := len(data.OnChain)

	if tc != e.cfg.TechnicalBTCExact {
		c.errorf("technical_btc_count",
			"technical_btc requires exactly %d indicators, have %d", e.cfg.TechnicalBTCExact, tc)
	}
	if oc < e.cfg.OnChainMin || oc > e.cfg.OnChainMax {
		c.errorf("on_chain_count",
			"on_chain requires %d-%d indicators, have %d", e.cfg.OnChainMin, e.cfg.OnChainMax, oc)
	}
}

// Repainting indicators rewrite their own history; they never enter a valid
// system.
func (e *Engine) checkRepainting(data *domain.TrendSystemData, c *issueCollector) {
	for _, ind := range data.AllIndicators() {
		if ind.Repaints {
			c.indicatorErrorf("repainting", ind.Name, "%q repaints; automatic fail", ind.Name)
		}
	}
}

func (e *Engine) checkTrendDuplicateNames(data *domain.TrendSystemData, c *issueCollector) {
	seen := map[string]int{}
	for _, ind := range data.AllIndicators() {
		seen[normalizeName(ind.Name)]++
	}
	for _, name := range sortedKeys(seen) {
		if seen[name] > 1 {
			c.errorf("unique_names", "indicator name %q appears %d times", name, seen[name])
		}
	}
}

// Two shared-author indicators warn; one author covering more than
// MaxAuthorShare of the system is single-source bias and fails it.
func (e *Engine) checkAuthorConcentration(data *domain.TrendSystemData, c *issueCollector) {
	all := data.AllIndicators()
	if len(all) == 0 {
		return
	}

	byAuthor := map[string]int{}
	for _, ind := range all {
		byAuthor[normalizeName(ind.Author)]++
	}

	for _, author := range sortedKeys(byAuthor) {
		count := byAuthor[author]
		if count < 2 {
			continue
		}
		share := float64(count) / float64(len(all))
		if share > e.cfg.MaxAuthorShare {
			c.errorf("author_concentration",
				"author %q provides %d of %d indicators (%.0f%%), max share is %.0f%%",
				author, count, len(all), share*100, e.cfg.MaxAuthorShare*100)
		} else {
			c.warnf("author_uniqueness",
				"author %q provides %d indicators; prefer one per author", author, count)
		}
	}
}

func (e *Engine) checkCrossCategoryAuthors(data *domain.TrendSystemData, c *issueCollector) {
	technical := map[string]struct{}{}
	for _, ind := range data.TechnicalBTC {
		technical[normalizeName(ind.Author)] = struct{}{}
	}
	overlap := map[string]struct{}{}
	for _, ind := range data.OnChain {
		author := normalizeName(ind.Author)
		if _, ok := technical[author]; ok {
			overlap[author] = struct{}{}
		}
	}
	for _, author := range sortedKeys(overlap) {
		c.errorf("cross_category_authors",
			"author %q is used in both technical_btc and on_chain", author)
	}
}

func (e *Engine) checkTypeDiversity(data *domain.TrendSystemData, c *issueCollector) {
	categories := []struct {
		label      string
		indicators []domain.TrendIndicator
	}{
		{"technical_btc", data.TechnicalBTC},
		{"on_chain", data.OnChain},
	}
	for _, cat := range categories {
		types := map[string]int{}
		for _, ind := range cat.indicators {
			types[normalizeName(ind.IndicatorType)]++
		}
		for _, indType := range sortedKeys(types) {
			if types[indType] > 1 {
				c.errorf("type_diversity",
					"%s: duplicate indicator type %q (%d instances), max 1 per type",
					cat.label, indType, types[indType])
			}
		}
	}
}

func (e *Engine) checkOnChainWebsites(data *domain.TrendSystemData, c *issueCollector) {
	sites := map[string]int{}
	for _, ind := range data.OnChain {
		sites[strings.ToLower(ind.SourceWebsite)]++
	}
	for _, site := range sortedKeys(sites) {
		if sites[site] > e.cfg.MaxOnChainPerSite {
			c.errorf("on_chain_website_diversification",
				"on_chain: max %d indicators per website, have %d from %q",
				e.cfg.MaxOnChainPerSite, sites[site], site)
		}
	}
}

func (e *Engine) checkISP(data *domain.TrendSystemData, c *issueCollector) {
	if data.ISP == nil || len(data.ISP.Points) == 0 {
		c.warnf("isp_missing", "no intended signal period defined")
		return
	}
	trades := data.ISP.TradeCount()
	if trades < e.cfg.ISPMinTrades {
		c.errorf("isp_min_trades",
			"intended signal period has %d/%d required trades", trades, e.cfg.ISPMinTrades)
	}
}

func (e *Engine) checkTrendCompleteness(data *domain.TrendSystemData, c *issueCollector) {
	for _, ind := range data.AllIndicators() {
		if strings.TrimSpace(ind.SourceURL) == "" {
			c.indicatorErrorf("missing_source", ind.Name, "%q is missing a source URL", ind.Name)
		}
		if length := len(strings.TrimSpace(ind.ScoringCriteria)); length < e.cfg.MinScoringCriteria {
			c.indicatorErrorf("scoring_criteria_depth", ind.Name,
				"%q: scoring criteria too brief (%d chars, need %d+)",
				ind.Name, length, e.cfg.MinScoringCriteria)
		}
		if length := len(strings.TrimSpace(ind.Comment)); length < e.cfg.MinTrendComment {
			c.indicatorErrorf("comment_depth", ind.Name,
				"%q: comment too brief (%d chars, need %d+)",
				ind.Name, length, e.cfg.MinTrendComment)
		}
	}
}
