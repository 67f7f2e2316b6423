package validation

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"macro-compass/internal/domain"
)

const research = "This field carries enough substantive research text to clear the depth rule."

func valuationIndicator(i int, category domain.ValuationCategory) domain.ValuationIndicator {
	return domain.ValuationIndicator{
		Name:          fmt.Sprintf("%s-indicator-%d", category, i),
		Category:      category,
		SourceURL:     fmt.Sprintf("https://site-%s-%d.example.com/chart", category, i),
		SourceWebsite: fmt.Sprintf("site-%s-%d.example.com", category, i),
		ProvidedBy:    domain.ProvidedOwnResearch,
		ZScore:        -1.0,
		DateUpdated:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		WhyChosen:     research,
		HowItWorks:    research,
		ScoringLogic:  research,
	}
}

func validValuationData(fundamental, technical, sentiment int) *domain.ValuationSystemData {
	data := &domain.ValuationSystemData{}
	for i := 0; i < fundamental; i++ {
		data.Indicators = append(data.Indicators, valuationIndicator(i, domain.CategoryFundamental))
	}
	for i := 0; i < technical; i++ {
		data.Indicators = append(data.Indicators, valuationIndicator(i, domain.CategoryTechnical))
	}
	for i := 0; i < sentiment; i++ {
		data.Indicators = append(data.Indicators, valuationIndicator(i, domain.CategorySentiment))
	}
	return data
}

func valuationSystem(data *domain.ValuationSystemData) domain.System {
	return domain.System{Asset: domain.AssetBTC, Type: domain.SystemValuation, Valuation: data}
}

func trendIndicator(i int, category domain.TrendCategory) domain.TrendIndicator {
	return domain.TrendIndicator{
		Name:            fmt.Sprintf("%s-indicator-%d", category, i),
		Category:        category,
		SourceURL:       fmt.Sprintf("https://trend-%s-%d.example.com", category, i),
		SourceWebsite:   fmt.Sprintf("trend-%s-%d.example.com", category, i),
		Author:          fmt.Sprintf("author-%s-%d", category, i),
		IndicatorType:   fmt.Sprintf("type-%s-%d", category, i),
		ScoringCriteria: "+1 above band, -1 below band",
		Comment:         "Clean long-horizon trend signal with stable historical flips.",
		Score:           1,
	}
}

func validISP(trades int) *domain.IntendedSignalPeriod {
	isp := &domain.IntendedSignalPeriod{Timeframe: "1D"}
	dir := domain.DirectionLong
	for i := 0; i <= trades; i++ {
		isp.AddPoint(domain.ISPPoint{
			Date:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i*20),
			Direction: dir,
		})
		if dir == domain.DirectionLong {
			dir = domain.DirectionShort
		} else {
			dir = domain.DirectionLong
		}
	}
	return isp
}

func validTrendData() *domain.TrendSystemData {
	data := &domain.TrendSystemData{ISP: validISP(11)}
	for i := 0; i < 12; i++ {
		data.TechnicalBTC = append(data.TechnicalBTC, trendIndicator(i, domain.CategoryTechnicalBTC))
	}
	for i := 0; i < 4; i++ {
		data.OnChain = append(data.OnChain, trendIndicator(i, domain.CategoryOnChain))
	}
	return data
}

func trendSystem(data *domain.TrendSystemData) domain.System {
	return domain.System{Asset: domain.AssetBTC, Type: domain.SystemTrend, Trend: data}
}

func errorRules(result domain.ValidationResult) []string {
	rules := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		rules = append(rules, issue.Rule)
	}
	return rules
}

func TestValidValuationSystem(t *testing.T) {
	t.Parallel()

	result := NewDefault().Validate(valuationSystem(validValuationData(6, 6, 3)))
	if !result.IsValid {
		t.Fatalf("expected valid system, errors: %+v", result.Errors)
	}
}

func TestValuationFourteenIndicatorsSingleTotalError(t *testing.T) {
	t.Parallel()

	// 5/5/4 satisfies every per-category minimum; only the total is short.
	result := NewDefault().Validate(valuationSystem(validValuationData(5, 5, 4)))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one error, got %+v", result.Errors)
	}
	if result.Errors[0].Rule != "min_total" {
		t.Fatalf("expected min_total rule, got %s", result.Errors[0].Rule)
	}
	if !strings.Contains(result.Errors[0].Message, "14") {
		t.Fatalf("expected actual count in message, got %q", result.Errors[0].Message)
	}
}

func TestValuationCategoryShortfallNamed(t *testing.T) {
	t.Parallel()

	result := NewDefault().Validate(valuationSystem(validValuationData(3, 9, 3)))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	found := false
	for _, issue := range result.Errors {
		if issue.Rule == "min_fundamental" {
			found = true
			if !strings.Contains(issue.Message, "fundamental") || !strings.Contains(issue.Message, "short 2") {
				t.Fatalf("expected category and shortfall in message, got %q", issue.Message)
			}
		}
	}
	if !found {
		t.Fatalf("expected min_fundamental error, rules: %v", errorRules(result))
	}
}

func TestValuationResearchDepthError(t *testing.T) {
	t.Parallel()

	data := validValuationData(6, 6, 3)
	data.Indicators[0].ScoringLogic = "too short"

	result := NewDefault().Validate(valuationSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	issue := result.Errors[0]
	if issue.Rule != "research_depth" {
		t.Fatalf("expected research_depth, got %s", issue.Rule)
	}
	if !strings.Contains(issue.Message, "scoring_logic") {
		t.Fatalf("expected short field named, got %q", issue.Message)
	}
	if issue.IndicatorName != data.Indicators[0].Name {
		t.Fatalf("expected indicator named, got %q", issue.IndicatorName)
	}
}

func TestValuationDecayRequiresDescription(t *testing.T) {
	t.Parallel()

	data := validValuationData(6, 6, 3)
	data.Indicators[2].HasDecay = true

	result := NewDefault().Validate(valuationSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "decay_undocumented" {
		t.Fatalf("expected decay_undocumented, got %s", result.Errors[0].Rule)
	}

	data.Indicators[2].DecayDescription = "Halving-cycle decay; thresholds re-anchored each epoch."
	if again := NewDefault().Validate(valuationSystem(data)); !again.IsValid {
		t.Fatalf("expected valid after documenting decay, errors: %+v", again.Errors)
	}
}

func TestValuationDuplicateNames(t *testing.T) {
	t.Parallel()

	data := validValuationData(6, 6, 3)
	data.Indicators[1].Name = data.Indicators[0].Name

	result := NewDefault().Validate(valuationSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "unique_names" {
		t.Fatalf("expected unique_names, got %s", result.Errors[0].Rule)
	}
}

func TestValuationBannedIndicatorAndSource(t *testing.T) {
	t.Parallel()

	data := validValuationData(6, 6, 3)
	data.Indicators[0].Name = "Stock to Flow"
	data.Indicators[1].SourceURL = "https://woobull.com/charts/nvt"

	result := NewDefault().Validate(valuationSystem(data))
	rules := errorRules(result)
	if !reflect.DeepEqual(rules, []string{"banned_indicator", "banned_source"}) {
		t.Fatalf("expected banned_indicator and banned_source, got %v", rules)
	}
}

func TestValuationReferenceSheetCap(t *testing.T) {
	t.Parallel()

	data := validValuationData(6, 6, 3)
	for i := 0; i < 6; i++ {
		data.Indicators[i].ProvidedBy = domain.ProvidedReferenceSheet
	}

	result := NewDefault().Validate(valuationSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "max_reference_sheet" {
		t.Fatalf("expected max_reference_sheet, got %s", result.Errors[0].Rule)
	}
}

func TestValuationWebsiteDiversification(t *testing.T) {
	t.Parallel()

	data := validValuationData(6, 6, 3)
	for i := 0; i < 3; i++ {
		data.Indicators[i].SourceWebsite = "glassnode.com"
	}

	result := NewDefault().Validate(valuationSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "source_diversification" {
		t.Fatalf("expected source_diversification, got %s", result.Errors[0].Rule)
	}
}

func TestValidTrendSystem(t *testing.T) {
	t.Parallel()

	result := NewDefault().Validate(trendSystem(validTrendData()))
	if !result.IsValid {
		t.Fatalf("expected valid trend system, errors: %+v", result.Errors)
	}
}

func TestTrendCountsEnforced(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.TechnicalBTC = data.TechnicalBTC[:11]
	data.OnChain = append(data.OnChain, trendIndicator(9, domain.CategoryOnChain), trendIndicator(10, domain.CategoryOnChain))

	result := NewDefault().Validate(trendSystem(data))
	rules := errorRules(result)
	if !reflect.DeepEqual(rules, []string{"technical_btc_count", "on_chain_count"}) {
		t.Fatalf("expected both count errors, got %v", rules)
	}
	if !strings.Contains(result.Errors[0].Message, "exactly 12") || !strings.Contains(result.Errors[0].Message, "have 11") {
		t.Fatalf("expected actual vs required, got %q", result.Errors[0].Message)
	}
}

func TestTrendRepaintingRejected(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.TechnicalBTC[3].Repaints = true

	result := NewDefault().Validate(trendSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "repainting" {
		t.Fatalf("expected repainting, got %s", result.Errors[0].Rule)
	}
	if result.Errors[0].IndicatorName != data.TechnicalBTC[3].Name {
		t.Fatalf("expected indicator named, got %q", result.Errors[0].IndicatorName)
	}
}

func TestTrendSharedAuthorWarns(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.TechnicalBTC[1].Author = data.TechnicalBTC[0].Author

	result := NewDefault().Validate(trendSystem(data))
	if !result.IsValid {
		t.Fatalf("two indicators per author should only warn, errors: %+v", result.Errors)
	}
	if len(result.Warnings) == 0 || result.Warnings[0].Rule != "author_uniqueness" {
		t.Fatalf("expected author_uniqueness warning, got %+v", result.Warnings)
	}
}

func TestTrendAuthorConcentrationFails(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	for i := 0; i < 6; i++ {
		data.TechnicalBTC[i].Author = "prolific-author"
	}

	result := NewDefault().Validate(trendSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	found := false
	for _, issue := range result.Errors {
		if issue.Rule == "author_concentration" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected author_concentration error, rules: %v", errorRules(result))
	}
}

func TestTrendCrossCategoryAuthor(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.OnChain[0].Author = data.TechnicalBTC[0].Author

	result := NewDefault().Validate(trendSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	found := false
	for _, issue := range result.Errors {
		if issue.Rule == "cross_category_authors" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cross_category_authors, rules: %v", errorRules(result))
	}
}

func TestTrendISPTradeShortfall(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.ISP = &domain.IntendedSignalPeriod{Timeframe: "1D"}
	directions := []domain.TrendDirection{
		domain.DirectionLong, domain.DirectionLong, domain.DirectionShort, domain.DirectionLong,
	}
	for i, dir := range directions {
		data.ISP.AddPoint(domain.ISPPoint{
			Date:      time.Date(2023, 3, i+1, 0, 0, 0, 0, time.UTC),
			Direction: dir,
		})
	}

	result := NewDefault().Validate(trendSystem(data))
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "isp_min_trades" {
		t.Fatalf("expected isp_min_trades, got %s", result.Errors[0].Rule)
	}
	if !strings.Contains(result.Errors[0].Message, "2/11") {
		t.Fatalf("expected 2/11 in message, got %q", result.Errors[0].Message)
	}
}

func TestTrendMissingISPWarns(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.ISP = nil

	result := NewDefault().Validate(trendSystem(data))
	if !result.IsValid {
		t.Fatalf("missing ISP should warn, errors: %+v", result.Errors)
	}
	if len(result.Warnings) == 0 || result.Warnings[0].Rule != "isp_missing" {
		t.Fatalf("expected isp_missing warning, got %+v", result.Warnings)
	}
}

func TestTrendCompletenessRules(t *testing.T) {
	t.Parallel()

	data := validTrendData()
	data.TechnicalBTC[0].ScoringCriteria = "short"
	data.OnChain[0].Comment = "too brief"

	result := NewDefault().Validate(trendSystem(data))
	rules := errorRules(result)
	if !reflect.DeepEqual(rules, []string{"scoring_criteria_depth", "comment_depth"}) {
		t.Fatalf("expected both depth errors in order, got %v", rules)
	}
}

func TestValidationDeterministic(t *testing.T) {
	t.Parallel()

	data := validValuationData(3, 9, 1)
	data.Indicators[0].HasDecay = true
	data.Indicators[4].WhyChosen = "thin"
	system := valuationSystem(data)

	engine := NewDefault()
	first := engine.Validate(system)
	for i := 0; i < 5; i++ {
		again := engine.Validate(system)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("validation not deterministic on run %d", i)
		}
	}
}

func TestValidateMissingSystemData(t *testing.T) {
	t.Parallel()

	result := NewDefault().Validate(domain.System{Asset: domain.AssetETH, Type: domain.SystemValuation})
	if result.IsValid {
		t.Fatal("expected invalid system")
	}
	if result.Errors[0].Rule != "system_data" {
		t.Fatalf("expected system_data rule, got %s", result.Errors[0].Rule)
	}
}
