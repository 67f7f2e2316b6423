package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"macro-compass/internal/advisor"
	"macro-compass/internal/domain"
	"macro-compass/internal/engine"
	"macro-compass/internal/repository"
	"macro-compass/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

const research = "This field carries enough substantive research text to clear the depth rule."

func newTestRouter(systems *stubSystemStore, signals *stubSignalStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := service.NewSignalService(
		testTracer,
		engine.NewEngine(nil, zerolog.Nop()),
		systems,
		signals,
		nil,
		domain.NewAssetSet(domain.SupportedAssets...),
		time.Minute,
		zerolog.Nop(),
	)
	h := New(testTracer, svc, advisor.NewAdvisorService(testTracer, nil, ""))

	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func validValuationSystem(asset domain.Asset, z float64) *domain.System {
	data := &domain.ValuationSystemData{}
	add := func(category domain.ValuationCategory, n int) {
		for i := 0; i < n; i++ {
			data.Indicators = append(data.Indicators, domain.ValuationIndicator{
				Name:          fmt.Sprintf("%s-indicator-%d", category, i),
				Category:      category,
				SourceURL:     fmt.Sprintf("https://site-%s-%d.example.com/chart", category, i),
				SourceWebsite: fmt.Sprintf("site-%s-%d.example.com", category, i),
				ProvidedBy:    domain.ProvidedOwnResearch,
				ZScore:        z,
				DateUpdated:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				WhyChosen:     research,
				HowItWorks:    research,
				ScoringLogic:  research,
			})
		}
	}
	add(domain.CategoryFundamental, 6)
	add(domain.CategoryTechnical, 6)
	add(domain.CategorySentiment, 3)
	return &domain.System{Asset: asset, Type: domain.SystemValuation, Valuation: data}
}

func postJSON(r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func getJSON(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestValidateSystemReportsIssues(t *testing.T) {
	r := newTestRouter(&stubSystemStore{}, &stubSignalStore{})

	system := validValuationSystem(domain.AssetBTC, -1)
	system.Valuation.Indicators = system.Valuation.Indicators[:10]

	w := postJSON(r, "/api/systems/validate", system)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.ValidationResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if result.IsValid || len(result.Errors) == 0 {
		t.Fatalf("expected validation errors, got %+v", result)
	}
}

func TestCreateSystemPersistsValid(t *testing.T) {
	systems := &stubSystemStore{}
	r := newTestRouter(systems, &stubSignalStore{})

	w := postJSON(r, "/api/systems", validValuationSystem(domain.AssetBTC, -1))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if systems.upsertCalls != 1 {
		t.Fatalf("expected one upsert, got %d", systems.upsertCalls)
	}
}

func TestCreateSystemRejectsInvalid(t *testing.T) {
	systems := &stubSystemStore{}
	r := newTestRouter(systems, &stubSignalStore{})

	system := validValuationSystem(domain.AssetBTC, -1)
	system.Valuation.Indicators = system.Valuation.Indicators[:10]

	w := postJSON(r, "/api/systems", system)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if systems.upsertCalls != 0 {
		t.Fatal("invalid system must not be persisted")
	}
}

func TestCreateSystemUnsupportedAsset(t *testing.T) {
	r := newTestRouter(&stubSystemStore{}, &stubSignalStore{})

	system := validValuationSystem("doge", -1)
	w := postJSON(r, "/api/systems", system)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetSystemNotFound(t *testing.T) {
	r := newTestRouter(&stubSystemStore{}, &stubSignalStore{})

	w := getJSON(r, "/api/systems/42")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestComputeSignalEndpoint(t *testing.T) {
	systems := &stubSystemStore{
		byAssetType: map[string]*domain.System{
			"btc/valuation": validValuationSystem(domain.AssetBTC, -2),
		},
	}
	signals := &stubSignalStore{}
	r := newTestRouter(systems, signals)

	w := postJSON(r, "/api/assets/btc/signal", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report service.SignalReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if report.Signal.AllocationPct != 0.85 {
		t.Fatalf("expected allocation 0.85, got %v", report.Signal.AllocationPct)
	}
	if signals.insertCalls != 1 {
		t.Fatalf("expected signal persisted, got %d inserts", signals.insertCalls)
	}
}

func TestComputeSignalNoSystems(t *testing.T) {
	r := newTestRouter(&stubSystemStore{}, &stubSignalStore{})

	w := postJSON(r, "/api/assets/gold/signal", map[string]any{})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestComputeSignalUnsupportedAsset(t *testing.T) {
	r := newTestRouter(&stubSystemStore{}, &stubSignalStore{})

	w := postJSON(r, "/api/assets/doge/signal", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLatestSignalWithNarrative(t *testing.T) {
	z := -2.0
	signals := &stubSignalStore{
		latest: &domain.Signal{
			Asset:          domain.AssetBTC,
			ValuationScore: &z,
			ValuationTier:  domain.TierStrongestBuy,
			Strength:       domain.StrengthStrongestBuy,
			AllocationPct:  0.85,
		},
	}
	r := newTestRouter(&stubSystemStore{}, signals)

	w := getJSON(r, "/api/assets/btc/signals/latest?explain=true")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Signal    domain.Signal `json:"signal"`
		Narrative string        `json:"narrative"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Signal.AllocationPct != 0.85 {
		t.Fatalf("unexpected signal: %+v", resp.Signal)
	}
	if resp.Narrative == "" {
		t.Fatal("expected fallback narrative")
	}
}

func TestListSignalsLimit(t *testing.T) {
	signals := &stubSignalStore{}
	for i := 0; i < 5; i++ {
		signals.inserted = append(signals.inserted, domain.Signal{Asset: domain.AssetBTC, AllocationPct: 0.3})
	}
	r := newTestRouter(&stubSystemStore{}, signals)

	w := getJSON(r, "/api/assets/btc/signals?limit=3")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if signals.lastListLimit != 3 {
		t.Fatalf("expected limit 3 passed through, got %d", signals.lastListLimit)
	}
}

func TestGetMatrix(t *testing.T) {
	r := newTestRouter(&stubSystemStore{}, &stubSignalStore{})

	w := getJSON(r, "/api/matrix")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		ValuationTiers []string                      `json:"valuation_tiers"`
		TrendTiers     []string                      `json:"trend_tiers"`
		Allocations    map[string]map[string]float64 `json:"allocations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.ValuationTiers) != 5 || len(resp.TrendTiers) != 3 {
		t.Fatalf("expected 5x3 matrix, got %+v", resp)
	}
	if resp.Allocations["hold"]["neutral"] != 0.30 {
		t.Fatalf("expected hold/neutral 0.30, got %v", resp.Allocations["hold"]["neutral"])
	}
}

func TestGetPortfolio(t *testing.T) {
	signals := &stubSignalStore{
		latestByAsset: map[domain.Asset]*domain.Signal{
			domain.AssetBTC: {Asset: domain.AssetBTC, AllocationPct: 0.85},
		},
	}
	r := newTestRouter(&stubSystemStore{}, signals)

	w := getJSON(r, "/api/portfolio")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Allocations []struct {
			Asset string  `json:"asset"`
			Pct   float64 `json:"pct"`
		} `json:"allocations"`
		TotalPct float64 `json:"total_pct"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Allocations) != 1 || resp.TotalPct != 0.85 {
		t.Fatalf("unexpected portfolio: %+v", resp)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(APIKeyAuth("sekrit"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-API-Key", "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with bad key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-API-Key", "sekrit")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with good key, got %d", w.Code)
	}
}

type stubSystemStore struct {
	byAssetType map[string]*domain.System
	byID        map[int64]*domain.System
	upsertCalls int
}

func (m *stubSystemStore) UpsertSystem(ctx context.Context, system *domain.System) error {
	m.upsertCalls++
	system.ID = int64(m.upsertCalls)
	return nil
}

func (m *stubSystemStore) GetSystem(ctx context.Context, id int64) (*domain.System, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (m *stubSystemStore) GetSystemForAsset(ctx context.Context, asset domain.Asset, systemType domain.SystemType) (*domain.System, error) {
	if s, ok := m.byAssetType[string(asset)+"/"+string(systemType)]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

type stubSignalStore struct {
	latest        *domain.Signal
	latestByAsset map[domain.Asset]*domain.Signal
	inserted      []domain.Signal
	insertCalls   int
	lastListLimit int
}

func (m *stubSignalStore) InsertSignal(ctx context.Context, signal *domain.Signal) error {
	m.insertCalls++
	signal.ID = int64(m.insertCalls)
	m.inserted = append(m.inserted, *signal)
	return nil
}

func (m *stubSignalStore) ListSignals(ctx context.Context, asset domain.Asset, limit int) ([]domain.Signal, error) {
	m.lastListLimit = limit
	var out []domain.Signal
	for _, s := range m.inserted {
		if s.Asset == asset && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *stubSignalStore) LatestSignal(ctx context.Context, asset domain.Asset) (*domain.Signal, error) {
	if m.latestByAsset != nil {
		if s, ok := m.latestByAsset[asset]; ok {
			return s, nil
		}
		return nil, repository.ErrNotFound
	}
	if m.latest == nil {
		return nil, repository.ErrNotFound
	}
	return m.latest, nil
}
