package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"macro-compass/internal/cache"
	"macro-compass/internal/domain"
	"macro-compass/internal/engine"
	"macro-compass/internal/engine/matrix"
	"macro-compass/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrAssetNotAllowed marks assets outside the configured allowlist.
	ErrAssetNotAllowed = errors.New("asset not allowed")
	// ErrSystemRejected carries a failed validation; details ride in the result.
	ErrSystemRejected = errors.New("system failed validation")
	// ErrNoSystems is returned when an asset has nothing to compute from.
	ErrNoSystems = errors.New("no systems stored for asset")
)

type SystemStore interface {
	UpsertSystem(ctx context.Context, system *domain.System) error
	GetSystem(ctx context.Context, id int64) (*domain.System, error)
	GetSystemForAsset(ctx context.Context, asset domain.Asset, systemType domain.SystemType) (*domain.System, error)
}

type SignalStore interface {
	InsertSignal(ctx context.Context, signal *domain.Signal) error
	ListSignals(ctx context.Context, asset domain.Asset, limit int) ([]domain.Signal, error)
	LatestSignal(ctx context.Context, asset domain.Asset) (*domain.Signal, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SignalService orchestrates system storage, signal computation, and
// signal history. The stores and redis client may each be nil; the
// service then validates and computes without persisting anything.
type SignalService struct {
	tracer   trace.Tracer
	engine   *engine.Engine
	systems  SystemStore
	signals  SignalStore
	redis    RedisClient
	allowed  domain.AssetSet
	cacheTTL time.Duration
	log      zerolog.Logger
}

func NewSignalService(
	tracer trace.Tracer,
	pipeline *engine.Engine,
	systems SystemStore,
	signals SignalStore,
	redisClient RedisClient,
	allowed domain.AssetSet,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *SignalService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SignalService{
		tracer:   tracer,
		engine:   pipeline,
		systems:  systems,
		signals:  signals,
		redis:    redisClient,
		allowed:  allowed,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// ValidateSystem runs validation without persisting anything.
func (s *SignalService) ValidateSystem(ctx context.Context, system domain.System) domain.ValidationResult {
	_, span := s.tracer.Start(ctx, "signal-service.validate-system")
	defer span.End()

	return s.engine.ValidateSystem(system)
}

// SaveSystem validates and persists a system. Validation errors reject
// the save; warnings do not.
func (s *SignalService) SaveSystem(ctx context.Context, system *domain.System) (domain.ValidationResult, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.save-system")
	defer span.End()

	if !s.allowed.Allows(system.Asset) {
		return domain.ValidationResult{}, fmt.Errorf("%w: %s", ErrAssetNotAllowed, system.Asset)
	}

	result := s.engine.ValidateSystem(*system)
	if !result.IsValid {
		return result, ErrSystemRejected
	}

	if s.systems == nil {
		s.log.Warn().
			Str("asset", string(system.Asset)).
			Str("type", string(system.Type)).
			Msg("persistence disabled; system validated but not stored")
		return result, nil
	}
	if err := s.systems.UpsertSystem(ctx, system); err != nil {
		return result, err
	}
	s.log.Info().
		Str("asset", string(system.Asset)).
		Str("type", string(system.Type)).
		Int64("system_id", system.ID).
		Msg("system saved")
	return result, nil
}

func (s *SignalService) GetSystem(ctx context.Context, id int64) (*domain.System, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.get-system")
	defer span.End()

	if s.systems == nil {
		return nil, repository.ErrNotFound
	}
	return s.systems.GetSystem(ctx, id)
}

// SignalReport is a computed signal with the full pipeline output for
// whichever systems contributed.
type SignalReport struct {
	Signal    domain.Signal  `json:"signal"`
	Valuation *engine.Result `json:"valuation,omitempty"`
	Trend     *engine.Result `json:"trend,omitempty"`
}

// ComputeSignal loads the asset's stored systems, runs the pipeline,
// persists the resulting signal, and refreshes the cache. Series and
// current may be nil; stored z-scores are used then.
func (s *SignalService) ComputeSignal(ctx context.Context, asset domain.Asset, series map[string][]float64, current map[string]float64) (*SignalReport, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.compute-signal")
	defer span.End()

	if !s.allowed.Allows(asset) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset)
	}

	report := &SignalReport{}

	valuationSystem, err := s.loadSystem(ctx, asset, domain.SystemValuation)
	if err != nil {
		return nil, err
	}
	trendSystem, err := s.loadSystem(ctx, asset, domain.SystemTrend)
	if err != nil {
		return nil, err
	}
	if valuationSystem == nil && trendSystem == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSystems, asset)
	}

	if valuationSystem != nil {
		result, err := s.engine.Compute(engine.ComputeInput{
			System:  *valuationSystem,
			Series:  series,
			Current: current,
		})
		if err != nil {
			return nil, fmt.Errorf("valuation pipeline for %s: %w", asset, err)
		}
		report.Valuation = &result
		report.Signal = result.Signal
	}

	if trendSystem != nil {
		result, err := s.engine.Compute(engine.ComputeInput{System: *trendSystem})
		if err != nil {
			return nil, fmt.Errorf("trend pipeline for %s: %w", asset, err)
		}
		report.Trend = &result
		report.Signal = result.Signal
	}

	if report.Valuation != nil && report.Trend != nil {
		combined, err := s.engine.Combine(*report.Valuation, *report.Trend)
		if err != nil {
			return nil, err
		}
		report.Signal = combined
	}

	if s.signals != nil {
		if err := s.signals.InsertSignal(ctx, &report.Signal); err != nil {
			return nil, fmt.Errorf("persist signal for %s: %w", asset, err)
		}
	}
	if s.redis != nil {
		if err := s.setSignalCache(ctx, report.Signal); err != nil {
			s.log.Warn().Err(err).Str("asset", string(asset)).Msg("signal cache write failed")
		}
	}

	s.log.Info().
		Str("asset", string(asset)).
		Str("strength", string(report.Signal.Strength)).
		Float64("allocation_pct", report.Signal.AllocationPct).
		Msg("signal computed")
	return report, nil
}

func (s *SignalService) ListSignals(ctx context.Context, asset domain.Asset, limit int) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.list-signals")
	defer span.End()

	if !s.allowed.Allows(asset) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset)
	}
	if s.signals == nil {
		return nil, nil
	}
	return s.signals.ListSignals(ctx, asset, limit)
}

// LatestSignal returns the freshest signal for an asset, served from
// Redis when warm.
func (s *SignalService) LatestSignal(ctx context.Context, asset domain.Asset) (*domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.latest-signal")
	defer span.End()

	if !s.allowed.Allows(asset) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotAllowed, asset)
	}

	if s.redis != nil {
		cached, err := s.getSignalCache(ctx, asset)
		if err != nil {
			s.log.Warn().Err(err).Str("asset", string(asset)).Msg("signal cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	if s.signals == nil {
		return nil, repository.ErrNotFound
	}
	signal, err := s.signals.LatestSignal(ctx, asset)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if err := s.setSignalCache(ctx, *signal); err != nil {
			s.log.Warn().Err(err).Str("asset", string(asset)).Msg("signal cache write failed")
		}
	}
	return signal, nil
}

// Matrix returns the allocation table in display order.
func (s *SignalService) Matrix() ([]domain.ValuationTier, []domain.TrendTier, map[domain.ValuationTier]map[domain.TrendTier]float64) {
	return matrix.Rows, matrix.Columns, matrix.Table()
}

// PortfolioAllocations folds the latest signal of every allowed asset
// into a portfolio view. Assets without signals are skipped.
func (s *SignalService) PortfolioAllocations(ctx context.Context) ([]matrix.AssetAllocation, float64, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.portfolio-allocations")
	defer span.End()

	byAsset := make(map[domain.Asset]float64)
	for _, asset := range domain.SupportedAssets {
		if !s.allowed.Allows(asset) {
			continue
		}
		signal, err := s.LatestSignal(ctx, asset)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		byAsset[asset] = signal.AllocationPct
	}

	allocations, total := matrix.PortfolioAllocation(byAsset)
	return allocations, total, nil
}

func (s *SignalService) loadSystem(ctx context.Context, asset domain.Asset, systemType domain.SystemType) (*domain.System, error) {
	if s.systems == nil {
		return nil, nil
	}
	system, err := s.systems.GetSystemForAsset(ctx, asset, systemType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return system, err
}

func (s *SignalService) setSignalCache(ctx context.Context, signal domain.Signal) error {
	data, err := json.Marshal(signal)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, cache.LatestSignalKey(signal.Asset), data, s.cacheTTL).Err()
}

func (s *SignalService) getSignalCache(ctx context.Context, asset domain.Asset) (*domain.Signal, error) {
	data, err := s.redis.Get(ctx, cache.LatestSignalKey(asset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var signal domain.Signal
	if err := json.Unmarshal(data, &signal); err != nil {
		return nil, err
	}
	return &signal, nil
}
