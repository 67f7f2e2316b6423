package job

import (
	"context"
	"errors"
	"time"

	"macro-compass/internal/domain"
	"macro-compass/internal/service"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// SignalRefresher periodically recomputes signals for every tracked asset so
// the latest-signal cache stays warm without waiting for an API call.
type SignalRefresher struct {
	tracer          trace.Tracer
	signals         SignalComputer
	refreshInterval time.Duration
	log             zerolog.Logger
}

type SignalComputer interface {
	ComputeSignal(ctx context.Context, asset domain.Asset, series map[string][]float64, current map[string]float64) (*service.SignalReport, error)
}

func NewSignalRefresher(tracer trace.Tracer, signals SignalComputer, refreshIntervalSecs int, log zerolog.Logger) *SignalRefresher {
	return &SignalRefresher{
		tracer:          tracer,
		signals:         signals,
		refreshInterval: time.Duration(refreshIntervalSecs) * time.Second,
		log:             log,
	}
}

// Start blocks until ctx is cancelled, refreshing every asset each interval.
func (r *SignalRefresher) Start(ctx context.Context) {
	r.log.Info().Dur("interval", r.refreshInterval).Msg("signal refresher starting")

	r.refreshAll(ctx)

	ticker := time.NewTicker(r.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("signal refresher stopped")
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *SignalRefresher) refreshAll(ctx context.Context) {
	ctx, span := r.tracer.Start(ctx, "job.refresh-signals")
	defer span.End()

	for _, asset := range domain.SupportedAssets {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.signals.ComputeSignal(ctx, asset, nil, nil); err != nil {
			// Assets without registered systems are expected until someone
			// submits one; anything else is worth surfacing.
			if errors.Is(err, service.ErrNoSystems) || errors.Is(err, service.ErrAssetNotAllowed) {
				r.log.Debug().Str("asset", string(asset)).Msg("skipping refresh")
				continue
			}
			r.log.Error().Err(err).Str("asset", string(asset)).Msg("signal refresh failed")
		}
	}
}
