package repository

import (
	"context"
	"errors"

	"macro-compass/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

const createSignalsTable = `
CREATE TABLE IF NOT EXISTS signals (
    id              BIGSERIAL        PRIMARY KEY,
    asset           TEXT             NOT NULL,
    system_id       BIGINT,
    valuation_score DOUBLE PRECISION,
    trend_score     DOUBLE PRECISION,
    valuation_tier  TEXT             NOT NULL DEFAULT '',
    trend_tier      TEXT             NOT NULL DEFAULT '',
    strength        TEXT             NOT NULL,
    allocation_pct  DOUBLE PRECISION NOT NULL,
    computed_at     TIMESTAMPTZ      NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_asset_computed
    ON signals (asset, computed_at DESC);
`

// SignalRepository stores computed signals. The table is append-only;
// a signal never changes once written.
type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

func (r *SignalRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "signal-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSignalsTable)
	return err
}

func (r *SignalRepository) InsertSignal(ctx context.Context, signal *domain.Signal) error {
	_, span := r.tracer.Start(ctx, "signal-repo.insert-signal")
	defer span.End()

	return r.pool.QueryRow(ctx,
		`INSERT INTO signals
		     (asset, system_id, valuation_score, trend_score, valuation_tier, trend_tier, strength, allocation_pct, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		signal.Asset, signal.SystemID, signal.ValuationScore, signal.TrendScore,
		signal.ValuationTier, signal.TrendTier, signal.Strength, signal.AllocationPct,
		signal.ComputedAt,
	).Scan(&signal.ID)
}

func (r *SignalRepository) ListSignals(ctx context.Context, asset domain.Asset, limit int) ([]domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.list-signals")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, asset, system_id, valuation_score, trend_score, valuation_tier, trend_tier, strength, allocation_pct, computed_at
		 FROM signals
		 WHERE asset = $1
		 ORDER BY computed_at DESC
		 LIMIT $2`,
		asset, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

func (r *SignalRepository) LatestSignal(ctx context.Context, asset domain.Asset) (*domain.Signal, error) {
	_, span := r.tracer.Start(ctx, "signal-repo.latest-signal")
	defer span.End()

	s, err := scanSignal(r.pool.QueryRow(ctx,
		`SELECT id, asset, system_id, valuation_score, trend_score, valuation_tier, trend_tier, strength, allocation_pct, computed_at
		 FROM signals
		 WHERE asset = $1
		 ORDER BY computed_at DESC
		 LIMIT 1`,
		asset,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSignal(row pgx.Row) (domain.Signal, error) {
	var s domain.Signal
	err := row.Scan(&s.ID, &s.Asset, &s.SystemID, &s.ValuationScore, &s.TrendScore,
		&s.ValuationTier, &s.TrendTier, &s.Strength, &s.AllocationPct, &s.ComputedAt)
	if err != nil {
		return domain.Signal{}, err
	}
	s.ComputedAt = s.ComputedAt.UTC()
	return s, nil
}
