package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"macro-compass/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("repository: not found")

const createSystemsTable = `
CREATE TABLE IF NOT EXISTS systems (
    id          BIGSERIAL   PRIMARY KEY,
    asset       TEXT        NOT NULL,
    type        TEXT        NOT NULL,
    payload     JSONB       NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (asset, type)
);

CREATE INDEX IF NOT EXISTS idx_systems_asset ON systems (asset);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SystemRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSystemRepository(pool PgxPool, tracer trace.Tracer) *SystemRepository {
	return &SystemRepository{pool: pool, tracer: tracer}
}

func (r *SystemRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "system-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSystemsTable)
	return err
}

// UpsertSystem writes one system per (asset, type) slot; a second save
// for the same slot replaces the first. The assigned id and timestamp
// are set on the passed system.
func (r *SystemRepository) UpsertSystem(ctx context.Context, system *domain.System) error {
	_, span := r.tracer.Start(ctx, "system-repo.upsert-system")
	defer span.End()

	payload, err := json.Marshal(system)
	if err != nil {
		return fmt.Errorf("marshal system payload: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO systems (asset, type, payload, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (asset, type) DO UPDATE SET
		     payload = EXCLUDED.payload,
		     updated_at = NOW()
		 RETURNING id, updated_at`,
		system.Asset, system.Type, payload,
	).Scan(&system.ID, &system.UpdatedAt)
	if err != nil {
		return err
	}
	system.UpdatedAt = system.UpdatedAt.UTC()
	return nil
}

func (r *SystemRepository) GetSystem(ctx context.Context, id int64) (*domain.System, error) {
	_, span := r.tracer.Start(ctx, "system-repo.get-system")
	defer span.End()

	return r.scanSystem(r.pool.QueryRow(ctx,
		`SELECT id, payload, updated_at FROM systems WHERE id = $1`, id))
}

// GetSystemForAsset returns the one system filling an (asset, type)
// slot, or ErrNotFound.
func (r *SystemRepository) GetSystemForAsset(ctx context.Context, asset domain.Asset, systemType domain.SystemType) (*domain.System, error) {
	_, span := r.tracer.Start(ctx, "system-repo.get-system-for-asset")
	defer span.End()

	return r.scanSystem(r.pool.QueryRow(ctx,
		`SELECT id, payload, updated_at FROM systems WHERE asset = $1 AND type = $2`,
		asset, systemType))
}

func (r *SystemRepository) ListSystems(ctx context.Context, asset domain.Asset) ([]*domain.System, error) {
	_, span := r.tracer.Start(ctx, "system-repo.list-systems")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, payload, updated_at FROM systems WHERE asset = $1 ORDER BY type`, asset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var systems []*domain.System
	for rows.Next() {
		system, err := r.scanSystem(rows)
		if err != nil {
			return nil, err
		}
		systems = append(systems, system)
	}
	return systems, rows.Err()
}

func (r *SystemRepository) scanSystem(row pgx.Row) (*domain.System, error) {
	var (
		id        int64
		payload   []byte
		updatedAt time.Time
	)
	if err := row.Scan(&id, &payload, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var system domain.System
	if err := json.Unmarshal(payload, &system); err != nil {
		return nil, fmt.Errorf("unmarshal system payload: %w", err)
	}
	system.ID = id
	system.UpdatedAt = updatedAt.UTC()
	return &system, nil
}
