// Command migrate manages the macro-compass schema: the systems table
// and the append-only signals history. Files under migrations/ pair
// NNNN_name.up.sql with NNNN_name.down.sql; applied versions are
// recorded in schema_migrations.
package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

const usage = "usage: migrate [up|down|version|status] [steps]"

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

type migration struct {
	version int64
	name    string
	up      string
	down    string
}

func main() {
	loadEnvFunc()

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	dsn := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	migrations, err := readMigrations(migrationsFS)
	if err != nil {
		log.Fatalf("read embedded migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := ensureLedger(ctx, pool); err != nil {
		log.Fatalf("ensure schema_migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		n, err := migrateUp(ctx, pool, migrations)
		if err != nil {
			log.Fatalf("up: %v", err)
		}
		log.Printf("schema up to date (%d applied)", n)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			v, err := strconv.Atoi(os.Args[2])
			if err != nil || v <= 0 {
				log.Fatalf("invalid step count %q", os.Args[2])
			}
			steps = v
		}
		n, err := migrateDown(ctx, pool, migrations, steps)
		if err != nil {
			log.Fatalf("down: %v", err)
		}
		log.Printf("rolled back %d migration(s)", n)
	case "version":
		version, name, err := ledgerHead(ctx, pool)
		if err != nil {
			log.Fatalf("version: %v", err)
		}
		if version == 0 {
			log.Println("schema is empty: no migrations applied")
			return
		}
		log.Printf("schema at version %d (%s)", version, name)
	case "status":
		applied, err := appliedVersions(ctx, pool)
		if err != nil {
			log.Fatalf("status: %v", err)
		}
		for _, m := range migrations {
			state := "pending"
			if _, ok := applied[m.version]; ok {
				state = "applied"
			}
			log.Printf("%4d  %-24s %s", m.version, m.name, state)
		}
	default:
		log.Fatalf("unknown command %q\n%s", os.Args[1], usage)
	}
}

var migrationFile = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// readMigrations loads every embedded SQL file and pairs up/down by
// version. A version missing either direction is an error: a migration
// that cannot be rolled back has no place in the set.
func readMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files embedded")
	}

	byVersion := make(map[int64]*migration)
	for _, path := range paths {
		parts := migrationFile.FindStringSubmatch(path)
		if parts == nil {
			return nil, fmt.Errorf("migration %s does not match NNNN_name.{up,down}.sql", path)
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("version in %s: %w", path, err)
		}

		body, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		sqlText := strings.TrimSpace(string(body))
		if sqlText == "" {
			return nil, fmt.Errorf("migration %s is empty", path)
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{version: version, name: parts[2]}
			byVersion[version] = m
		} else if m.name != parts[2] {
			return nil, fmt.Errorf("version %d named both %s and %s", version, m.name, parts[2])
		}

		if parts[3] == "up" {
			if m.up != "" {
				return nil, fmt.Errorf("version %d has two up files", version)
			}
			m.up = sqlText
		} else {
			if m.down != "" {
				return nil, fmt.Errorf("version %d has two down files", version)
			}
			m.down = sqlText
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" || m.down == "" {
			return nil, fmt.Errorf("version %d (%s) needs both up and down files", m.version, m.name)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func ensureLedger(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[int64]struct{}, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int64]struct{})
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, migrations []migration) (int, error) {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}
		if err := inTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.up); err != nil {
				return fmt.Errorf("%d (%s) up: %w", m.version, m.name, err)
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name)
			return err
		}); err != nil {
			return count, err
		}
		log.Printf("applied %d (%s)", m.version, m.name)
		count++
	}
	return count, nil
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool, migrations []migration, steps int) (int, error) {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.version] = m
	}

	rows, err := pool.Query(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var targets []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return 0, err
		}
		targets = append(targets, version)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, version := range targets {
		m, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("applied version %d has no migration source", version)
		}
		if err := inTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.down); err != nil {
				return fmt.Errorf("%d (%s) down: %w", m.version, m.name, err)
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.version)
			return err
		}); err != nil {
			return count, err
		}
		log.Printf("rolled back %d (%s)", m.version, m.name)
		count++
	}
	return count, nil
}

func ledgerHead(ctx context.Context, pool *pgxpool.Pool) (int64, string, error) {
	var version int64
	var name string
	err := pool.QueryRow(ctx,
		`SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	return version, name, nil
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
