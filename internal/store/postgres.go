package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bestpick/internal/freshness"
	"bestpick/internal/relation"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS relation_tables (
		my_role TEXT NOT NULL,
		my_champion TEXT NOT NULL,
		kind TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (my_role, my_champion, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS relation_records (
		my_role TEXT NOT NULL,
		my_champion TEXT NOT NULL,
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		role TEXT NOT NULL,
		champion TEXT NOT NULL,
		win_rate DOUBLE PRECISION NOT NULL,
		delta1 DOUBLE PRECISION NOT NULL,
		delta2 DOUBLE PRECISION NOT NULL,
		pick_rate DOUBLE PRECISION NOT NULL,
		sample_size INTEGER NOT NULL,
		PRIMARY KEY (my_role, my_champion, kind, role, champion)
	)`,
}

var recordColumns = []string{
	"my_role", "my_champion", "kind", "position",
	"role", "champion", "win_rate", "delta1", "delta2", "pick_rate", "sample_size",
}

// Postgres stores tables in PostgreSQL
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and creates the schema
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres URL not configured (set DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Postgres{pool: pool}, nil
}

// Load reads the table for id
func (p *Postgres) Load(ctx context.Context, id relation.TableID) (*relation.Table, error) {
	if _, err := p.updatedAt(ctx, id); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT role, champion, win_rate, delta1, delta2, pick_rate, sample_size
		FROM relation_records
		WHERE my_role = $1 AND my_champion = $2 AND kind = $3
		ORDER BY position
	`, string(id.Role), id.Character, string(id.Kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", id, err)
	}
	defer rows.Close()

	t := relation.NewTable()
	for rows.Next() {
		var r relation.Record
		var role string
		if err := rows.Scan(&role, &r.Character, &r.WinRate, &r.Delta1, &r.Delta2, &r.PickRate, &r.SampleSize); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", id, err)
		}
		r.Role = relation.Role(role)
		t.Add(r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return t, nil
}

// Save replaces the table for id inside a single transaction
func (p *Postgres) Save(ctx context.Context, id relation.TableID, t *relation.Table) error {
	records := t.Records()
	rows := make([][]any, 0, len(records))
	for i, r := range records {
		if err := validateRecord(r); err != nil {
			return fmt.Errorf("invalid record in %s: %w", id, err)
		}
		rows = append(rows, []any{
			string(id.Role), id.Character, string(id.Kind), i,
			string(r.Role), r.Character, r.WinRate, r.Delta1, r.Delta2, r.PickRate, r.SampleSize,
		})
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM relation_records WHERE my_role = $1 AND my_champion = $2 AND kind = $3
	`, string(id.Role), id.Character, string(id.Kind)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", id, err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"relation_records"}, recordColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to copy %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO relation_tables (my_role, my_champion, kind, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (my_role, my_champion, kind) DO UPDATE SET updated_at = excluded.updated_at
	`, string(id.Role), id.Character, string(id.Kind), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to update version of %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Stat reports when the table for id was last saved
func (p *Postgres) Stat(ctx context.Context, id relation.TableID) (freshness.Artifact, error) {
	updated, err := p.updatedAt(ctx, id)
	if errors.Is(err, ErrTableNotFound) {
		return freshness.Missing, nil
	}
	if err != nil {
		return freshness.Missing, err
	}
	return freshness.At(updated), nil
}

func (p *Postgres) updatedAt(ctx context.Context, id relation.TableID) (time.Time, error) {
	var updated time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT updated_at FROM relation_tables
		WHERE my_role = $1 AND my_champion = $2 AND kind = $3
	`, string(id.Role), id.Character, string(id.Kind)).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	return updated, nil
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
