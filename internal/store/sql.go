package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bestpick/internal/freshness"
	"bestpick/internal/relation"

	_ "modernc.org/sqlite"
)

// schema is executed one statement at a time (libsql rejects batches)
var schema = []string{
	`CREATE TABLE IF NOT EXISTS relation_tables (
		my_role TEXT NOT NULL,
		my_champion TEXT NOT NULL,
		kind TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (my_role, my_champion, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS relation_records (
		my_role TEXT NOT NULL,
		my_champion TEXT NOT NULL,
		kind TEXT NOT NULL,
		position INTEGER NOT NULL,
		role TEXT NOT NULL,
		champion TEXT NOT NULL,
		win_rate REAL NOT NULL,
		delta1 REAL NOT NULL,
		delta2 REAL NOT NULL,
		pick_rate REAL NOT NULL,
		sample_size INTEGER NOT NULL,
		PRIMARY KEY (my_role, my_champion, kind, role, champion)
	)`,
}

// SQL stores tables in a database/sql database (SQLite or Turso)
type SQL struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[relation.TableID]*relation.Table
}

// OpenSQLite opens (creating if needed) a local SQLite database at path
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; extraction workers share this connection
	db.SetMaxOpenConns(1)

	s, err := NewSQL(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database and creates the schema
func NewSQL(ctx context.Context, db *sql.DB) (*SQL, error) {
	s := &SQL{
		db:    db,
		cache: make(map[relation.TableID]*relation.Table),
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return s, nil
}

// Load reads the table for id
func (s *SQL) Load(ctx context.Context, id relation.TableID) (*relation.Table, error) {
	s.mu.RLock()
	if cached, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	if _, err := s.updatedAt(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, champion, win_rate, delta1, delta2, pick_rate, sample_size
		FROM relation_records
		WHERE my_role = ? AND my_champion = ? AND kind = ?
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

	s.mu.Lock()
	s.cache[id] = t
	s.mu.Unlock()
	return t, nil
}

// Save replaces the table for id inside a single transaction
func (s *SQL) Save(ctx context.Context, id relation.TableID, t *relation.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after Commit()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM relation_records WHERE my_role = ? AND my_champion = ? AND kind = ?
	`, string(id.Role), id.Character, string(id.Kind)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relation_records
			(my_role, my_champion, kind, position, role, champion, win_rate, delta1, delta2, pick_rate, sample_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare relation_records statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range t.Records() {
		if err := validateRecord(r); err != nil {
			return fmt.Errorf("invalid record in %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, string(id.Role), id.Character, string(id.Kind), i,
			string(r.Role), r.Character, r.WinRate, r.Delta1, r.Delta2, r.PickRate, r.SampleSize); err != nil {
			return fmt.Errorf("failed to insert %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO relation_tables (my_role, my_champion, kind, updated_at)
		VALUES (?, ?, ?, ?)
	`, string(id.Role), id.Character, string(id.Kind), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to update version of %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
	return nil
}

// Stat reports when the table for id was last saved
func (s *SQL) Stat(ctx context.Context, id relation.TableID) (freshness.Artifact, error) {
	updated, err := s.updatedAt(ctx, id)
	if errors.Is(err, ErrTableNotFound) {
		return freshness.Missing, nil
	}
	if err != nil {
		return freshness.Missing, err
	}
	return freshness.At(updated), nil
}

func (s *SQL) updatedAt(ctx context.Context, id relation.TableID) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT updated_at FROM relation_tables
		WHERE my_role = ? AND my_champion = ? AND kind = ?
	`, string(id.Role), id.Character, string(id.Kind)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	updated, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad updated_at for %s: %w", id, err)
	}
	return updated, nil
}

// Close closes the database connection
func (s *SQL) Close() error {
	return s.db.Close()
}
