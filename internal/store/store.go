package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bestpick/internal/freshness"
	"bestpick/internal/relation"
)

// ErrTableNotFound is returned by Load when nothing has been stored for a table
var ErrTableNotFound = errors.New("table not found")

// Columns is the column order of the tabular form of a relation table
var Columns = []string{"role", "character", "win_rate", "delta1", "delta2", "pick_rate", "sample_size"}

// Store persists relation tables. Save replaces a table wholesale; a failed
// Save leaves the previous table untouched.
type Store interface {
	Load(ctx context.Context, id relation.TableID) (*relation.Table, error)
	Save(ctx context.Context, id relation.TableID, t *relation.Table) error
	Stat(ctx context.Context, id relation.TableID) (freshness.Artifact, error)
	Close() error
}

// Backend names a Store implementation
type Backend string

const (
	BackendCSV      Backend = "csv"
	BackendSQLite   Backend = "sqlite"
	BackendTurso    Backend = "turso"
	BackendPostgres Backend = "postgres"
)

// ParseBackend maps a configuration value to a Backend ("" means csv)
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendCSV, nil
	case BackendCSV, BackendSQLite, BackendTurso, BackendPostgres:
		return b, nil
	case "postgresql", "pg":
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unknown store backend %q", s)
	}
}

// Options selects and configures a Store
type Options struct {
	Backend     Backend
	DataDir     string // csv root
	SQLitePath  string
	TursoURL    string
	TursoToken  string
	PostgresURL string
}

// Open creates the Store selected by opts
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendCSV, "":
		s, err = NewCSV(opts.DataDir)
	case BackendSQLite:
		s, err = OpenSQLite(ctx, opts.SQLitePath)
	case BackendTurso:
		s, err = OpenTurso(ctx, opts.TursoURL, opts.TursoToken)
	case BackendPostgres:
		s, err = OpenPostgres(ctx, opts.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func validateRecord(r relation.Record) error {
	if !r.Role.Valid() {
		return fmt.Errorf("%w: %q", relation.ErrUnknownRole, r.Role)
	}
	if r.Character == "" {
		return fmt.Errorf("record has empty character")
	}
	if r.SampleSize < 0 {
		return fmt.Errorf("record %s %s has negative sample size %d", r.Role, r.Character, r.SampleSize)
	}
	return nil
}
