package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"bestpick/internal/freshness"
	"bestpick/internal/relation"
)

// CSV stores each table as <dir>/<role>/<kind>s/<character>.csv
type CSV struct {
	dir string
}

// NewCSV creates a CSV store rooted at dir
func NewCSV(dir string) (*CSV, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv store directory not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &CSV{dir: dir}, nil
}

// Path returns the file backing id
func (s *CSV) Path(id relation.TableID) string {
	return filepath.Join(s.dir, string(id.Role), id.Kind.Plural(), id.Character+".csv")
}

// Load reads the table for id
func (s *CSV) Load(ctx context.Context, id relation.TableID) (*relation.Table, error) {
	f, err := os.Open(s.Path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", id, err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return t, nil
}

// Save replaces the table for id. The file is written next to its final
// location and renamed into place.
func (s *CSV) Save(ctx context.Context, id relation.TableID, t *relation.Table) error {
	path := s.Path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+id.Character+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", id, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", id, err)
	}
	return nil
}

// Stat reports when the table for id was last written
func (s *CSV) Stat(ctx context.Context, id relation.TableID) (freshness.Artifact, error) {
	return freshness.Stat(s.Path(id))
}

// Close is a no-op
func (s *CSV) Close() error {
	return nil
}

// WriteCSV writes t with a header row in Columns order
func WriteCSV(w io.Writer, t *relation.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range t.Records() {
		if err := validateRecord(r); err != nil {
			return err
		}
		row := []string{
			string(r.Role),
			r.Character,
			formatFloat(r.WinRate),
			formatFloat(r.Delta1),
			formatFloat(r.Delta2),
			formatFloat(r.PickRate),
			strconv.Itoa(r.SampleSize),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV
func ReadCSV(r io.Reader) (*relation.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}
	for i, col := range Columns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], col)
		}
	}

	t := relation.NewTable()
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Add(rec)
	}
	return t, nil
}

func parseRow(row []string) (relation.Record, error) {
	rec := relation.Record{
		Role:      relation.Role(row[0]),
		Character: row[1],
	}
	floats := []*float64{&rec.WinRate, &rec.Delta1, &rec.Delta2, &rec.PickRate}
	for i, dst := range floats {
		v, err := strconv.ParseFloat(row[2+i], 64)
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", Columns[2+i], err)
		}
		*dst = v
	}
	games, err := strconv.Atoi(row[6])
	if err != nil {
		return rec, fmt.Errorf("column sample_size: %w", err)
	}
	rec.SampleSize = games
	return rec, validateRecord(rec)
}

// formatFloat uses the shortest representation that parses back to the same value
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
