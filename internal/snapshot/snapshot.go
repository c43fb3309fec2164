package snapshot

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bestpick/internal/freshness"
	"bestpick/internal/relation"

	"github.com/rs/zerolog"
)

// Store keeps raw scraped pages until they are extracted. Pages live under
// raw/ while pending and are gzip-compressed into archive/ once extracted.
type Store struct {
	rawDir     string // pending pages
	archiveDir string // extracted pages, compressed
	logger     zerolog.Logger

	now func() time.Time
	mu  sync.Mutex
}

// New creates a snapshot store under baseDir
func New(baseDir string, logger zerolog.Logger) (*Store, error) {
	rawDir := filepath.Join(baseDir, "raw")
	archiveDir := filepath.Join(baseDir, "archive")

	for _, dir := range []string{rawDir, archiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Store{
		rawDir:     rawDir,
		archiveDir: archiveDir,
		logger:     logger.With().Str("component", "snapshot").Logger(),
		now:        time.Now,
	}, nil
}

// SetArchiveDir allows moving archives somewhere else (e.g. a larger disk)
func (s *Store) SetArchiveDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	s.mu.Lock()
	s.archiveDir = path
	s.mu.Unlock()
	return nil
}

// Path returns where the pending page for id is kept
func (s *Store) Path(id relation.TableID) string {
	return filepath.Join(s.rawDir, string(id.Role), fmt.Sprintf("%s_%s.html", id.Character, id.Kind.Plural()))
}

// Save writes html as the pending page for id, replacing any previous one
func (s *Store) Save(id relation.TableID, html string) error {
	path := s.Path(id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot for %s: %w", id, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.WriteString(tmp, html); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot for %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot for %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store snapshot for %s: %w", id, err)
	}

	s.logger.Debug().Str("table", id.String()).Int("bytes", len(html)).Msg("saved snapshot")
	return nil
}

// Load returns the pending page for id
func (s *Store) Load(id relation.TableID) (string, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot for %s: %w", id, err)
	}
	return string(data), nil
}

// Stat describes the pending page for id
func (s *Store) Stat(id relation.TableID) (freshness.Artifact, error) {
	return freshness.Stat(s.Path(id))
}

// Archive compresses the pending page for id into the archive and removes it
func (s *Store) Archive(id relation.TableID) (string, error) {
	s.mu.Lock()
	archiveDir := s.archiveDir
	s.mu.Unlock()

	src := s.Path(id)
	filename := fmt.Sprintf("%s_%s_%s_%s.html.gz",
		id.Role, id.Character, id.Kind.Plural(), s.now().Format("2006-01-02_15-04-05"))
	dst := filepath.Join(archiveDir, filename)

	if err := compress(src, dst); err != nil {
		return "", fmt.Errorf("failed to archive snapshot for %s: %w", id, err)
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to remove snapshot for %s: %w", id, err)
	}

	s.logger.Debug().Str("table", id.String()).Str("archive", filename).Msg("archived snapshot")
	return dst, nil
}

// ReadArchive returns the decompressed contents of an archived page
func ReadArchive(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", err
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func compress(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}
	return dst.Close()
}
