package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bestpick/internal/relation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ahriSynergies = relation.TableID{Role: relation.Middle, Character: "ahri", Kind: relation.Synergy}

func TestStore_SaveLoadArchive(t *testing.T) {
	base := t.TempDir()
	s, err := New(base, zerolog.Nop())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }

	a, err := s.Stat(ahriSynergies)
	require.NoError(t, err)
	assert.False(t, a.Exists)

	require.NoError(t, s.Save(ahriSynergies, "<div>first</div>"))
	require.NoError(t, s.Save(ahriSynergies, "<div>second</div>"))

	assert.Equal(t, filepath.Join(base, "raw", "middle", "ahri_synergies.html"), s.Path(ahriSynergies))
	html, err := s.Load(ahriSynergies)
	require.NoError(t, err)
	assert.Equal(t, "<div>second</div>", html)

	a, err = s.Stat(ahriSynergies)
	require.NoError(t, err)
	assert.True(t, a.Exists)

	archived, err := s.Archive(ahriSynergies)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "archive", "middle_ahri_synergies_2024-03-10_09-00-00.html.gz"), archived)

	_, err = os.Stat(s.Path(ahriSynergies))
	assert.True(t, os.IsNotExist(err), "pending page must be removed after archiving")

	restored, err := ReadArchive(archived)
	require.NoError(t, err)
	assert.Equal(t, "<div>second</div>", restored)
}

func TestStore_ArchiveMissing(t *testing.T) {
	s, err := New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	_, err = s.Archive(ahriSynergies)
	assert.Error(t, err)
}

func TestStore_SetArchiveDir(t *testing.T) {
	s, err := New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	other := filepath.Join(t.TempDir(), "cold")
	require.NoError(t, s.SetArchiveDir(other))
	require.NoError(t, s.Save(ahriSynergies, "x"))

	archived, err := s.Archive(ahriSynergies)
	require.NoError(t, err)
	assert.Equal(t, other, filepath.Dir(archived))
}
