package freshness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	now := time.Date(2024, time.March, 10, 14, 30, 0, 0, time.Local)
	return func() time.Time { return now }
}

func TestIsStale(t *testing.T) {
	p := Policy{Now: fixedClock()}
	now := p.Now()

	tests := []struct {
		name      string
		artifact  Artifact
		threshold int
		want      bool
	}{
		{"missing", Missing, 3, true},
		{"modified today", At(now.Add(-time.Hour)), 1, false},
		{"modified today zero threshold", At(now.Add(-time.Hour)), 0, false},
		{"modified five days ago", At(now.AddDate(0, 0, -5)), 3, true},
		{"exactly threshold days ago", At(now.AddDate(0, 0, -3)), 3, false},
		{"threshold plus one", At(now.AddDate(0, 0, -4)), 3, true},
		{"yesterday late evening, 1 day", At(time.Date(2024, time.March, 9, 23, 59, 0, 0, time.Local)), 1, false},
		{"two days ago, 1 day", At(time.Date(2024, time.March, 8, 23, 59, 0, 0, time.Local)), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsStale(tt.artifact, tt.threshold))
		})
	}
}

func TestIsStale_Force(t *testing.T) {
	p := Policy{Force: true, Now: fixedClock()}
	assert.True(t, p.IsStale(At(p.Now()), 30))
}

func TestNewer(t *testing.T) {
	now := time.Now()
	assert.True(t, Newer(At(now), Missing))
	assert.False(t, Newer(Missing, At(now)))
	assert.False(t, Newer(Missing, Missing))
	assert.True(t, Newer(At(now), At(now.Add(-time.Minute))))
	assert.False(t, Newer(At(now), At(now)))
}

func TestStat(t *testing.T) {
	dir := t.TempDir()

	a, err := Stat(filepath.Join(dir, "missing.csv"))
	require.NoError(t, err)
	assert.False(t, a.Exists)

	path := filepath.Join(dir, "ahri.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	a, err = Stat(path)
	require.NoError(t, err)
	assert.True(t, a.Exists)
	assert.False(t, Policy{}.IsStale(a, 1))
}
