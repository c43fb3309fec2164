package config

import (
	"os"
	"path/filepath"
	"testing"

	"bestpick/internal/relation"
	"bestpick/internal/roster"
	"bestpick/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePick = `
my_role: top
champ_pool:
  top: [Yone, Garen, "K'Sante"]
  mid: [Ahri]
  middle: ["Vel'Koz", ahri]
bans: [garen, ""]
enemy_team:
  top: ""
  middle: Vex
ally_team:
  utility: Sona
`

func TestParsePick(t *testing.T) {
	p, err := ParsePick([]byte(samplePick))
	require.NoError(t, err)
	assert.Equal(t, "top", p.MyRole)
	assert.Equal(t, []string{"Yone", "Garen", "K'Sante"}, p.ChampPool["top"])
	assert.Equal(t, "Vex", p.EnemyTeam["middle"])

	state, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, relation.Top, state.MyRole)
	assert.Equal(t, []string{"yone", "garen", "ksante"}, state.Pool)
	assert.Equal(t, []string{"yone", "ksante"}, state.FilterAvailable())
	assert.Equal(t, []roster.Slot{{Role: relation.Middle, Character: "vex"}}, state.Opponents())
	assert.Equal(t, []roster.Slot{{Role: relation.Support, Character: "sona"}}, state.Allies())
}

func TestPick_Owners(t *testing.T) {
	p, err := ParsePick([]byte(samplePick))
	require.NoError(t, err)

	owners, err := p.Owners()
	require.NoError(t, err)
	assert.Equal(t, []roster.Slot{
		{Role: relation.Top, Character: "yone"},
		{Role: relation.Top, Character: "garen"},
		{Role: relation.Top, Character: "ksante"},
		{Role: relation.Middle, Character: "ahri"},
		{Role: relation.Middle, Character: "velkoz"},
	}, owners)
}

func TestPick_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad my_role", "my_role: carry\n"},
		{"bad pool role", "my_role: top\nchamp_pool:\n  lane: [ahri]\n"},
		{"bad enemy role", "my_role: top\nenemy_team:\n  lane: vex\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePick([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = p.State()
			assert.Error(t, err)
		})
	}

	_, err := ParsePick([]byte("my_role: [top"))
	assert.Error(t, err)
}

func TestLoadPick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pick.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePick), 0644))

	p, err := LoadPick(path)
	require.NoError(t, err)
	assert.Equal(t, "top", p.MyRole)

	_, err = LoadPick(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"BESTPICK_DATA_DIR", "BESTPICK_STORE", "BESTPICK_SQLITE_PATH", "BESTPICK_WORKERS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	env, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultDataDir, env.DataDir)
	assert.Equal(t, DefaultLogLevel, env.LogLevel)
	assert.Equal(t, 0, env.Workers)
	assert.Equal(t, store.BackendCSV, env.Store.Backend)
	assert.Equal(t, filepath.Join(DefaultDataDir, "tables"), env.Store.DataDir)
	assert.Equal(t, filepath.Join(DefaultDataDir, "pages"), env.SnapshotDir())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BESTPICK_DATA_DIR", "/var/lib/bestpick")
	t.Setenv("BESTPICK_STORE", "sqlite")
	t.Setenv("BESTPICK_SQLITE_PATH", "")
	t.Setenv("BESTPICK_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "debug")

	env, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, store.BackendSQLite, env.Store.Backend)
	assert.Equal(t, "/var/lib/bestpick/bestpick.db", env.Store.SQLitePath)
	assert.Equal(t, 8, env.Workers)
	assert.Equal(t, "debug", env.LogLevel)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"BESTPICK_STORE": "mongo"}},
		{"bad workers", map[string]string{"BESTPICK_WORKERS": "many"}},
		{"zero workers", map[string]string{"BESTPICK_WORKERS": "0"}},
		{"turso without url", map[string]string{"BESTPICK_STORE": "turso", "TURSO_DATABASE_URL": ""}},
		{"postgres without url", map[string]string{"BESTPICK_STORE": "postgres", "DATABASE_URL": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BESTPICK_STORE", "")
			t.Setenv("BESTPICK_WORKERS", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "BESTPICK_DOTENV_TEST"
	t.Setenv(key, "")
	os.Unsetenv(key)

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0644))

	got := LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	assert.Equal(t, path, got)
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.Equal(t, "", LoadDotEnv(filepath.Join(dir, "nope.env")))
}
