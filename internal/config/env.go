package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bestpick/internal/store"

	"github.com/joho/godotenv"
)

const (
	DefaultDataDir  = "./data"
	DefaultLogLevel = "info"
)

// EnvPaths are the .env locations tried, first match wins
var EnvPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found in paths and returns its path,
// or "" when none exists. Variables already set are not overridden.
func LoadDotEnv(paths ...string) string {
	if len(paths) == 0 {
		paths = EnvPaths
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Env holds process configuration read from the environment
type Env struct {
	DataDir  string
	LogLevel string
	Workers  int
	Store    store.Options
	// WebhookURL receives a Discord message when an update has failures
	WebhookURL string
}

// FromEnv reads the configuration from environment variables
func FromEnv() (*Env, error) {
	dataDir := getEnv("BESTPICK_DATA_DIR", DefaultDataDir)

	backend, err := store.ParseBackend(os.Getenv("BESTPICK_STORE"))
	if err != nil {
		return nil, err
	}

	workers := 0
	if v := os.Getenv("BESTPICK_WORKERS"); v != "" {
		workers, err = strconv.Atoi(v)
		if err != nil || workers < 1 {
			return nil, fmt.Errorf("invalid BESTPICK_WORKERS %q", v)
		}
	}

	env := &Env{
		DataDir:    dataDir,
		LogLevel:   getEnv("LOG_LEVEL", DefaultLogLevel),
		Workers:    workers,
		WebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		Store: store.Options{
			Backend:     backend,
			DataDir:     filepath.Join(dataDir, "tables"),
			SQLitePath:  getEnv("BESTPICK_SQLITE_PATH", filepath.Join(dataDir, "bestpick.db")),
			TursoURL:    os.Getenv("TURSO_DATABASE_URL"),
			TursoToken:  os.Getenv("TURSO_AUTH_TOKEN"),
			PostgresURL: os.Getenv("DATABASE_URL"),
		},
	}

	switch backend {
	case store.BackendTurso:
		if env.Store.TursoURL == "" {
			return nil, fmt.Errorf("TURSO_DATABASE_URL is required for the turso store")
		}
	case store.BackendPostgres:
		if env.Store.PostgresURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	}
	return env, nil
}

// SnapshotDir is where raw pages and their archives are kept
func (e *Env) SnapshotDir() string {
	return filepath.Join(e.DataDir, "pages")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
