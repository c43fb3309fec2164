package main

import (
	"context"
	"fmt"
	"time"

	"bestpick/internal/champ"
	"bestpick/internal/config"
	"bestpick/internal/logger"
	"bestpick/internal/roster"
	"bestpick/internal/store"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	pickPath string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "bestpick",
	Short:         "bestpick recommends a champion from your pool using lolalytics matchup and synergy data.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&pickPath, "config", "c", config.DefaultPickPath, "pick config (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// app is the state shared by every command
type app struct {
	env    *config.Env
	logger zerolog.Logger
	store  store.Store
	pick   *config.Pick
}

func setup(ctx context.Context) (*app, error) {
	env, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	level := env.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log := logger.New(level, true)

	pick, err := config.LoadPick(pickPath)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, env.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", env.Store.Backend, err)
	}
	log.Debug().Str("backend", string(env.Store.Backend)).Str("data_dir", env.DataDir).Msg("store opened")

	return &app{env: env, logger: log, store: st, pick: pick}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close store")
	}
}

// loadRegistry fetches champion names. Failure only disables name checks.
func (a *app) loadRegistry(ctx context.Context) *champ.Registry {
	reg := champ.NewRegistry("")
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := reg.Load(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("champion list unavailable, names are not checked")
		return reg
	}
	a.logger.Debug().Str("version", reg.Version()).Msg("champion list loaded")
	return reg
}

// checkNames warns about names in the draft that are not champions
func (a *app) checkNames(reg *champ.Registry, state *roster.State) {
	if !reg.IsLoaded() {
		return
	}
	for _, key := range state.Characters() {
		if reg.Known(key) {
			continue
		}
		ev := a.logger.Warn().Str("champion", key)
		if suggestion, ok := reg.Suggest(key); ok {
			ev = ev.Str("did_you_mean", suggestion)
		}
		ev.Msg("unknown champion")
	}
}
