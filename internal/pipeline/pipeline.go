// Package pipeline sequences page acquisition, extraction and storage for a
// player's pool, and ranks the pool from what is stored.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"bestpick/internal/diag"
	"bestpick/internal/freshness"
	"bestpick/internal/lolalytics"
	"bestpick/internal/relation"
	"bestpick/internal/report"
	"bestpick/internal/roster"
	"bestpick/internal/scoring"
	"bestpick/internal/snapshot"
	"bestpick/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is how many characters are extracted in parallel
const DefaultWorkers = 4

// Acquirer fetches the raw page for a table. Calls are made one at a time.
type Acquirer interface {
	Acquire(ctx context.Context, id relation.TableID) (string, error)
}

// Config holds pipeline settings
type Config struct {
	// Force reacquires and re-extracts everything regardless of age
	Force   bool
	Workers int
	// Now is the clock used for staleness; time.Now when nil
	Now func() time.Time
}

// Pipeline refreshes stored relation tables and ranks pools from them
type Pipeline struct {
	acquirer  Acquirer
	snapshots *snapshot.Store
	store     store.Store
	sink      diag.Sink
	logger    zerolog.Logger
	policy    freshness.Policy
	workers   int
}

// New creates a pipeline. acquirer may be nil, in which case Update only
// extracts snapshots that are already on disk.
func New(acquirer Acquirer, snapshots *snapshot.Store, st store.Store, sink diag.Sink, logger zerolog.Logger, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	return &Pipeline{
		acquirer:  acquirer,
		snapshots: snapshots,
		store:     st,
		sink:      sink,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		policy:    freshness.Policy{Force: cfg.Force, Now: cfg.Now},
		workers:   cfg.Workers,
	}
}

// UpdateSummary counts what happened to each table during Update
type UpdateSummary struct {
	Acquired  int
	Extracted int
	Unchanged int
	Failed    int
}

type counters struct {
	acquired, extracted, unchanged, failed atomic.Int64
}

func (c *counters) summary() UpdateSummary {
	return UpdateSummary{
		Acquired:  int(c.acquired.Load()),
		Extracted: int(c.extracted.Load()),
		Unchanged: int(c.unchanged.Load()),
		Failed:    int(c.failed.Load()),
	}
}

// Update refreshes the matchup and synergy tables of every owner. Pages are
// acquired sequentially, then extracted in parallel. A failure on one table
// is reported to the sink and does not stop the others; only store and
// context errors abort the run.
func (p *Pipeline) Update(ctx context.Context, owners []roster.Slot) (UpdateSummary, error) {
	var c counters

	if p.acquirer != nil {
		for _, owner := range owners {
			if err := p.acquire(ctx, owner, &c); err != nil {
				return c.summary(), err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, owner := range owners {
		owner := owner
		g.Go(func() error {
			for _, kind := range relation.Kinds {
				id := relation.TableID{Role: owner.Role, Character: owner.Character, Kind: kind}
				if err := p.extract(gctx, id, &c); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()

	s := c.summary()
	p.logger.Info().
		Int("owners", len(owners)).
		Int("acquired", s.Acquired).
		Int("extracted", s.Extracted).
		Int("unchanged", s.Unchanged).
		Int("failed", s.Failed).
		Msg("update finished")
	return s, err
}

// acquire fetches both pages of owner when either stored table is too old
func (p *Pipeline) acquire(ctx context.Context, owner roster.Slot, c *counters) error {
	ids := make([]relation.TableID, 0, len(relation.Kinds))
	stale := false
	for _, kind := range relation.Kinds {
		id := relation.TableID{Role: owner.Role, Character: owner.Character, Kind: kind}
		ids = append(ids, id)

		a, err := p.store.Stat(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", id, err)
		}
		if p.policy.IsStale(a, freshness.AcquireAfterDays) {
			stale = true
		}
	}
	if !stale {
		return nil
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		html, err := p.acquirer.Acquire(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.failed.Add(1)
			p.sink.Report(diag.Diagnostic{Kind: diag.AcquisitionFailure, Table: id, Err: err})
			continue
		}
		if err := p.snapshots.Save(id, html); err != nil {
			return err
		}
		c.acquired.Add(1)
	}
	return nil
}

// extract stores the table parsed from id's pending snapshot when the stored
// table is missing, old, or older than the snapshot
func (p *Pipeline) extract(ctx context.Context, id relation.TableID, c *counters) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap, err := p.snapshots.Stat(id)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot for %s: %w", id, err)
	}
	if !snap.Exists {
		c.unchanged.Add(1)
		return nil
	}

	current, err := p.store.Stat(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", id, err)
	}
	if !p.policy.IsStale(current, freshness.ExtractAfterDays) && !freshness.Newer(snap, current) {
		c.unchanged.Add(1)
		return nil
	}

	html, err := p.snapshots.Load(id)
	if err != nil {
		return err
	}

	t, err := lolalytics.ExtractTable(id, html)
	if err != nil {
		// the snapshot stays in raw/ for inspection
		c.failed.Add(1)
		p.sink.Report(diag.Diagnostic{Kind: diag.StructuralParseError, Table: id, Err: err})
		return nil
	}

	if err := p.store.Save(ctx, id, t); err != nil {
		return fmt.Errorf("failed to save %s: %w", id, err)
	}
	c.extracted.Add(1)
	p.logger.Debug().Str("table", id.String()).Int("records", t.Len()).Msg("stored table")

	if _, err := p.snapshots.Archive(id); err != nil {
		p.logger.Warn().Err(err).Str("table", id.String()).Msg("failed to archive snapshot")
	}
	return nil
}

// Rank scores the available pool characters of state from stored tables.
// A report is always produced; data problems appear as diagnostics.
func (p *Pipeline) Rank(ctx context.Context, state *roster.State, ascending bool) (*report.Report, error) {
	collector := diag.NewCollector(p.logger)
	candidates, err := scoring.NewRanker(p.store, collector, p.logger).RankPool(ctx, state, ascending)
	if err != nil {
		return nil, err
	}
	return &report.Report{
		Role:        state.MyRole,
		Candidates:  candidates,
		Diagnostics: collector.All(),
	}, nil
}
