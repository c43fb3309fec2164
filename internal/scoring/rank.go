package scoring

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"bestpick/internal/diag"
	"bestpick/internal/relation"
	"bestpick/internal/roster"
	"bestpick/internal/store"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// TableSource provides stored relation tables; store.Store satisfies it
type TableSource interface {
	Load(ctx context.Context, id relation.TableID) (*relation.Table, error)
}

// Contribution is one scored relation behind a candidate's total
type Contribution struct {
	Kind   relation.Kind
	Record relation.Record
	Score  int
	// Neutral is true when Record is a substitute for missing or thin data
	Neutral bool
}

// Candidate is one ranked pool character
type Candidate struct {
	Character   string
	VsOpponents int
	WithAllies  int
	Total       int
	MeanWinRate float64
	MeanDelta1  float64
	MeanDelta2  float64
	Relations   []Contribution
}

// Ranker scores pool characters from stored tables
type Ranker struct {
	source   TableSource
	sink     diag.Sink
	logger   zerolog.Logger
	minGames int
}

// NewRanker creates a ranker reading from source and reporting to sink
func NewRanker(source TableSource, sink diag.Sink, logger zerolog.Logger) *Ranker {
	return &Ranker{
		source:   source,
		sink:     sink,
		logger:   logger.With().Str("component", "scoring").Logger(),
		minGames: relation.MinGames,
	}
}

// RankPool scores every available pool character and sorts them by total,
// best first unless ascending is set. Ties keep pool order. Missing data
// never drops a candidate; it degrades to neutral relations.
func (r *Ranker) RankPool(ctx context.Context, state *roster.State, ascending bool) ([]Candidate, error) {
	available := state.FilterAvailable()
	candidates := make([]Candidate, 0, len(available))

	for _, character := range available {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates = append(candidates, r.scoreCandidate(ctx, state, character))
	}

	SortCandidates(candidates, ascending)
	r.logger.Debug().Int("pool", len(state.Pool)).Int("ranked", len(candidates)).Msg("ranked pool")
	return candidates, nil
}

// SortCandidates stably sorts by Total, descending unless ascending is set
func SortCandidates(candidates []Candidate, ascending bool) {
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if ascending {
			return cmp.Compare(a.Total, b.Total)
		}
		return cmp.Compare(b.Total, a.Total)
	})
}

func (r *Ranker) scoreCandidate(ctx context.Context, state *roster.State, character string) Candidate {
	c := Candidate{Character: character}

	matchups := r.loadTable(ctx, relation.TableID{Role: state.MyRole, Character: character, Kind: relation.Matchup})
	for _, slot := range state.Opponents() {
		contrib := r.contribution(state.MyRole, character, relation.Matchup, matchups, slot)
		c.VsOpponents += contrib.Score
		c.Relations = append(c.Relations, contrib)
	}

	synergies := r.loadTable(ctx, relation.TableID{Role: state.MyRole, Character: character, Kind: relation.Synergy})
	for _, slot := range state.Allies() {
		contrib := r.contribution(state.MyRole, character, relation.Synergy, synergies, slot)
		c.WithAllies += contrib.Score
		c.Relations = append(c.Relations, contrib)
	}

	c.Total = c.VsOpponents + c.WithAllies
	c.MeanWinRate, c.MeanDelta1, c.MeanDelta2 = means(c.Relations)
	return c
}

// loadTable returns nil when the table cannot be read; every lookup on a
// nil table misses, so its relations all go neutral
func (r *Ranker) loadTable(ctx context.Context, id relation.TableID) *relation.Table {
	t, err := r.source.Load(ctx, id)
	if err == nil {
		return t
	}
	d := diag.Diagnostic{Kind: diag.MissingTable, Table: id}
	if !errors.Is(err, store.ErrTableNotFound) {
		d.Err = err
	}
	r.sink.Report(d)
	return nil
}

func (r *Ranker) contribution(myRole relation.Role, character string, kind relation.Kind, t *relation.Table, slot roster.Slot) Contribution {
	id := relation.TableID{Role: myRole, Character: character, Kind: kind}
	counterpart := relation.Key{Role: slot.Role, Character: slot.Character}

	rec, neutral := r.resolve(id, t, counterpart)
	return Contribution{
		Kind:    kind,
		Record:  rec,
		Score:   Score(myRole, slot.Role, rec.Delta2),
		Neutral: neutral,
	}
}

// resolve looks up a relation, substituting a neutral record for data that is
// absent or below the sample threshold
func (r *Ranker) resolve(id relation.TableID, t *relation.Table, k relation.Key) (relation.Record, bool) {
	rec, ok := t.Get(k.Character, k.Role)
	if !ok {
		// a missing table was already reported as a whole
		if t != nil {
			r.sink.Report(diag.Diagnostic{Kind: diag.MissingRelation, Table: id, Counterpart: k})
		}
		return relation.Neutral(k.Role, k.Character), true
	}
	if !relation.SufficientSample(rec, r.minGames) {
		r.sink.Report(diag.Diagnostic{Kind: diag.InsufficientSample, Table: id, Counterpart: k, SampleSize: rec.SampleSize})
		return relation.Neutral(k.Role, k.Character), true
	}
	return rec, false
}

// means averages win rate and deltas over every relation, neutral ones
// included. With no relations the neutral values are returned.
func means(relations []Contribution) (winRate, delta1, delta2 float64) {
	if len(relations) == 0 {
		n := relation.Neutral("", "")
		return n.WinRate, n.Delta1, n.Delta2
	}
	wr := make([]float64, len(relations))
	d1 := make([]float64, len(relations))
	d2 := make([]float64, len(relations))
	for i, c := range relations {
		wr[i] = c.Record.WinRate
		d1[i] = c.Record.Delta1
		d2[i] = c.Record.Delta2
	}
	return stat.Mean(wr, nil), stat.Mean(d1, nil), stat.Mean(d2, nil)
}
