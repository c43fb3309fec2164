package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"bestpick/internal/diag"
	"bestpick/internal/lolalytics"
	"bestpick/internal/relation"
	"bestpick/internal/roster"
	"bestpick/internal/snapshot"
	"bestpick/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cell(href, alt string, fields ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="Cell_cell__383UV"><a href="%s"><img alt="%s"></a>`, href, alt)
	for _, f := range fields {
		fmt.Fprintf(&b, "<div>%s</div>", f)
	}
	b.WriteString("</div>")
	return b.String()
}

var (
	yoneMatchups  = relation.TableID{Role: relation.Top, Character: "yone", Kind: relation.Matchup}
	yoneSynergies = relation.TableID{Role: relation.Top, Character: "yone", Kind: relation.Synergy}
	dariusMatchup = relation.TableID{Role: relation.Top, Character: "darius", Kind: relation.Matchup}
)

// fakeAcquirer serves canned pages and records every call
type fakeAcquirer struct {
	mu    sync.Mutex
	pages map[relation.TableID]string
	fail  map[relation.TableID]error
	calls []relation.TableID
}

func (f *fakeAcquirer) Acquire(_ context.Context, id relation.TableID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if err := f.fail[id]; err != nil {
		return "", err
	}
	page, ok := f.pages[id]
	if !ok {
		return "", fmt.Errorf("no page for %s", id)
	}
	return page, nil
}

func goodPages() map[relation.TableID]string {
	return map[relation.TableID]string{
		yoneMatchups: cell("?vslane=middle", "Vex", "53", "1.5", "2", "3", "1,500") +
			cell("?vslane=top", "Garen", "47", "-1", "-2", "8", "900"),
		yoneSynergies: cell("?lane=support", "Sona", "55", "3", "4", "1", "40"),
	}
}

type harness struct {
	acq       *fakeAcquirer
	snapshots *snapshot.Store
	store     *store.CSV
	sink      *diag.Collector
}

func newHarness(t *testing.T, pages map[relation.TableID]string) *harness {
	dir := t.TempDir()
	snaps, err := snapshot.New(dir, zerolog.Nop())
	require.NoError(t, err)
	st, err := store.NewCSV(dir + "/tables")
	require.NoError(t, err)
	return &harness{
		acq:       &fakeAcquirer{pages: pages, fail: map[relation.TableID]error{}},
		snapshots: snaps,
		store:     st,
		sink:      diag.NewCollector(zerolog.Nop()),
	}
}

func (h *harness) pipeline(cfg Config) *Pipeline {
	return New(h.acq, h.snapshots, h.store, h.sink, zerolog.Nop(), cfg)
}

var yone = []roster.Slot{{Role: relation.Top, Character: "yone"}}

func TestUpdate_FreshRun(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()

	summary, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	assert.Equal(t, UpdateSummary{Acquired: 2, Extracted: 2}, summary)
	assert.Equal(t, []relation.TableID{yoneMatchups, yoneSynergies}, h.acq.calls)
	assert.Empty(t, h.sink.All())

	matchups, err := h.store.Load(ctx, yoneMatchups)
	require.NoError(t, err)
	assert.Equal(t, 2, matchups.Len())
	vex, ok := matchups.Get("vex", relation.Middle)
	require.True(t, ok)
	assert.Equal(t, 1500, vex.SampleSize)

	_, err = os.Stat(h.snapshots.Path(yoneMatchups))
	assert.True(t, os.IsNotExist(err), "extracted snapshot should be archived")
}

func TestUpdate_SkipsFreshTables(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()

	_, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	h.acq.calls = nil

	summary, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	assert.Equal(t, UpdateSummary{Unchanged: 2}, summary)
	assert.Empty(t, h.acq.calls)
}

func TestUpdate_StaleTablesReacquired(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()

	_, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	h.acq.calls = nil

	later := func() time.Time { return time.Now().AddDate(0, 0, 4) }
	summary, err := h.pipeline(Config{Now: later}).Update(ctx, yone)
	require.NoError(t, err)
	assert.Equal(t, UpdateSummary{Acquired: 2, Extracted: 2}, summary)
	assert.Len(t, h.acq.calls, 2)
}

func TestUpdate_Force(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()

	_, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	h.acq.calls = nil

	summary, err := h.pipeline(Config{Force: true}).Update(ctx, yone)
	require.NoError(t, err)
	assert.Equal(t, UpdateSummary{Acquired: 2, Extracted: 2}, summary)
	assert.Len(t, h.acq.calls, 2)
}

func TestUpdate_AcquisitionFailureContinues(t *testing.T) {
	pages := goodPages()
	pages[dariusMatchup] = cell("?vslane=top", "Garen", "52", "1", "1", "9", "4000")
	pages[relation.TableID{Role: relation.Top, Character: "darius", Kind: relation.Synergy}] = cell("?lane=jungle", "Lee Sin", "51", "0.5", "1", "4", "300")

	h := newHarness(t, pages)
	h.acq.fail[yoneMatchups] = errors.New("timeout waiting for panels")

	owners := []roster.Slot{{Role: relation.Top, Character: "yone"}, {Role: relation.Top, Character: "darius"}}
	summary, err := h.pipeline(Config{Workers: 2}).Update(context.Background(), owners)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Acquired)
	assert.Equal(t, 3, summary.Extracted)
	assert.Equal(t, 1, summary.Failed)

	ds := h.sink.All()
	require.Len(t, ds, 1)
	assert.Equal(t, diag.AcquisitionFailure, ds[0].Kind)
	assert.Equal(t, yoneMatchups, ds[0].Table)

	darius, err := h.store.Load(context.Background(), dariusMatchup)
	require.NoError(t, err)
	assert.Equal(t, 1, darius.Len())
}

func TestUpdate_StructuralErrorLeavesStoreUntouched(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()

	_, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	before, err := h.store.Load(ctx, yoneMatchups)
	require.NoError(t, err)

	// the site drops a column
	h.acq.pages[yoneMatchups] = cell("?vslane=middle", "Vex", "53", "1.5", "2", "3") +
		cell("?vslane=top", "Garen", "47", "-1", "-2", "8", "900")

	summary, err := h.pipeline(Config{Force: true}).Update(ctx, yone)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Extracted, "the synergy table is still refreshed")

	after, err := h.store.Load(ctx, yoneMatchups)
	require.NoError(t, err)
	assert.Equal(t, before.Records(), after.Records())

	ds := h.sink.All()
	require.Len(t, ds, 1)
	assert.Equal(t, diag.StructuralParseError, ds[0].Kind)
	assert.Equal(t, yoneMatchups, ds[0].Table)
	assert.True(t, errors.Is(ds[0].Err, lolalytics.ErrLayoutChanged))

	_, err = os.Stat(h.snapshots.Path(yoneMatchups))
	assert.NoError(t, err, "failed snapshot is kept for inspection")
}

func TestUpdate_RenamedCellClassKeepsTable(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()

	_, err := h.pipeline(Config{}).Update(ctx, yone)
	require.NoError(t, err)
	before, err := h.store.Load(ctx, yoneMatchups)
	require.NoError(t, err)
	require.Equal(t, 2, before.Len())

	// a redeploy changes the css module hash
	h.acq.pages[yoneMatchups] = strings.ReplaceAll(h.acq.pages[yoneMatchups], "Cell_cell__383UV", "Cell_cell__9XyZ1")

	summary, err := h.pipeline(Config{Force: true}).Update(ctx, yone)
	require.NoError(t, err)
	assert.Equal(t, UpdateSummary{Acquired: 2, Extracted: 1, Failed: 1}, summary)

	after, err := h.store.Load(ctx, yoneMatchups)
	require.NoError(t, err)
	assert.Equal(t, before.Records(), after.Records())

	ds := h.sink.All()
	require.Len(t, ds, 1)
	assert.Equal(t, diag.StructuralParseError, ds[0].Kind)
	assert.True(t, errors.Is(ds[0].Err, lolalytics.ErrLayoutChanged))
}

func TestUpdate_ExtractsPendingSnapshotsWithoutAcquirer(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.snapshots.Save(yoneMatchups, goodPages()[yoneMatchups]))

	p := New(nil, h.snapshots, h.store, h.sink, zerolog.Nop(), Config{})
	summary, err := p.Update(context.Background(), yone)
	require.NoError(t, err)
	assert.Equal(t, UpdateSummary{Extracted: 1, Unchanged: 1}, summary)

	_, err = h.store.Load(context.Background(), yoneMatchups)
	assert.NoError(t, err)
}

func TestUpdate_Cancelled(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline(Config{}).Update(ctx, yone)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.acq.calls)
}

func TestRank(t *testing.T) {
	h := newHarness(t, goodPages())
	ctx := context.Background()
	p := h.pipeline(Config{})

	_, err := p.Update(ctx, yone)
	require.NoError(t, err)

	state, err := roster.New(roster.Input{
		MyRole: "top",
		Pool:   []string{"Yone", "Garen"},
		Bans:   []string{"garen"},
		Enemy:  map[string]string{"middle": "Vex"},
		Ally:   map[string]string{"support": "Sona"},
	})
	require.NoError(t, err)

	rep, err := p.Rank(ctx, state, false)
	require.NoError(t, err)
	require.Len(t, rep.Candidates, 1)

	best, ok := rep.Best()
	require.True(t, ok)
	assert.Equal(t, "yone", best.Character)
	// vex: delta2 2 at top-vs-middle weight, sona: delta2 4 at top-with-support weight
	assert.Equal(t, 13, best.VsOpponents)
	assert.Equal(t, 12, best.WithAllies)
	assert.Equal(t, 25, best.Total)
	assert.Empty(t, rep.Diagnostics)
}
