package report

import (
	"bytes"
	"strings"
	"testing"

	"bestpick/internal/diag"
	"bestpick/internal/relation"
	"bestpick/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{
		Role: relation.Top,
		Candidates: []scoring.Candidate{
			{
				Character: "yone", VsOpponents: 13, WithAllies: -4, Total: 9,
				MeanWinRate: 51.5, MeanDelta1: 0.25, MeanDelta2: 1,
				Relations: []scoring.Contribution{
					{Kind: relation.Matchup, Record: relation.Record{Role: relation.Middle, Character: "vex", WinRate: 53, Delta2: 2, SampleSize: 500}, Score: 13},
					{Kind: relation.Synergy, Record: relation.Neutral(relation.Support, "sona"), Neutral: true},
				},
			},
			{Character: "drmundo", Total: -2},
		},
		Diagnostics: []diag.Diagnostic{
			{Kind: diag.MissingRelation, Table: relation.TableID{Role: relation.Top, Character: "yone", Kind: relation.Synergy},
				Counterpart: relation.Key{Role: relation.Support, Character: "sona"}},
		},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleReport(), Options{})
	out := buf.String()

	assert.Contains(t, strings.ToLower(out), "best top picks")
	assert.Contains(t, out, "yone")
	assert.Contains(t, out, "+9")
	assert.Contains(t, out, "51.50")
	assert.Less(t, strings.Index(out, "yone"), strings.Index(out, "drmundo"))
	assert.Contains(t, out, "Diagnostics (1):")
	assert.Contains(t, out, "synergy not found: yone with sona (support)")
	assert.NotContains(t, out, "n/a", "details are off by default")
}

func TestRender_DetailsAndNames(t *testing.T) {
	names := map[string]string{"yone": "Yone", "drmundo": "Dr. Mundo", "vex": "Vex", "sona": "Sona"}

	var buf bytes.Buffer
	Render(&buf, sampleReport(), Options{
		Details:     true,
		DisplayName: func(k string) string { return names[k] },
	})
	out := buf.String()

	assert.Contains(t, out, "Dr. Mundo")
	assert.Contains(t, out, "Dr. Mundo: no opponents or allies known")
	assert.Contains(t, out, "Vex")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "+13")
}

func TestRender_EmptyPool(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, &Report{Role: relation.Support}, Options{Details: true})
	assert.Equal(t, "No available support champions in pool\n", buf.String())
}

func TestBest(t *testing.T) {
	best, ok := sampleReport().Best()
	require.True(t, ok)
	assert.Equal(t, "yone", best.Character)

	_, ok = (&Report{}).Best()
	assert.False(t, ok)
	_, ok = (*Report)(nil).Best()
	assert.False(t, ok)
}
