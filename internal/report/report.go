package report

import (
	"fmt"
	"io"

	"bestpick/internal/diag"
	"bestpick/internal/relation"
	"bestpick/internal/scoring"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Report is the outcome of one ranking run
type Report struct {
	Role        relation.Role
	Candidates  []scoring.Candidate
	Diagnostics []diag.Diagnostic
}

// Best returns the top candidate, if any
func (r *Report) Best() (scoring.Candidate, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return scoring.Candidate{}, false
	}
	return r.Candidates[0], true
}

// Options controls rendering
type Options struct {
	// Details adds a per-relation breakdown under the ranking
	Details bool
	// DisplayName maps a normalized key to a printable name; keys are printed as-is when nil
	DisplayName func(key string) string
}

func (o Options) name(key string) string {
	if o.DisplayName == nil {
		return key
	}
	return o.DisplayName(key)
}

// Render writes the ranking, the optional breakdown and the diagnostics to w
func Render(w io.Writer, r *Report, opts Options) {
	if len(r.Candidates) == 0 {
		fmt.Fprintf(w, "No available %s champions in pool\n", r.Role)
	} else {
		renderRanking(w, r, opts)
	}

	if opts.Details {
		for _, c := range r.Candidates {
			renderDetails(w, c, opts)
		}
	}

	if len(r.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics (%d):\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}
}

func renderRanking(w io.Writer, r *Report, opts Options) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Best %s picks", r.Role)
	t.AppendHeader(table.Row{"#", "Champion", "Total", "Vs opponents", "With allies", "Win rate", "Delta1", "Delta2"})

	for i, c := range r.Candidates {
		t.AppendRow(table.Row{
			i + 1,
			opts.name(c.Character),
			fmt.Sprintf("%+d", c.Total),
			fmt.Sprintf("%+d", c.VsOpponents),
			fmt.Sprintf("%+d", c.WithAllies),
			fmt.Sprintf("%.2f", c.MeanWinRate),
			fmt.Sprintf("%.2f", c.MeanDelta1),
			fmt.Sprintf("%.2f", c.MeanDelta2),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderDetails(w io.Writer, c scoring.Candidate, opts Options) {
	fmt.Fprintln(w)
	if len(c.Relations) == 0 {
		fmt.Fprintf(w, "%s: no opponents or allies known\n", opts.name(c.Character))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("%s", opts.name(c.Character))
	t.AppendHeader(table.Row{"", "Role", "Champion", "Win rate", "Delta1", "Delta2", "Games", "Score"})

	for _, rel := range c.Relations {
		side := "vs"
		if rel.Kind == relation.Synergy {
			side = "with"
		}
		games := fmt.Sprint(rel.Record.SampleSize)
		if rel.Neutral {
			games = "n/a"
		}
		t.AppendRow(table.Row{
			side,
			rel.Record.Role,
			opts.name(rel.Record.Character),
			fmt.Sprintf("%.2f", rel.Record.WinRate),
			fmt.Sprintf("%.2f", rel.Record.Delta1),
			fmt.Sprintf("%.2f", rel.Record.Delta2),
			games,
			fmt.Sprintf("%+d", rel.Score),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
