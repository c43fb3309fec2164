package main

import (
	"os"

	"bestpick/internal/diag"
	"bestpick/internal/pipeline"
	"bestpick/internal/report"
	"bestpick/internal/roster"

	"github.com/spf13/cobra"
)

var (
	details     bool
	ascending   bool
	updateFirst bool
)

func init() {
	pickCmd.Flags().BoolVarP(&details, "details", "d", false, "show every matchup and synergy behind each score")
	pickCmd.Flags().BoolVar(&ascending, "ascending", false, "list the worst picks first")
	pickCmd.Flags().BoolVarP(&updateFirst, "update", "u", false, "refresh stale tables for my role before ranking")
	rootCmd.AddCommand(pickCmd)
}

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Ranks the champions in your pool for the current draft.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := a.pick.State()
		if err != nil {
			return err
		}

		reg := a.loadRegistry(ctx)
		a.checkNames(reg, state)

		if updateFirst {
			owners := make([]roster.Slot, 0, len(state.Pool))
			for _, c := range state.FilterAvailable() {
				owners = append(owners, roster.Slot{Role: state.MyRole, Character: c})
			}
			if _, err := runUpdate(ctx, a, owners, diag.NewCollector(a.logger)); err != nil {
				return err
			}
		}

		p := pipeline.New(nil, nil, a.store, diag.NewCollector(a.logger), a.logger, pipeline.Config{})
		rep, err := p.Rank(ctx, state, ascending)
		if err != nil {
			return err
		}

		report.Render(os.Stdout, rep, report.Options{
			Details:     details,
			DisplayName: reg.DisplayName,
		})
		return nil
	},
}
