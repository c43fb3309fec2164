package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bestpick/internal/diag"
	"bestpick/internal/lolalytics"
	"bestpick/internal/notify"
	"bestpick/internal/pipeline"
	"bestpick/internal/roster"
	"bestpick/internal/snapshot"

	"github.com/spf13/cobra"
)

var (
	force          bool
	headful        bool
	installBrowser bool
	archiveDir     string
	extractOnly    bool
)

func init() {
	updateCmd.Flags().BoolVarP(&force, "force", "f", false, "refresh every table regardless of age")
	updateCmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	updateCmd.Flags().BoolVar(&installBrowser, "install-browser", false, "download chromium before scraping")
	updateCmd.Flags().StringVar(&archiveDir, "archive-dir", "", "where extracted pages are archived")
	updateCmd.Flags().BoolVar(&extractOnly, "extract-only", false, "only extract pages already on disk")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Scrapes and stores matchup and synergy tables for every champion in the pool.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		owners, err := a.pick.Owners()
		if err != nil {
			return err
		}
		if len(owners) == 0 {
			return fmt.Errorf("champ_pool in %s is empty", pickPath)
		}

		collector := diag.NewCollector(a.logger)
		start := time.Now()
		summary, err := runUpdate(ctx, a, owners, collector)
		if err != nil {
			return err
		}

		if a.env.WebhookURL != "" && summary.Failed > 0 {
			notifier := notify.NewNotifier(a.env.WebhookURL, a.logger)
			if err := notifier.SendUpdate(ctx, summary, collector.All(), time.Since(start)); err != nil {
				a.logger.Warn().Err(err).Msg("failed to send update notification")
			}
		}

		fmt.Printf("Acquired %d, extracted %d, unchanged %d, failed %d tables\n",
			summary.Acquired, summary.Extracted, summary.Unchanged, summary.Failed)
		for _, d := range collector.All() {
			fmt.Fprintf(os.Stderr, "  - %s\n", d)
		}
		return nil
	},
}

// runUpdate refreshes the tables of owners, scraping unless --extract-only is set
func runUpdate(ctx context.Context, a *app, owners []roster.Slot, sink diag.Sink) (pipeline.UpdateSummary, error) {
	snaps, err := snapshot.New(a.env.SnapshotDir(), a.logger)
	if err != nil {
		return pipeline.UpdateSummary{}, err
	}
	if archiveDir != "" {
		if err := snaps.SetArchiveDir(archiveDir); err != nil {
			return pipeline.UpdateSummary{}, err
		}
	}

	var acquirer pipeline.Acquirer
	if !extractOnly {
		browser, err := lolalytics.NewBrowser(lolalytics.BrowserOptions{
			Headless: !headful,
			Install:  installBrowser,
		}, a.logger)
		if err != nil {
			return pipeline.UpdateSummary{}, err
		}
		defer func() {
			if err := browser.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("failed to close browser")
			}
		}()
		acquirer = browser
	}

	p := pipeline.New(acquirer, snaps, a.store, sink, a.logger, pipeline.Config{
		Force:   force,
		Workers: a.env.Workers,
	})
	return p.Update(ctx, owners)
}
