package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/mediamigrate/internal/catalog"
	"github.com/Veraticus/mediamigrate/internal/cli"
	"github.com/Veraticus/mediamigrate/internal/engine"
	"github.com/Veraticus/mediamigrate/internal/ledger"
	"github.com/Veraticus/mediamigrate/internal/matcher"
	"github.com/Veraticus/mediamigrate/internal/source"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Migrate media into the content store",
		Long: `Match every asset of the media export to a content record, upload it and
attach it to the record. Each decision is written to the ledger before the
next asset starts, so an interrupted run resumes where it stopped.`,
		Example: `  # Migrate into the content API configured in config.yaml
  mediamigrate run --assets media-export.csv

  # Rehearse against the local SQLite store
  mediamigrate run --assets media-export.csv --store sqlite --ledger rehearsal.jsonl`,
		RunE: runMigration,
	}

	cmd.Flags().String("assets", "", "media export CSV (overrides assets.csv)")
	cmd.Flags().String("ledger", "", "ledger file (overrides ledger.path)")
	cmd.Flags().String("store", "", "content store driver: http or sqlite (overrides store.driver)")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func runMigration(cmd *cobra.Command, _ []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	assets, err := loadAssets(cfg)
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, release := handler.HandleInterrupts(cmd.Context(), "mediamigrate run")
	defer release()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := catalog.LoadRecords(ctx, store)
	if err != nil {
		return err
	}

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := l.Close(); closeErr != nil {
			slog.Warn("Failed to close ledger", "error", closeErr)
		}
	}()

	runner := engine.NewRunner(store, source.NewHTTPSource(cfg.Source()), l, matcher.NewScorer(cfg.Matching), cfg.Run())
	if !noProgress {
		runner.WithObserver(cli.NewProgress(cmd.ErrOrStderr()))
	}

	slog.Info("Loaded migration inputs",
		"assets", assets.Len(),
		"records", records.Len(),
		"with_media", records.CountWithMedia(),
		"ledger", l.Path(),
		"store", cfg.Store.Driver)

	summary, err := runner.Run(ctx, assets.All(), records.Records())
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRunSummary(summary))
	}
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d assets failed; run again to retry them", summary.Failed())
	}
	if summary.Interrupted {
		return fmt.Errorf("run interrupted after %d assets", summary.Processed)
	}
	return nil
}
