package main

import (
	"fmt"

	"github.com/Veraticus/mediamigrate/internal/catalog"
	"github.com/Veraticus/mediamigrate/internal/cli"
	"github.com/Veraticus/mediamigrate/internal/engine"
	"github.com/Veraticus/mediamigrate/internal/ledger"
	"github.com/Veraticus/mediamigrate/internal/matcher"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/spf13/cobra"
)

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would decide without changing anything",
		Long: `Reconcile every asset against the current content records and print the
decision, score, confidence band and rationale. Nothing is uploaded and the
ledger is only read.`,
		RunE: runPlan,
	}

	cmd.Flags().String("assets", "", "media export CSV (overrides assets.csv)")
	cmd.Flags().String("ledger", "", "ledger file (overrides ledger.path)")
	cmd.Flags().String("store", "", "content store driver: http or sqlite (overrides store.driver)")
	cmd.Flags().Bool("all", false, "include assets the ledger already settled")

	return cmd
}

func runPlan(cmd *cobra.Command, _ []string) error {
	includeSettled, _ := cmd.Flags().GetBool("all")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	assets, err := loadAssets(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := catalog.LoadRecords(ctx, store)
	if err != nil {
		return err
	}

	var settled engine.SettledChecker
	if !includeSettled {
		entries, err := ledger.ReadEntries(cfg.LedgerPath)
		if err != nil {
			return err
		}
		settled = ledger.Summarize(entries)
	}

	plan := engine.DryRun(matcher.NewScorer(cfg.Matching), cfg.Reconcile(), settled, assets.All(), records.Records())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatTitle("Migration plan"))
	if len(plan.Decisions) > 0 {
		fmt.Fprintln(out, cli.RenderDecisions(plan.Decisions))
	}
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d to accept, %d without candidate, %d low confidence, %d already associated, %d already settled",
		plan.Count(model.OutcomeAccept),
		plan.Count(model.OutcomeRejectNoCandidate),
		plan.Count(model.OutcomeRejectLowConfidence),
		plan.Count(model.OutcomeRejectAlreadyAssociated),
		len(plan.Settled))))
	return nil
}
