package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/mediamigrate/internal/catalog"
	"github.com/Veraticus/mediamigrate/internal/cli"
	"github.com/Veraticus/mediamigrate/internal/ledger"
	"github.com/Veraticus/mediamigrate/internal/model"
	"github.com/spf13/cobra"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the migration ledger",
	}

	cmd.PersistentFlags().String("ledger", "", "ledger file (overrides ledger.path)")
	cmd.AddCommand(ledgerShowCmd())
	cmd.AddCommand(ledgerStatusCmd())

	return cmd
}

func ledgerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List ledger entries",
		Example: `  # Latest decision of every asset
  mediamigrate ledger show

  # Every entry ever written, including superseded ones
  mediamigrate ledger show --history`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, _ := cmd.Flags().GetBool("history")
			pendingOnly, _ := cmd.Flags().GetBool("pending")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			entries, err := ledger.ReadEntries(cfg.LedgerPath)
			if err != nil {
				return err
			}

			status := ledger.Summarize(entries)
			switch {
			case pendingOnly:
				entries = status.Pending()
			case !history:
				entries = latestInOrder(entries, status)
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No ledger entries in "+cfg.LedgerPath))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Ledger entries"))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderLedgerEntries(entries))
			return nil
		},
	}

	cmd.Flags().Bool("history", false, "show superseded entries too")
	cmd.Flags().Bool("pending", false, "show only assets that are not settled")

	return cmd
}

func ledgerStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize migration progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			offline, _ := cmd.Flags().GetBool("offline")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			entries, err := ledger.ReadEntries(cfg.LedgerPath)
			if err != nil {
				return err
			}

			records, withMedia := -1, 0
			if !offline {
				store, closeStore, err := openStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer closeStore()

				snapshot, err := catalog.LoadRecords(cmd.Context(), store)
				if err != nil {
					slog.Warn("Could not load content records; coverage omitted", "error", err)
				} else {
					records, withMedia = snapshot.Len(), snapshot.CountWithMedia()
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStatus(ledger.Summarize(entries), records, withMedia))
			return nil
		},
	}

	cmd.Flags().Bool("offline", false, "do not query the content store for coverage")
	cmd.Flags().String("store", "", "content store driver: http or sqlite (overrides store.driver)")

	return cmd
}

// latestInOrder keeps the authoritative entry of each asset, in the order
// the assets first appeared in the ledger.
func latestInOrder(entries []model.LedgerEntry, status ledger.Status) []model.LedgerEntry {
	seen := make(map[string]bool, len(status.Latest))
	out := make([]model.LedgerEntry, 0, len(status.Latest))
	for _, e := range entries {
		if e.Kind != model.EntryDecision || seen[e.AssetFileName] {
			continue
		}
		if latest, ok := status.Latest[e.AssetFileName]; ok {
			seen[e.AssetFileName] = true
			out = append(out, latest)
		}
	}
	return out
}
