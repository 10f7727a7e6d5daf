package main

import (
	"fmt"

	"github.com/Veraticus/mediamigrate/internal/catalog"
	"github.com/Veraticus/mediamigrate/internal/cli"
	"github.com/Veraticus/mediamigrate/internal/storage"
	"github.com/spf13/cobra"
)

func storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Work with the content store",
		Long: `Inspect the configured content store, or seed the local SQLite store used
to rehearse a migration before running it against the content API.`,
	}

	cmd.AddCommand(storeSeedCmd())
	cmd.AddCommand(storeRecordsCmd())

	return cmd
}

func storeSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <records.json>",
		Short: "Load content records into the local SQLite store",
		Example: `  # Seed from a content API export
  curl -H "Authorization: Bearer $STRAPI_TOKEN" "$STRAPI_URL/api/posts?pagination[pageSize]=1000" > posts.json
  mediamigrate store seed posts.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			records, err := catalog.LoadRecordsJSONFile(args[0])
			if err != nil {
				return err
			}

			store, err := storage.Open(cmd.Context(), cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveRecords(cmd.Context(), catalog.NewRecordCatalog(records).Records()); err != nil {
				return err
			}
			counts, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Seeded %d records into %s (%d records, %d with media, %d media files)",
				len(records), store.Path(), counts.Records, counts.WithMedia, counts.MediaFiles)))
			return nil
		},
	}
}

func storeRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List content records and whether they have media",
		RunE: func(cmd *cobra.Command, _ []string) error {
			withoutMedia, _ := cmd.Flags().GetBool("without-media")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			snapshot, err := catalog.LoadRecords(cmd.Context(), store)
			if err != nil {
				return err
			}

			records := snapshot.Records()
			if withoutMedia {
				records = snapshot.Eligible()
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRecords(records))
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("%d records, %d with media",
				snapshot.Len(), snapshot.CountWithMedia())))
			return nil
		},
	}

	cmd.Flags().Bool("without-media", false, "only records that still need media")
	cmd.Flags().String("store", "", "content store driver: http or sqlite (overrides store.driver)")

	return cmd
}
