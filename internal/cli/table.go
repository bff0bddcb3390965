package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"velib_runs/internal/archive"
	"velib_runs/internal/output"
	"velib_runs/internal/runs"
)

func newTableCommand() *cobra.Command {
	var scrapeID string

	cmd := &cobra.Command{
		Use:   "table [file]",
		Short: "Print an exported CSV, or an archived scrape, as a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig(cmd)

			var records []runs.Record
			if scrapeID != "" {
				if cfg.Archive == "" {
					return errors.New("--scrape needs --archive")
				}
				id, err := uuid.Parse(scrapeID)
				if err != nil {
					return fmt.Errorf("invalid scrape id: %w", err)
				}
				store, err := archive.Open(cfg.Archive)
				if err != nil {
					return err
				}
				defer store.Close()

				sc, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				records = sc.Records
			} else {
				path := cfg.Output
				if len(args) == 1 {
					path = args[0]
				}
				var err error
				if records, err = output.ReadCSV(path); err != nil {
					return err
				}
			}

			output.RenderTable(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&scrapeID, "scrape", "", "archived scrape id (see history)")
	return cmd
}
