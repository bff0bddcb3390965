package cli

import (
	"errors"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"velib_runs/internal/archive"
)

func newHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List scrapes stored in the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			if cfg.Archive == "" {
				return errors.New("no archive configured (use --archive or VELIB_ARCHIVE)")
			}

			store, err := archive.Open(cfg.Archive)
			if err != nil {
				return err
			}
			defer store.Close()

			scrapes, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Started", "Took", "Pages", "Runs", "Complete"})
			for _, sc := range scrapes {
				t.AppendRow(table.Row{
					sc.ID,
					sc.StartedAt.Local().Format("2006-01-02 15:04:05"),
					sc.FinishedAt.Sub(sc.StartedAt).Round(time.Second),
					sc.Pages,
					sc.Records,
					sc.Complete,
				})
			}
			t.Render()
			return nil
		},
	}
}
