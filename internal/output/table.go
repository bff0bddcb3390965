package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"velib_runs/internal/runs"
)

// RenderTable prints records as an aligned table followed by a count line.
func RenderTable(w io.Writer, records []runs.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})

	t.AppendHeader(table.Row{Header[0], Header[1], Header[2]})
	for _, r := range records {
		t.AppendRow(table.Row{r.Date, FormatDistance(r.Distance), r.Duration})
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d runs)\n", len(records))
}
