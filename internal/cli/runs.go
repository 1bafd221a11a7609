package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/JonMunkholm/csvcard/internal/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs with their artifact counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func renderRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "(0 runs)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Artifacts", "CSV", "Created"})
	for _, r := range runs {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC().Format(time.DateTime)
		}
		t.AppendRow(table.Row{r.ID, r.Name, len(r.Artifacts), len(core.FilterCSV(r.Artifacts)), created})
	}
	t.Render()
	fmt.Fprintf(w, "(%d runs)\n", len(runs))
}
