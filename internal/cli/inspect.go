package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/JonMunkholm/csvcard/internal/core"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	query     string
	limit     int
	output    string
	timeout   time.Duration
	maxBytes  int64
	userAgent string
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <file-or-url>...",
		Short: "Parse CSV artifacts the way the card does and print them",
		Long: `Inspect reads each argument from disk, or fetches it when it is an
http(s) URL, and prints the table the card would show.

The parser is intentionally simple: lines split on newlines and cells on
commas, with quote characters removed.`,
		Example: `  # Preview a local artifact
  csvcard inspect ./artifacts/r1/metrics.csv

  # Fetch a remote artifact and show matching rows as JSON
  csvcard inspect https://example.com/eval.csv --query loss -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "show only rows with a cell containing this text")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 50, "max rows to print (0 for all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "fetch timeout for URLs")
	cmd.Flags().Int64Var(&opts.maxBytes, "max-bytes", 32<<20, "max bytes to read per artifact")
	cmd.Flags().StringVar(&opts.userAgent, "ua", "csvcard-cli/1.0", "HTTP User-Agent for URLs")
	return cmd
}

func runInspect(ctx context.Context, w io.Writer, args []string, opts *inspectOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.output != "table" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	fetcher := core.NewFetcher(core.FetcherOptions{
		Timeout:   opts.timeout,
		MaxBytes:  opts.maxBytes,
		UserAgent: opts.userAgent,
	})

	for i, arg := range args {
		data, err := readArtifact(ctx, fetcher, arg, opts.maxBytes)
		if err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}

		parsed := core.ParseCSV(data)
		rows := core.FilterRows(parsed.Columns, parsed.Rows, opts.query)

		if opts.output == "json" {
			if err := renderJSON(w, arg, parsed.Columns, rows); err != nil {
				return err
			}
			continue
		}

		if i > 0 {
			fmt.Fprintln(w)
		}
		renderTable(w, arg, parsed, rows, opts.limit)
	}
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func readArtifact(ctx context.Context, f *core.Fetcher, arg string, maxBytes int64) ([]byte, error) {
	if isURL(arg) {
		return f.Remote(ctx, arg)
	}

	file, err := os.Open(strings.TrimPrefix(arg, "file://"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", core.ErrFileTooLarge, maxBytes)
	}
	return data, nil
}

func renderTable(w io.Writer, name string, parsed core.Table, rows []core.Row, limit int) {
	a := core.Artifact{Name: name, URI: name}
	kind := "local"
	if isURL(name) {
		kind = "remote"
	}
	csvNote := ""
	if !core.IsCSV(a) {
		csvNote = ", not listed by the card: no .csv extension"
	}
	fmt.Fprintf(w, "%s (%d rows, %d columns, %s%s)\n", name, len(parsed.Rows), len(parsed.Columns), kind, csvNote)

	if len(rows) == 0 {
		fmt.Fprintln(w, "No Data")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(parsed.Columns)+1)
	header[0] = "#"
	for i, col := range parsed.Columns {
		header[i+1] = col
	}
	t.AppendHeader(header)

	shown := rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, r := range shown {
		row := make(table.Row, len(parsed.Columns)+1)
		row[0] = r.Index
		for i, col := range parsed.Columns {
			row[i+1] = r.Get(col)
		}
		t.AppendRow(row)
	}
	if len(shown) < len(rows) {
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d more rows", len(rows)-len(shown))})
	}
	t.Render()
}

type inspectJSON struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Data    []core.Row `json:"data"`
}

func renderJSON(w io.Writer, name string, columns []string, rows []core.Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(inspectJSON{Name: name, Columns: columns, Data: rows})
}
