package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/moviegraph-crawler/internal/app"
	"github.com/JakeFAU/moviegraph-crawler/internal/checkpoint"
	"github.com/JakeFAU/moviegraph-crawler/internal/graph"
)

func newStatusCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize a checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), s, s.cfg, func(a crawlApp) error {
				cp, err := a.Inspect(cmd.Context(), location)
				if err != nil {
					return err
				}
				return printCheckpoint(cmd.OutOrStdout(), cp)
			})
		},
	}
	cmd.Flags().StringVar(&location, "checkpoint", "",
		"checkpoint location: path, file://, gs://bucket/object or redis://host/key")
	return cmd
}

func printCheckpoint(w io.Writer, cp checkpoint.Checkpoint) error {
	st := cp.State
	_, err := fmt.Fprintf(w, "crawl %s  seed %s\nsaved %s  steps %d  next turn %s  sink %s\n%s\n",
		cp.Meta.CrawlID, cp.Meta.SeedURL,
		cp.CreatedAt.Format(time.RFC3339), st.Steps, st.Turn, cp.Meta.SinkDriver,
		renderTable(
			[]string{"Kind", "Discovered", "Finished", "Pending"},
			[][]string{
				kindRow("movies", st.Movies),
				kindRow("people", st.People),
				{"professions", strconv.Itoa(len(st.Professions)), "", ""},
			},
		))
	if err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

func printResult(w io.Writer, res app.Result) error {
	outcome := "finished"
	if res.Paused {
		outcome = "paused"
	}
	stats := res.Stats
	_, err := fmt.Fprintf(w, "crawl %s %s after %d steps (checkpoint %s)\n%s\n",
		res.CrawlID, outcome, stats.Steps, res.Checkpoint,
		renderTable(
			[]string{"Kind", "Discovered", "Finished", "Pending"},
			[][]string{
				statsRow("movies", stats, graph.KindMovie),
				statsRow("people", stats, graph.KindPerson),
			},
		))
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func kindRow(label string, ks graph.KindState) []string {
	return []string{
		label,
		strconv.Itoa(len(ks.Registry)),
		strconv.Itoa(ks.Finished),
		strconv.Itoa(len(ks.Queue)),
	}
}

func statsRow(label string, stats graph.Stats, kind graph.Kind) []string {
	return []string{
		label,
		strconv.Itoa(stats.Discovered[kind]),
		strconv.Itoa(stats.Finished[kind]),
		strconv.Itoa(stats.Pending[kind]),
	}
}

// renderTable draws a rounded table with numeric columns right aligned.
func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := 1; i < len(headers); i++ {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
