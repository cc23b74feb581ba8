package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sessionview/internal/classify"
	"sessionview/internal/query"
)

// StatsReport pairs declared-kind counts with derived-category counts.
type StatsReport struct {
	Stats      query.Stats          `json:"stats"`
	Categories query.CategoryCounts `json:"categories"`
}

// NewStatsReport builds a report from a loaded session.
func NewStatsReport(session *query.Session) StatsReport {
	return StatsReport{Stats: session.Stats(), Categories: session.CategoryCounts()}
}

// WriteStats writes a stats report to w in the requested format: table
// (default), plain or json.
func WriteStats(w io.Writer, report StatsReport, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeStatsTable(w, report)
	case "plain":
		return writeStatsPlain(w, report)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func statsRows(report StatsReport) [][2]any {
	s := report.Stats
	return [][2]any{
		{"total", s.Total},
		{"assistant", s.Assistant},
		{"system", s.System},
		{"tool", s.Tool},
		{"user", s.User},
	}
}

func writeStatsPlain(w io.Writer, report StatsReport) error {
	for _, row := range statsRows(report) {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", row[0], row[1]); err != nil {
			return err
		}
	}
	for _, c := range classify.Categories() {
		if _, err := fmt.Fprintf(w, "category.%s\t%d\n", c, report.Categories[c]); err != nil {
			return err
		}
	}
	return nil
}

func writeStatsTable(w io.Writer, report StatsReport) error {
	tw := newTable(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignCenter},
	})
	tw.AppendHeader(table.Row{"Kind", "Records"})
	for _, row := range statsRows(report) {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.AppendSeparator()
	for _, c := range classify.Categories() {
		tw.AppendRow(table.Row{"category: " + string(c), report.Categories[c]})
	}
	_ = tw.Render()
	return nil
}
