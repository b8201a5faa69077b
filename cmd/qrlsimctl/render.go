package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"qrlsim/internal/aggregate"
	"qrlsim/internal/stats"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// colorEnabled reports whether w is a terminal.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func renderTable(w io.Writer, headers []string, rows [][]string) string {
	color := colorEnabled(w)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if !color {
				return cellStyle
			}
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	if color {
		t = t.BorderStyle(borderStyle)
	}
	return t.String()
}

func renderSummary(w io.Writer, res aggregate.Result, unit string) string {
	summaryRows := stats.SummaryRows(res, unit)
	rows := make([][]string, 0, len(summaryRows))
	for _, row := range summaryRows {
		rows = append(rows, []string{row.Metric, row.Value})
	}
	return renderTable(w, []string{"Metric", "Value"}, rows)
}
