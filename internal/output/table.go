// Package output renders a finished scan for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bryanwahyu/automaton-recon/internal/domain/scans"
)

var headers = []string{"Category", "Value"}

// WriteTable renders every category value as a row, then the summary line.
func WriteTable(w io.Writer, scan *scans.Scan, noColor bool) {
	fmt.Fprintf(w, "\n%s  %s  %s\n", scan.Domain, scan.Status, scan.ID)

	if scan.Result == nil {
		fmt.Fprintln(w, "No result yet.")
		return
	}
	if scan.Result.IsError() {
		fmt.Fprintf(w, "Scan failed: %s\n", scan.Result.Error)
		return
	}

	var rows [][]string
	for _, cat := range scan.Result.Categories.Names() {
		for _, v := range scan.Result.Categories[cat] {
			rows = append(rows, []string{cat, truncate(v, 80)})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "Nothing discovered.")
		return
	}

	fmt.Fprintln(w)
	if noColor {
		writeSimpleTable(w, rows)
	} else {
		t := table.New().
			Headers(headers...).
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
				}
				if col == 0 {
					return lipgloss.NewStyle().Foreground(lipgloss.Color("109"))
				}
				return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
			})
		for _, row := range rows {
			t.Row(row...)
		}
		fmt.Fprintln(w, t.Render())
	}
	fmt.Fprintf(w, "\n%s\n", scan.Summary)
}

func writeSimpleTable(w io.Writer, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}

	printRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], c)
		}
		fmt.Fprintln(w)
	}

	printRow(headers)
	for i, width := range widths {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		printRow(row)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
