package validation

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
)

const textColumnWidth = 32

// RenderText writes the human-readable report. Colors are only emitted when w is a terminal.
func RenderText(w io.Writer, r Report) error {
	re := lipgloss.NewRenderer(w)
	title := re.NewStyle().Bold(true)
	dim := re.NewStyle().Faint(true)
	pass := re.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	fail := re.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	skip := re.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var b strings.Builder
	b.WriteString(title.Render("caret validation report"))
	b.WriteString("\n")
	b.WriteString(dim.Render(fmt.Sprintf("run %s  started %s  finished %s",
		r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.FinishedAt.Format("15:04:05"))))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Compatibility score: %s\n", percent(r.CompatibilityScore))
	fmt.Fprintf(&b, "Overall success rate: %s\n", percent(r.SuccessRate))
	fmt.Fprintf(&b, "Applications: %d exercised, %d not running (pass threshold %s)\n\n",
		r.Exercised, r.Skipped, percent(r.PassThreshold))

	summary := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Application", "Process", "Weight", "Result", "Success rate", "Avg latency")
	for _, app := range r.Applications {
		status, rate, latency := "NOT RUNNING", "-", "-"
		if app.Exercised {
			status = "FAIL"
			if app.Success {
				status = "PASS"
			}
			rate = percent(app.SuccessRate)
			latency = fmt.Sprintf("%.0f ms", app.AverageLatencyMS)
		}
		summary.Row(app.DisplayName, app.Process, fmt.Sprintf("%.1f", app.Weight), status, rate, latency)
	}
	summary.StyleFunc(func(row, col int) lipgloss.Style {
		style := re.NewStyle().Padding(0, 1)
		if row == table.HeaderRow {
			return style.Bold(true)
		}
		if col != 3 || row < 0 || row >= len(r.Applications) {
			return style
		}
		app := r.Applications[row]
		switch {
		case !app.Exercised:
			return style.Inherit(skip)
		case app.Success:
			return style.Inherit(pass)
		default:
			return style.Inherit(fail)
		}
	})
	b.WriteString(summary.Render())
	b.WriteString("\n")

	for _, app := range r.Applications {
		if !app.Exercised {
			continue
		}
		b.WriteString("\n")
		b.WriteString(title.Render(fmt.Sprintf("%s (%s)", app.DisplayName, app.Process)))
		b.WriteString("\n")

		detail := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Scenario", "Text", "Result", "Method", "Attempts", "Latency", "Reason")
		for _, sc := range app.Scenarios {
			status := "FAIL"
			if sc.Success {
				status = "PASS"
			}
			detail.Row(
				sc.Scenario,
				truncate(sc.Text, textColumnWidth),
				status,
				string(sc.Method),
				fmt.Sprintf("%d", sc.Attempts),
				fmt.Sprintf("%.0f ms", sc.DurationMS),
				truncate(sc.Reason, 48),
			)
		}
		scenarios := app.Scenarios
		detail.StyleFunc(func(row, col int) lipgloss.Style {
			style := re.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			if col != 2 || row < 0 || row >= len(scenarios) {
				return style
			}
			if scenarios[row].Success {
				return style.Inherit(pass)
			}
			return style.Inherit(fail)
		})
		b.WriteString(detail.Render())
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// truncate flattens control characters and cuts s to width terminal cells.
func truncate(s string, width int) string {
	s = strings.NewReplacer("\r\n", "⏎", "\n", "⏎", "\t", "⇥").Replace(s)
	return runewidth.Truncate(s, width, "…")
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
