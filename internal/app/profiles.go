package app

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rbright/caret/internal/history"
	"github.com/rbright/caret/internal/ipc"
)

func (r Runner) newProfilesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the compatibility profiles in effect",
		Long:  "Print the profile table. A running daemon is asked first so hot-reloaded changes are shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.open(g, "profiles")
			if err != nil {
				return err
			}
			defer env.close()

			if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
				resp, handled, err := ipc.Forward(cmd.Context(), socketPath, ipc.Request{Command: ipc.CommandProfiles}, 500*time.Millisecond)
				if handled {
					if err != nil {
						return failed(err)
					}
					renderProfiles(r.Stdout, resp.Profiles)
					return nil
				}
			}

			merged, err := loadProfiles(env.loaded.Config)
			if err != nil {
				return failed(err)
			}
			renderProfiles(r.Stdout, ipc.ProfileInfos(merged))
			return nil
		},
	}
}

func (r Runner) newHistoryCmd(g *globals) *cobra.Command {
	var (
		limit int
		app   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived validation runs",
		Long:  "List recent validation runs, or with --app one application's results across runs and its failing scenarios.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("--limit must be > 0")
			}
			env, err := r.open(g, "history")
			if err != nil {
				return err
			}
			defer env.close()

			path, err := env.loaded.Config.HistoryPath()
			if err != nil {
				return failed(err)
			}
			store, err := history.Open(path)
			if err != nil {
				return failed(err)
			}
			defer store.Close()

			ctx := cmd.Context()
			if app == "" {
				runs, err := store.ListRuns(ctx, limit)
				if err != nil {
					return failed(err)
				}
				if len(runs) == 0 {
					fmt.Fprintln(r.Stdout, "no validation runs recorded")
					return nil
				}
				renderRuns(r.Stdout, runs)
				return nil
			}

			results, err := store.ApplicationHistory(ctx, app, limit)
			if err != nil {
				return failed(err)
			}
			if len(results) == 0 {
				fmt.Fprintf(r.Stdout, "no validation runs recorded for %s\n", app)
				return nil
			}
			failures, err := store.ScenarioFailures(ctx, app)
			if err != nil {
				return failed(err)
			}
			renderApplicationHistory(r.Stdout, results, failures)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	cmd.Flags().StringVar(&app, "app", "", "Show one application's trend by process name")
	return cmd
}

func newTable(w io.Writer, headers ...string) *table.Table {
	re := lipgloss.NewRenderer(w)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := re.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			return style
		})
}

func renderProfiles(w io.Writer, profiles []ipc.ProfileInfo) {
	t := newTable(w, "Process", "Application", "Weight", "Method", "Unicode fix", "Char delay", "Line pause", "Paste")
	for _, p := range profiles {
		method := "direct"
		if p.PreferClipboard {
			method = "clipboard"
		}
		paste := p.PasteShortcut
		if paste == "" {
			paste = "default"
		}
		t.Row(
			p.Process,
			p.DisplayName,
			strconv.FormatFloat(p.Weight, 'f', 1, 64),
			method,
			yesNo(p.UseUnicodeFix),
			millis(p.InterCharDelayMS),
			millis(p.LinePauseMS),
			paste,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderRuns(w io.Writer, runs []history.Run) {
	t := newTable(w, "Run", "Started", "Duration", "Score", "Success rate", "Exercised", "Not running")
	for _, run := range runs {
		t.Row(
			shortID(run.RunID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
			percent(run.CompatibilityScore),
			percent(run.SuccessRate),
			strconv.Itoa(run.Exercised),
			strconv.Itoa(run.Skipped),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderApplicationHistory(w io.Writer, results []history.ApplicationRun, failures map[string]int) {
	t := newTable(w, "Run", "Started", "Result", "Success rate", "Avg latency")
	for _, res := range results {
		status, rate, latency := "NOT RUNNING", "-", "-"
		if res.Exercised {
			status = "FAIL"
			if res.Success {
				status = "PASS"
			}
			rate = percent(res.SuccessRate)
			latency = fmt.Sprintf("%.0f ms", res.AverageLatencyMS)
		}
		t.Row(shortID(res.RunID), res.StartedAt.Local().Format("2006-01-02 15:04"), status, rate, latency)
	}
	fmt.Fprintf(w, "%s (%s)\n", results[0].DisplayName, results[0].Process)
	fmt.Fprintln(w, t.Render())

	if len(failures) == 0 {
		return
	}
	ft := newTable(w, "Scenario", "Failures")
	for _, name := range sortedKeys(failures) {
		ft.Row(name, strconv.Itoa(failures[name]))
	}
	fmt.Fprintln(w, ft.Render())
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func millis(v int64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%d ms", v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
