package app

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbright/caret/internal/history"
	"github.com/rbright/caret/internal/validation"
)

func (r Runner) newValidateCmd(g *globals) *cobra.Command {
	var (
		apps    []string
		outDir  string
		lenient bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the injection scenarios against every running application",
		Long: "Type each validation scenario into every profiled application that is running, score the results, " +
			"archive the report, and record it in the history database. Exits 1 unless every exercised application passes.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.open(g, "validate")
			if err != nil {
				return err
			}
			defer env.close()

			cfg := env.loaded.Config
			st, err := newStack(cfg, env.logger)
			if err != nil {
				return failed(err)
			}

			opts := st.defaults
			opts.StrictVerification = cfg.Validation.StrictVerification && !lenient
			if len(apps) == 0 {
				apps = cfg.Validation.Apps
			}

			harness := validation.NewHarness(st.engine, st.resolver, st.engine.Profiles(), validation.Config{
				Options:       opts,
				AppDelay:      time.Duration(cfg.Validation.AppDelayMS) * time.Millisecond,
				PassThreshold: cfg.Validation.PassThreshold,
				Apps:          apps,
				Scenarios:     validation.Scenarios(),
			}, env.logger)

			report, err := harness.Run(cmd.Context())
			if err != nil {
				return failed(fmt.Errorf("validation run: %w", err))
			}

			if asJSON {
				err = validation.WriteJSON(r.Stdout, report)
			} else {
				err = validation.RenderText(r.Stdout, report)
			}
			if err != nil {
				return failed(err)
			}

			if outDir == "" {
				if outDir, err = cfg.ReportDir(); err != nil {
					return failed(err)
				}
			}
			textPath, jsonPath, err := validation.Archive(outDir, report)
			if err != nil {
				return failed(err)
			}
			fmt.Fprintf(r.Stderr, "report: %s\nreport: %s\n", textPath, jsonPath)

			if cfg.History.Enable {
				if err := recordRun(cmd, r.Stderr, cfg.HistoryPath, report); err != nil {
					fmt.Fprintf(r.Stderr, "warning: %v\n", err)
					env.logger.Warn("history save failed", "error", err.Error())
				}
			}

			return validationVerdict(report)
		},
	}

	cmd.Flags().StringSliceVar(&apps, "app", nil, "Restrict the run to these process names (repeatable)")
	cmd.Flags().StringVar(&outDir, "out", "", "Report directory (default: validation.report_dir)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "Count inconclusive verification as success")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the JSON report instead of the table")
	return cmd
}

func recordRun(cmd *cobra.Command, stderr io.Writer, resolve func() (string, error), report validation.Report) error {
	path, err := resolve()
	if err != nil {
		return fmt.Errorf("history path: %w", err)
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	previous, err := store.Latest(cmd.Context())
	switch {
	case errors.Is(err, history.ErrNoRuns):
	case err != nil:
		return err
	case previous.Exercised > 0 && report.Exercised > 0:
		fmt.Fprintf(stderr, "score: %s -> %s (previous run %s)\n",
			percent(previous.CompatibilityScore), percent(report.CompatibilityScore), shortID(previous.RunID))
	}
	return store.SaveReport(cmd.Context(), report)
}

// validationVerdict fails the command when nothing ran or any exercised application fell below threshold.
func validationVerdict(report validation.Report) error {
	if report.Exercised == 0 {
		return failed(errors.New("no profiled application is running"))
	}
	failedApps := 0
	for _, app := range report.Applications {
		if app.Exercised && !app.Success {
			failedApps++
		}
	}
	if failedApps > 0 {
		return failed(fmt.Errorf("%d of %d application(s) below pass threshold", failedApps, report.Exercised))
	}
	return nil
}
