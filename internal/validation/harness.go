// Package validation drives the injection engine across an application and scenario
// matrix and scores the results.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/inject"
	"github.com/rbright/caret/internal/profile"
)

// Injector is the engine entry point the harness exercises.
type Injector interface {
	Inject(ctx context.Context, text string, opts inject.Options) inject.Outcome
}

// Prober reports whether an application process exists.
type Prober interface {
	Running(ctx context.Context, process string) (bool, error)
}

// Config tunes one harness run.
type Config struct {
	Options       inject.Options
	AppDelay      time.Duration
	PassThreshold float64
	// Apps restricts the matrix to these process names, in this order.
	Apps      []string
	Scenarios []Scenario
}

// Harness runs the validation matrix. It relies on the engine's session lock
// for serialization and holds no lock of its own.
type Harness struct {
	injector Injector
	prober   Prober
	profiles profile.Table
	config   Config
	logger   *slog.Logger
}

// NewHarness constructs a harness over a fixed profile table.
func NewHarness(injector Injector, prober Prober, profiles profile.Table, cfg Config, logger *slog.Logger) *Harness {
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = Scenarios()
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = 0.8
	}
	return &Harness{injector: injector, prober: prober, profiles: profiles, config: cfg, logger: logger}
}

// Applications lists the profiles the run will consider.
func (h *Harness) Applications() []profile.Profile {
	if len(h.config.Apps) == 0 {
		return h.profiles.Profiles()
	}
	apps := make([]profile.Profile, 0, len(h.config.Apps))
	for _, name := range h.config.Apps {
		apps = append(apps, h.profiles.Resolve(name))
	}
	return apps
}

// Run exercises every running application and returns the scored report.
// Applications that are not running are recorded and excluded from scoring.
func (h *Harness) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now(),
		PassThreshold: h.config.PassThreshold,
	}

	exercised := 0
	for _, app := range h.Applications() {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		result := ApplicationResult{
			DisplayName: app.DisplayName,
			Process:     app.Process,
			Weight:      app.Weight,
			Scenarios:   []ScenarioResult{},
		}

		running, err := h.prober.Running(ctx, app.Process)
		if err != nil {
			return Report{}, fmt.Errorf("probe %s: %w", app.Process, err)
		}
		if !running {
			result.Kind = failure.KindTargetNotRunning
			result.Reason = failure.Wrap(failure.KindTargetNotRunning, app.Process, nil).Error()
			report.Applications = append(report.Applications, result)
			h.log("application skipped", "app", app.Process, "kind", string(result.Kind))
			continue
		}

		if exercised > 0 {
			if err := sleep(ctx, h.config.AppDelay); err != nil {
				return Report{}, err
			}
		}
		exercised++
		result.Exercised = true

		for _, sc := range h.config.Scenarios {
			result.Scenarios = append(result.Scenarios, h.runScenario(ctx, app, sc))
		}
		summarizeApplication(&result, h.config.PassThreshold)
		report.Applications = append(report.Applications, result)
		if !result.Exercised {
			h.log("application skipped", "app", app.Process, "kind", string(result.Kind))
			continue
		}
		h.log("application validated",
			"app", app.Process,
			"success", result.Success,
			"success_rate", result.SuccessRate,
			"average_latency_ms", result.AverageLatencyMS,
		)
	}

	summarize(&report)
	report.FinishedAt = time.Now()
	return report, nil
}

// runScenario times resolve, inject, and verify together.
func (h *Harness) runScenario(ctx context.Context, app profile.Profile, sc Scenario) ScenarioResult {
	opts := h.config.Options
	opts.Target = app.Process

	start := time.Now()
	outcome := h.injector.Inject(ctx, sc.Text, opts)
	elapsed := time.Since(start)

	result := ScenarioResult{
		Scenario:   sc.Name,
		Text:       sc.Text,
		Success:    outcome.Success,
		Method:     outcome.Method,
		Attempts:   len(outcome.Attempts),
		DurationMS: float64(elapsed.Microseconds()) / 1000,
		Kind:       outcome.Kind,
	}
	if outcome.Err != nil {
		result.Reason = outcome.Err.Error()
	}
	if outcome.IsNotRunning() {
		h.log("application exited during run", "app", app.Process, "scenario", sc.Name)
	}
	return result
}

func (h *Harness) log(msg string, args ...any) {
	if h.logger == nil {
		return
	}
	h.logger.Info(msg, args...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
