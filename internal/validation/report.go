package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/inject"
)

// ScenarioResult is one (application, scenario) outcome.
type ScenarioResult struct {
	Scenario   string        `json:"scenario"`
	Text       string        `json:"text"`
	Success    bool          `json:"success"`
	Method     inject.Method `json:"method"`
	Attempts   int           `json:"attempts"`
	DurationMS float64       `json:"duration_ms"`
	Kind       failure.Kind  `json:"kind,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// ApplicationResult aggregates one application's scenarios.
// Applications that were not running carry no scenarios and are excluded from scoring.
type ApplicationResult struct {
	DisplayName      string           `json:"display_name"`
	Process          string           `json:"process"`
	Weight           float64          `json:"weight"`
	Exercised        bool             `json:"exercised"`
	Success          bool             `json:"success"`
	SuccessRate      float64          `json:"success_rate"`
	AverageLatencyMS float64          `json:"average_latency_ms"`
	Kind             failure.Kind     `json:"kind,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Scenarios        []ScenarioResult `json:"scenarios"`
}

// Report is the serialized result of one validation run.
type Report struct {
	RunID              string              `json:"run_id"`
	StartedAt          time.Time           `json:"started_at"`
	FinishedAt         time.Time           `json:"finished_at"`
	PassThreshold      float64             `json:"pass_threshold"`
	SuccessRate        float64             `json:"success_rate"`
	CompatibilityScore float64             `json:"compatibility_score"`
	Exercised          int                 `json:"exercised"`
	Skipped            int                 `json:"skipped"`
	Applications       []ApplicationResult `json:"applications"`
}

// summarizeApplication scores the scenarios that reached a running target.
// An application whose process vanished for every scenario is reclassified as not running.
func summarizeApplication(app *ApplicationResult, threshold float64) {
	if len(app.Scenarios) == 0 {
		return
	}
	counted, passed := 0, 0
	var total float64
	for _, sc := range app.Scenarios {
		if sc.notRunning() {
			continue
		}
		counted++
		if sc.Success {
			passed++
		}
		total += sc.DurationMS
	}
	if counted == 0 {
		app.Exercised = false
		app.Success = false
		app.SuccessRate, app.AverageLatencyMS = 0, 0
		app.Kind = failure.KindTargetNotRunning
		app.Reason = failure.New(failure.KindTargetNotRunning, app.Process, "exited during the run").Error()
		return
	}
	app.SuccessRate = float64(passed) / float64(counted)
	app.AverageLatencyMS = total / float64(counted)
	app.Success = app.SuccessRate >= threshold
}

func (sc ScenarioResult) notRunning() bool {
	return !sc.Success && sc.Kind == failure.KindTargetNotRunning
}

// summarize fills the report-level aggregates from exercised applications only.
func summarize(r *Report) {
	var (
		passed, total     int
		weighted, weights float64
	)
	r.Exercised, r.Skipped = 0, 0
	for _, app := range r.Applications {
		if !app.Exercised {
			r.Skipped++
			continue
		}
		r.Exercised++
		for _, sc := range app.Scenarios {
			if sc.notRunning() {
				continue
			}
			total++
			if sc.Success {
				passed++
			}
		}
		weighted += app.Weight * app.SuccessRate
		weights += app.Weight
	}
	r.SuccessRate, r.CompatibilityScore = 0, 0
	if total > 0 {
		r.SuccessRate = float64(passed) / float64(total)
	}
	if weights > 0 {
		r.CompatibilityScore = weighted / weights
	}
}

// WriteJSON serializes the report with stable indentation.
func WriteJSON(w io.Writer, r Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Archive writes validation-<timestamp>.txt and .json into dir and returns both paths.
func Archive(dir string, r Report) (string, string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}
	stamp := r.StartedAt.UTC().Format("20060102-150405")
	base := filepath.Join(dir, "validation-"+stamp)

	textPath := base + ".txt"
	if err := writeFile(textPath, func(w io.Writer) error { return RenderText(w, r) }); err != nil {
		return "", "", err
	}
	jsonPath := base + ".json"
	if err := writeFile(jsonPath, func(w io.Writer) error { return WriteJSON(w, r) }); err != nil {
		return "", "", err
	}
	return textPath, jsonPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
