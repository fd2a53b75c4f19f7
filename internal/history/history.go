// Package history archives validation runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/caret/internal/validation"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for validation history.
type Store struct {
	db *sql.DB
}

// Run summarizes one archived validation run.
type Run struct {
	RunID              string
	StartedAt          time.Time
	FinishedAt         time.Time
	SuccessRate        float64
	CompatibilityScore float64
	Exercised          int
	Skipped            int
}

// ApplicationRun is one application's result within an archived run.
type ApplicationRun struct {
	RunID            string
	StartedAt        time.Time
	Process          string
	DisplayName      string
	Exercised        bool
	Success          bool
	SuccessRate      float64
	AverageLatencyMS float64
	Reason           string
}

// Open opens or creates the database at path and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			pass_threshold REAL NOT NULL,
			success_rate REAL NOT NULL,
			compatibility_score REAL NOT NULL,
			exercised INTEGER NOT NULL,
			skipped INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS app_results (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			process TEXT NOT NULL,
			display_name TEXT NOT NULL,
			weight REAL NOT NULL,
			exercised INTEGER NOT NULL,
			success INTEGER NOT NULL,
			success_rate REAL NOT NULL,
			average_latency_ms REAL NOT NULL,
			kind TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (run_id, process)
		);`,
		`CREATE TABLE IF NOT EXISTS scenario_results (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			process TEXT NOT NULL,
			scenario TEXT NOT NULL,
			success INTEGER NOT NULL,
			method TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			duration_ms REAL NOT NULL,
			kind TEXT NOT NULL,
			reason TEXT NOT NULL,
			PRIMARY KEY (run_id, process, scenario)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_app_results_process ON app_results(process);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveReport stores a report and all of its application and scenario results.
func (s *Store) SaveReport(ctx context.Context, r validation.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, pass_threshold, success_rate, compatibility_score, exercised, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
		r.PassThreshold,
		r.SuccessRate,
		r.CompatibilityScore,
		r.Exercised,
		r.Skipped,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, app := range r.Applications {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO app_results (run_id, process, display_name, weight, exercised, success, success_rate, average_latency_ms, kind, reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, app.Process, app.DisplayName, app.Weight, app.Exercised, app.Success,
			app.SuccessRate, app.AverageLatencyMS, string(app.Kind), app.Reason,
		); err != nil {
			return fmt.Errorf("insert application %s: %w", app.Process, err)
		}
		for _, sc := range app.Scenarios {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO scenario_results (run_id, process, scenario, success, method, attempts, duration_ms, kind, reason)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.RunID, app.Process, sc.Scenario, sc.Success, string(sc.Method),
				sc.Attempts, sc.DurationMS, string(sc.Kind), sc.Reason,
			); err != nil {
				return fmt.Errorf("insert scenario %s/%s: %w", app.Process, sc.Scenario, err)
			}
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, success_rate, compatibility_score, exercised, skipped
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.RunID, &started, &finished, &run.SuccessRate, &run.CompatibilityScore, &run.Exercised, &run.Skipped); err != nil {
			return nil, err
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ApplicationHistory returns one application's results across recent runs, newest first.
func (s *Store) ApplicationHistory(ctx context.Context, process string, limit int) ([]ApplicationRun, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.run_id, r.started_at, a.process, a.display_name, a.exercised, a.success,
		        a.success_rate, a.average_latency_ms, a.reason
		 FROM app_results a JOIN runs r ON r.run_id = a.run_id
		 WHERE a.process = ?
		 ORDER BY r.started_at DESC LIMIT ?`, process, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ApplicationRun
	for rows.Next() {
		var (
			app     ApplicationRun
			started string
		)
		if err := rows.Scan(&app.RunID, &started, &app.Process, &app.DisplayName, &app.Exercised, &app.Success,
			&app.SuccessRate, &app.AverageLatencyMS, &app.Reason); err != nil {
			return nil, err
		}
		if app.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

// ScenarioFailures counts failed scenarios per scenario name across all archived runs of process.
func (s *Store) ScenarioFailures(ctx context.Context, process string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scenario, COUNT(*) FROM scenario_results
		 WHERE process = ? AND success = 0 GROUP BY scenario`, process)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

var ErrNoRuns = errors.New("no validation runs recorded")

// Latest returns the newest run or ErrNoRuns.
func (s *Store) Latest(ctx context.Context) (Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}
