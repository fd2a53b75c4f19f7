package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/caret/internal/history"
	"github.com/rbright/caret/internal/ipc"
	"github.com/rbright/caret/internal/validation"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Contains(t, stdout.String(), "inject")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "caret")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestInjectUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing text", args: []string{"inject"}, wantErr: "requires at least 1 arg"},
		{name: "bad method", args: []string{"inject", "--method", "osc52", "hi"}, wantErr: "unknown injection method"},
		{name: "negative retries", args: []string{"inject", "--retries", "-1", "hi"}, wantErr: "--retries"},
		{name: "unknown flag", args: []string{"inject", "--bogus", "hi"}, wantErr: "unknown flag"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}

			exitCode := runner.Execute(context.Background(), tc.args)
			require.Equal(t, 2, exitCode)
			require.Contains(t, stderr.String(), tc.wantErr)
		})
	}
}

func TestInjectForwardsToDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 1)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "caret.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		return ipc.Response{OK: true, Method: "clipboard", Attempts: 2, DurationMS: 37}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{
		"--config", paths.configPath, "inject", "--target", "slack", "--method", "clipboard", "--retries", "3", "--strict", "Hello", "World", "123",
	})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "ok method=clipboard attempts=2 duration_ms=37\n", stdout.String())

	req := <-requests
	require.Equal(t, ipc.CommandInject, req.Command)
	require.Equal(t, "Hello World 123", req.Text)
	require.Equal(t, "slack", req.Target)
	require.Equal(t, "clipboard", req.Method)
	require.Equal(t, 3, req.Retries)
	require.True(t, req.Strict)
}

func TestInjectReadsStdin(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 1)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "caret.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		return ipc.Response{OK: true, Method: "direct", Attempts: 1}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	root := runner.newRootCmd()
	root.SetArgs([]string{"--config", paths.configPath, "inject", "-"})
	root.SetIn(strings.NewReader("Line 1\nLine 2\n"))
	require.NoError(t, root.ExecuteContext(context.Background()))

	req := <-requests
	require.Equal(t, "Line 1\nLine 2", req.Text)
}

func TestInjectForwardedFailureExitsOne(t *testing.T) {
	paths := setupRunnerEnv(t)
	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "caret.sock"), func(_ context.Context, _ ipc.Request) ipc.Response {
		return ipc.Response{
			OK:       false,
			Method:   "direct",
			Kind:     "target_not_running",
			Attempts: 1,
			Error:    "target not running (devenv)",
		}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "inject", "--target", "devenv", "x"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "kind=target_not_running")
	require.Contains(t, stderr.String(), "error: target not running (devenv)")
}

func TestInjectInProcessTypesIntoActiveWindow(t *testing.T) {
	paths := setupRunnerEnv(t)
	capture := filepath.Join(t.TempDir(), "keys.log")
	pid := os.Getpid()

	installStub(t, "hyprctl", fmt.Sprintf(`
if [ "$1" = "-j" ] && [ "$2" = "activewindow" ]; then
  echo '{"address":"0xabc","class":"kitty","title":"shell","pid":%d}'
  exit 0
fi
if [ "$1" = "-j" ] && [ "$2" = "clients" ]; then
  echo '[{"address":"0xabc","mapped":true,"hidden":false,"pid":%d,"class":"kitty","workspace":{"id":1,"name":"1"}}]'
  exit 0
fi
exit 1
`, pid, pid))
	installStub(t, "fake-wtype", `printf '%s\n' "$*" >> "`+capture+`"`)
	writeConfig(t, paths.configPath, `{
  // direct typing through the stub
  "keyboard_cmd": "fake-wtype",
  "inject": { "char_delay_ms": 0, "focus_settle_ms": 0, "retry_count": 1 },
}`)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "inject", "--method", "direct", "Hello\tWorld"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.True(t, strings.HasPrefix(stdout.String(), "ok method=direct attempts=1"), stdout.String())

	keys, err := os.ReadFile(capture)
	require.NoError(t, err)
	require.Equal(t, "-- Hello\n-k Tab\n-- World\n", string(keys))
}

func TestProfilesListsMergedTableWithoutDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	overrides := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(overrides, []byte("profiles:\n  - process: devenv\n    display_name: Visual Studio\n"), 0o600))
	writeConfig(t, paths.configPath, fmt.Sprintf(`{"profiles": {"file": %q}}`, overrides))

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "profiles"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "Google Chrome")
	require.Contains(t, stdout.String(), "CTRL SHIFT,V")
	require.Contains(t, stdout.String(), "Visual Studio")
}

func TestProfilesPrefersDaemonTable(t *testing.T) {
	paths := setupRunnerEnv(t)
	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "caret.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		require.Equal(t, ipc.CommandProfiles, req.Command)
		return ipc.Response{OK: true, Profiles: []ipc.ProfileInfo{{Process: "hot-reloaded", DisplayName: "Reloaded App", Weight: 2}}}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "profiles"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "Reloaded App")
	require.NotContains(t, stdout.String(), "Google Chrome")
}

func TestHistoryEmptyAndPopulated(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "history"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "no validation runs recorded")

	store, err := history.Open(filepath.Join(paths.stateDir, "caret", "history.db"))
	require.NoError(t, err)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveReport(context.Background(), validation.Report{
		RunID:              "feedface-0000-0000-0000-000000000000",
		StartedAt:          started,
		FinishedAt:         started.Add(12 * time.Second),
		PassThreshold:      0.8,
		SuccessRate:        0.8,
		CompatibilityScore: 0.8,
		Exercised:          1,
		Applications: []validation.ApplicationResult{{
			DisplayName: "Google Chrome",
			Process:     "chrome",
			Weight:      3,
			Exercised:   true,
			Success:     true,
			SuccessRate: 0.8,
			Scenarios: []validation.ScenarioResult{
				{Scenario: "plain_ascii", Success: true},
				{Scenario: "unicode", Success: false, Kind: "emission_rejected", Reason: "boom"},
			},
		}},
	}))
	require.NoError(t, store.Close())

	stdout.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "history"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "feedface")
	require.Contains(t, stdout.String(), "80.0%")

	stdout.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "history", "--app", "chrome"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "Google Chrome (chrome)")
	require.Contains(t, stdout.String(), "PASS")
	require.Contains(t, stdout.String(), "unicode")

	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "history", "--limit", "0"})
	require.Equal(t, 2, exitCode)
}

func TestValidateWithNoRunningApplicationsArchivesAndFails(t *testing.T) {
	paths := setupRunnerEnv(t)
	outDir := t.TempDir()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{
		"--config", paths.configPath, "validate", "--app", "caret-missing-app", "--out", outDir,
	})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "NOT RUNNING")
	require.Contains(t, stderr.String(), "no profiled application is running")

	reports, err := filepath.Glob(filepath.Join(outDir, "validation-*"))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	store, err := history.Open(filepath.Join(paths.stateDir, "caret", "history.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 1, runs[0].Skipped)
}

func TestServeAnswersStatusAndStops(t *testing.T) {
	paths := setupRunnerEnv(t)
	socketPath := filepath.Join(paths.runtimeDir, "caret.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	done := make(chan int, 1)
	go func() {
		done <- runner.Execute(ctx, []string{"--config", paths.configPath, "serve"})
	}()

	var resp ipc.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, 100*time.Millisecond)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	require.True(t, resp.OK)
	require.Equal(t, "ready", resp.State)

	resp, err := ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandInject}, time.Second)
	require.NoError(t, err)
	require.True(t, resp.OK, "empty text succeeds without touching the desktop")

	cancel()
	require.Equal(t, 0, <-done, stderr.String())
	require.Contains(t, stdout.String(), "serving on "+socketPath)
	_, statErr := os.Stat(socketPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestServeRefusesSecondDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "caret.sock"), func(_ context.Context, _ ipc.Request) ipc.Response {
		return ipc.Response{OK: true, State: "ready"}
	})
	defer shutdown()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "serve"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "already running")
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("XDG_SESSION_TYPE", "x11")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "[FAIL] XDG_SESSION_TYPE")
	require.Contains(t, stdout.String(), "ipc.socket")
}

func TestRunnerWritesLogFileWhenNoLoggerInjected(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}
	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "--log-level", "debug", "profiles"})
	require.Equal(t, 0, exitCode, stderr.String())

	contents, err := os.ReadFile(filepath.Join(paths.stateDir, "caret", "log.jsonl"))
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"command start"`)
	require.Contains(t, string(contents), `"command":"profiles"`)

	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "--log-level", "loud", "profiles"})
	require.Equal(t, 2, exitCode)
}

func TestRunnerReportsConfigWarningsAndErrors(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger()}
	exitCode := runner.Execute(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.jsonc"), "profiles"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stderr.String(), "warning: config file")

	writeConfig(t, paths.configPath, `{"inject": {"retry_count": "many"}}`)
	stderr.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "profiles"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "error: parse config")
}

type runnerPaths struct {
	configPath string
	runtimeDir string
	stateDir   string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte("{}\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir, stateDir: xdgStateHome}
}

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

func installStub(t *testing.T, name, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/usr/bin/env sh\n"+body+"\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler))
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
