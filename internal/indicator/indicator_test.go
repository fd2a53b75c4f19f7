package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/caret/internal/config"
	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/inject"
	"github.com/rbright/caret/internal/profile"
)

type fakeDesktop struct {
	replaceIDs []uint32
	summaries  []string
	timeouts   []int
	nextID     uint32
	err        error
}

func (f *fakeDesktop) Notify(_ context.Context, appName string, replaceID uint32, summary string, _ string, timeoutMS int) (uint32, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.replaceIDs = append(f.replaceIDs, replaceID)
	f.summaries = append(f.summaries, appName+": "+summary)
	f.timeouts = append(f.timeouts, timeoutMS)
	f.nextID++
	return f.nextID, nil
}

type stubEngine struct {
	outcome inject.Outcome
	calls   int
}

func (s *stubEngine) Inject(context.Context, string, inject.Options) inject.Outcome {
	s.calls++
	return s.outcome
}

func (s *stubEngine) Profiles() profile.Table { return profile.Builtin() }

func TestHyprlandBackendNotifiesFailuresAndOptionalSuccess(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	ind := New(cfg, nil)

	ind.Outcome(context.Background(), inject.Outcome{Target: "chrome", Success: true, Method: inject.MethodDirect})
	ind.Outcome(context.Background(), inject.Outcome{Target: "chrome", Kind: failure.KindFocusNotConfirmed})

	cfg.NotifySuccess = true
	ind = New(cfg, nil)
	ind.Outcome(context.Background(), inject.Outcome{Target: "kitty", Success: true, Method: inject.MethodClipboard})

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, []string{
		"--quiet dispatch notify 3 2500 rgb(f38ba8) Could not type into chrome (focus not confirmed)",
		"--quiet dispatch notify 5 1000 rgb(a6e3a1) Typed into kitty via clipboard",
	}, lines)
}

func TestDisabledIndicatorSkipsDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installHyprctlStub(t, `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	ind := New(config.Default().Indicator, nil)
	ind.Outcome(context.Background(), inject.Outcome{Kind: failure.KindEmissionRejected})

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestDesktopBackendReplacesPreviousNotification(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.Backend = config.IndicatorBackendDesktop
	cfg.ErrorTimeoutMS = 0

	desktop := &fakeDesktop{}
	ind := New(cfg, nil)
	ind.desktop = desktop

	ind.Outcome(context.Background(), inject.Outcome{Target: "slack", Kind: failure.KindNoVisibleWindow})
	ind.Outcome(context.Background(), inject.Outcome{Target: "slack", Kind: failure.KindRetryBudgetExhausted})

	require.Equal(t, []uint32{0, 1}, desktop.replaceIDs)
	require.Equal(t, []int{2500, 2500}, desktop.timeouts)
	require.Equal(t, "caret: Could not type into slack (no visible window)", desktop.summaries[0])
}

func TestDesktopFailureKeepsPreviousID(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.Backend = config.IndicatorBackendDesktop

	ind := New(cfg, nil)
	ind.desktop = &fakeDesktop{err: errors.New("no notification daemon")}
	ind.desktopNotificationID = 7

	ind.Outcome(context.Background(), inject.Outcome{Kind: failure.KindEmissionRejected})
	require.Equal(t, uint32(7), ind.desktopNotificationID)
}

func TestObservePassesOutcomeThroughAndNotifies(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.Backend = config.IndicatorBackendDesktop

	desktop := &fakeDesktop{}
	ind := New(cfg, nil)
	ind.desktop = desktop

	engine := &stubEngine{outcome: inject.Outcome{Target: "code", Kind: failure.KindTargetNotRunning}}
	observed := ind.Observe(engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := observed.Inject(ctx, "x", inject.Options{Target: "code"})
	require.Equal(t, failure.KindTargetNotRunning, outcome.Kind)
	require.Equal(t, 1, engine.calls)
	require.Len(t, desktop.summaries, 1)
	require.Equal(t, profile.Builtin().Len(), observed.Profiles().Len())
}

func installHyprctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "hyprctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
