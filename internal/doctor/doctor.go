// Package doctor runs readiness diagnostics for the Wayland session, input tools, and caret files.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/caret/internal/config"
	"github.com/rbright/caret/internal/hypr"
	"github.com/rbright/caret/internal/ipc"
	"github.com/rbright/caret/internal/profile"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment, tool, and file checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))

	hyprctl := checkBinary("hyprctl", "window queries and focus dispatch")
	checks = append(checks, hyprctl)
	if hyprctl.Pass {
		checks = append(checks, checkActiveWindow(ctx))
	}

	checks = append(checks, checkCommand(cfg.Config.Keyboard.Argv, "keyboard_cmd"))
	checks = append(checks, checkClipboard(cfg.Config.Clipboard)...)
	checks = append(checks, checkProfiles(cfg.Config.Profiles.File))
	checks = append(checks, checkSocket(ctx))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkActiveWindow asks the compositor for the focused window.
func checkActiveWindow(ctx context.Context) Check {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	active, err := hypr.QueryActiveWindow(queryCtx)
	if err != nil {
		return Check{Name: "hyprland.activewindow", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "hyprland.activewindow",
		Pass:    true,
		Message: fmt.Sprintf("%s (class=%q pid=%d)", active.Address, active.Class, active.PID),
	}
}

func checkClipboard(cfg config.ClipboardConfig) []Check {
	if cfg.Backend == config.ClipboardBackendSystem {
		if clipboard.Unsupported {
			return []Check{{Name: "clipboard.system", Pass: false, Message: "no supported clipboard utility found"}}
		}
		return []Check{{Name: "clipboard.system", Pass: true, Message: "system clipboard utility available"}}
	}

	checks := []Check{checkCommand(cfg.Write.Argv, "clipboard_cmd")}
	if len(cfg.Read.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Read.Argv, "clipboard_read_cmd"))
	}
	return checks
}

// checkProfiles parses the override file against the built-in table.
func checkProfiles(path string) Check {
	base := profile.Builtin()
	if strings.TrimSpace(path) == "" {
		return Check{Name: "profiles", Pass: true, Message: fmt.Sprintf("built-in table (%d applications)", base.Len())}
	}
	table, err := profile.LoadTable(base, path)
	if err != nil {
		return Check{Name: "profiles", Pass: false, Message: err.Error()}
	}
	return Check{Name: "profiles", Pass: true, Message: fmt.Sprintf("%s merged (%d applications)", path, table.Len())}
}

// checkSocket resolves the daemon socket and reports whether a daemon answers on it.
func checkSocket(ctx context.Context) Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "ipc.socket", Pass: false, Message: err.Error()}
	}
	alive, err := ipc.Probe(ctx, path, 200*time.Millisecond)
	if err != nil {
		return Check{Name: "ipc.socket", Pass: false, Message: err.Error()}
	}
	if alive {
		return Check{Name: "ipc.socket", Pass: true, Message: fmt.Sprintf("daemon serving on %s", path)}
	}
	return Check{Name: "ipc.socket", Pass: true, Message: fmt.Sprintf("no daemon; %s is free", path)}
}
