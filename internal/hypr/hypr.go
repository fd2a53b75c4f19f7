// Package hypr wraps the hyprctl commands caret needs for focus, verification, and paste.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CLI talks to the running compositor through the hyprctl binary on PATH.
type CLI struct{}

func (CLI) Clients(ctx context.Context) ([]Client, error) {
	return QueryClients(ctx)
}

func (CLI) ActiveWindow(ctx context.Context) (ActiveWindow, error) {
	return QueryActiveWindow(ctx)
}

func (CLI) FocusWindow(ctx context.Context, address string) error {
	return FocusWindow(ctx, address)
}

func (CLI) ShownSpecialWorkspaces(ctx context.Context) ([]string, error) {
	return ShownSpecialWorkspaces(ctx)
}

func (CLI) ToggleSpecialWorkspace(ctx context.Context, name string) error {
	return ToggleSpecialWorkspace(ctx, name)
}

func (CLI) SendShortcut(ctx context.Context, shortcut string) error {
	return SendShortcut(ctx, shortcut)
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
