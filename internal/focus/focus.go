// Package focus locates a target application's window, raises it, and confirms input focus.
package focus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/hypr"
)

const defaultPollInterval = 20 * time.Millisecond

// Window identifies the window an injection targets.
type Window struct {
	Address string
	PID     int
	Process string
	Class   string
	Title   string
}

// Desktop is the compositor surface the resolver drives.
type Desktop interface {
	Clients(context.Context) ([]hypr.Client, error)
	ActiveWindow(context.Context) (hypr.ActiveWindow, error)
	FocusWindow(ctx context.Context, address string) error
	ShownSpecialWorkspaces(context.Context) ([]string, error)
	ToggleSpecialWorkspace(ctx context.Context, name string) error
}

// Processes enumerates and probes OS processes.
type Processes interface {
	FindByName(name string) ([]int, error)
	Name(pid int) (string, error)
	Responsive(pid int) (bool, error)
}

// Resolver implements focus resolution against one desktop session.
// Callers serialize Resolve calls; it changes global focus state.
type Resolver struct {
	desktop Desktop
	procs   Processes
	logger  *slog.Logger
	poll    time.Duration
}

// NewResolver constructs a resolver.
func NewResolver(desktop Desktop, procs Processes, logger *slog.Logger) *Resolver {
	return &Resolver{desktop: desktop, procs: procs, logger: logger, poll: defaultPollInterval}
}

// Running reports whether any process named process exists.
func (r *Resolver) Running(_ context.Context, process string) (bool, error) {
	pids, err := r.procs.FindByName(process)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// Resolve focuses the first visible window of the named process and waits until
// the compositor reports it active, bounded by timeout.
func (r *Resolver) Resolve(ctx context.Context, process string, settle, timeout time.Duration) (Window, error) {
	process = strings.TrimSpace(process)
	pids, err := r.procs.FindByName(process)
	if err != nil {
		return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, process, fmt.Errorf("enumerate processes: %w", err))
	}
	if len(pids) == 0 {
		return Window{}, failure.Wrap(failure.KindTargetNotRunning, process, nil)
	}

	clients, err := r.desktop.Clients(ctx)
	if err != nil {
		return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, process, fmt.Errorf("list windows: %w", err))
	}

	client, ok := firstVisible(pids, clients)
	if !ok {
		return Window{}, failure.New(failure.KindNoVisibleWindow, process, "%d process(es) without a mapped window", len(pids))
	}
	window := Window{
		Address: client.Address,
		PID:     client.PID,
		Process: process,
		Class:   client.Class,
		Title:   client.Title,
	}

	if client.Minimized() {
		shown, err := r.desktop.ShownSpecialWorkspaces(ctx)
		if err != nil {
			return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, process, fmt.Errorf("list monitors: %w", err))
		}
		// Toggling a special workspace that is already shown would hide the target.
		if !slices.Contains(shown, client.Workspace.Name) {
			if err := r.desktop.ToggleSpecialWorkspace(ctx, client.SpecialWorkspace()); err != nil {
				return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, process, fmt.Errorf("restore window: %w", err))
			}
		}
	}
	if err := r.desktop.FocusWindow(ctx, client.Address); err != nil {
		return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, process, fmt.Errorf("activate window: %w", err))
	}

	if err := sleep(ctx, settle); err != nil {
		return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, process, err)
	}
	if err := r.confirm(ctx, window, timeout); err != nil {
		return Window{}, err
	}

	if r.logger != nil {
		r.logger.Debug("focus confirmed", "target", process, "address", window.Address, "pid", window.PID)
	}
	return window, nil
}

// Active describes the currently focused window without changing focus.
func (r *Resolver) Active(ctx context.Context) (Window, error) {
	active, err := r.desktop.ActiveWindow(ctx)
	if err != nil {
		return Window{}, failure.Wrap(failure.KindFocusNotConfirmed, "", fmt.Errorf("query active window: %w", err))
	}

	window := Window{
		Address: active.Address,
		PID:     active.PID,
		Class:   active.Class,
		Title:   active.Title,
		Process: active.Class,
	}
	if active.PID > 0 {
		if name, err := r.procs.Name(active.PID); err == nil && name != "" {
			window.Process = name
		}
	}
	return window, nil
}

// Verify is the best-effort post-emission check: the window must still exist and
// its process must still be scheduled. It does not inspect window content.
func (r *Resolver) Verify(ctx context.Context, window Window) error {
	clients, err := r.desktop.Clients(ctx)
	if err != nil {
		return failure.Wrap(failure.KindVerificationInconclusive, window.Process, fmt.Errorf("list windows: %w", err))
	}

	found := false
	for _, c := range clients {
		if c.Address == window.Address {
			found = true
			break
		}
	}
	if !found {
		return failure.New(failure.KindTargetBecameUnresponsive, window.Process, "window %s closed", window.Address)
	}

	if window.PID <= 0 {
		return nil
	}
	alive, err := r.procs.Responsive(window.PID)
	if err != nil {
		return failure.Wrap(failure.KindVerificationInconclusive, window.Process, fmt.Errorf("probe pid %d: %w", window.PID, err))
	}
	if !alive {
		return failure.New(failure.KindTargetBecameUnresponsive, window.Process, "pid %d is not running", window.PID)
	}
	return nil
}

// confirm polls the active window until it matches window or timeout elapses.
func (r *Resolver) confirm(ctx context.Context, window Window, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Second
	}
	confirmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lastSeen := ""
	for {
		active, err := r.desktop.ActiveWindow(confirmCtx)
		if err == nil {
			if active.Address == window.Address {
				return nil
			}
			lastSeen = active.Address
		}

		if err := sleep(confirmCtx, r.poll); err != nil {
			cause := err
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				cause = fmt.Errorf("active window %q after %s, want %q", lastSeen, timeout, window.Address)
			}
			return failure.Wrap(failure.KindFocusNotConfirmed, window.Process, cause)
		}
	}
}

// firstVisible picks the first mapped window belonging to the lowest matching pid.
// Window titles are not used to disambiguate between instances.
func firstVisible(pids []int, clients []hypr.Client) (hypr.Client, bool) {
	for _, pid := range pids {
		for _, c := range clients {
			if c.PID == pid && c.Visible() {
				return c, true
			}
		}
	}
	return hypr.Client{}, false
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
