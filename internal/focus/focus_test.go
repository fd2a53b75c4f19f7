package focus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/hypr"
)

type fakeDesktop struct {
	clients     []hypr.Client
	clientsErr  error
	active      hypr.ActiveWindow
	activeErr   error
	followFocus bool
	shown       []string

	focused []string
	toggled []string
}

func (f *fakeDesktop) Clients(context.Context) ([]hypr.Client, error) {
	return f.clients, f.clientsErr
}

func (f *fakeDesktop) ActiveWindow(context.Context) (hypr.ActiveWindow, error) {
	return f.active, f.activeErr
}

func (f *fakeDesktop) FocusWindow(_ context.Context, address string) error {
	f.focused = append(f.focused, address)
	if f.followFocus {
		f.active = hypr.ActiveWindow{Address: address}
	}
	return nil
}

func (f *fakeDesktop) ShownSpecialWorkspaces(context.Context) ([]string, error) {
	return f.shown, nil
}

func (f *fakeDesktop) ToggleSpecialWorkspace(_ context.Context, name string) error {
	f.toggled = append(f.toggled, name)
	return nil
}

type fakeProcs struct {
	byName     map[string][]int
	names      map[int]string
	responsive map[int]bool
	probeErr   error
}

func (f *fakeProcs) FindByName(name string) ([]int, error) {
	return f.byName[name], nil
}

func (f *fakeProcs) Name(pid int) (string, error) {
	name, ok := f.names[pid]
	if !ok {
		return "", errors.New("no such pid")
	}
	return name, nil
}

func (f *fakeProcs) Responsive(pid int) (bool, error) {
	if f.probeErr != nil {
		return false, f.probeErr
	}
	return f.responsive[pid], nil
}

func TestResolveTargetNotRunning(t *testing.T) {
	desktop := &fakeDesktop{}
	r := NewResolver(desktop, &fakeProcs{}, nil)

	_, err := r.Resolve(context.Background(), "devenv", 0, 50*time.Millisecond)
	require.Error(t, err)
	require.ErrorIs(t, err, failure.ErrTargetNotRunning)
	require.Empty(t, desktop.focused)
}

func TestResolveNoVisibleWindow(t *testing.T) {
	desktop := &fakeDesktop{clients: []hypr.Client{
		{Address: "0xaa", PID: 42, Mapped: false},
		{Address: "0xbb", PID: 42, Mapped: true, Hidden: true},
	}}
	r := NewResolver(desktop, &fakeProcs{byName: map[string][]int{"code": {42}}}, nil)

	_, err := r.Resolve(context.Background(), "code", 0, 50*time.Millisecond)
	require.ErrorIs(t, err, failure.ErrNoVisibleWindow)
	require.Empty(t, desktop.focused)
}

func TestResolvePicksLowestPidWithVisibleWindow(t *testing.T) {
	desktop := &fakeDesktop{
		followFocus: true,
		clients: []hypr.Client{
			{Address: "0xcc", PID: 30, Mapped: true, Class: "chrome"},
			{Address: "0xbb", PID: 20, Mapped: true, Class: "chrome", Title: "Inbox"},
		},
	}
	procs := &fakeProcs{byName: map[string][]int{"chrome": {10, 20, 30}}}
	r := NewResolver(desktop, procs, nil)

	w, err := r.Resolve(context.Background(), "chrome", 0, time.Second)
	require.NoError(t, err)
	require.Equal(t, Window{Address: "0xbb", PID: 20, Process: "chrome", Class: "chrome", Title: "Inbox"}, w)
	require.Equal(t, []string{"0xbb"}, desktop.focused)
}

func TestResolveRestoresMinimizedWindow(t *testing.T) {
	desktop := &fakeDesktop{
		followFocus: true,
		clients: []hypr.Client{{
			Address:   "0xdd",
			PID:       7,
			Mapped:    true,
			Workspace: hypr.Workspace{ID: -98, Name: "special:minimized"},
		}},
	}
	r := NewResolver(desktop, &fakeProcs{byName: map[string][]int{"slack": {7}}}, nil)

	_, err := r.Resolve(context.Background(), "slack", 0, time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{"minimized"}, desktop.toggled)
	require.Equal(t, []string{"0xdd"}, desktop.focused)
}

func TestResolveSkipsToggleWhenSpecialWorkspaceShown(t *testing.T) {
	desktop := &fakeDesktop{
		followFocus: true,
		shown:       []string{"special:minimized"},
		clients: []hypr.Client{{
			Address:   "0xdd",
			PID:       7,
			Mapped:    true,
			Workspace: hypr.Workspace{ID: -98, Name: "special:minimized"},
		}},
	}
	r := NewResolver(desktop, &fakeProcs{byName: map[string][]int{"slack": {7}}}, nil)

	_, err := r.Resolve(context.Background(), "slack", 0, time.Second)
	require.NoError(t, err)
	require.Empty(t, desktop.toggled)
	require.Equal(t, []string{"0xdd"}, desktop.focused)
}

func TestResolveFocusNotConfirmedOnTimeout(t *testing.T) {
	desktop := &fakeDesktop{
		active:  hypr.ActiveWindow{Address: "0xother"},
		clients: []hypr.Client{{Address: "0xee", PID: 9, Mapped: true}},
	}
	r := NewResolver(desktop, &fakeProcs{byName: map[string][]int{"obsidian": {9}}}, nil)

	start := time.Now()
	_, err := r.Resolve(context.Background(), "obsidian", 0, 80*time.Millisecond)
	require.ErrorIs(t, err, failure.ErrFocusNotConfirmed)
	require.Contains(t, err.Error(), "0xother")
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveFocusNotConfirmedOnCancel(t *testing.T) {
	desktop := &fakeDesktop{
		active:  hypr.ActiveWindow{Address: "0xother"},
		clients: []hypr.Client{{Address: "0xee", PID: 9, Mapped: true}},
	}
	r := NewResolver(desktop, &fakeProcs{byName: map[string][]int{"obsidian": {9}}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, "obsidian", 0, time.Second)
	require.ErrorIs(t, err, failure.ErrFocusNotConfirmed)
	require.ErrorIs(t, err, context.Canceled)
}

func TestActiveUsesProcessName(t *testing.T) {
	desktop := &fakeDesktop{active: hypr.ActiveWindow{Address: "0x1", PID: 5, Class: "org.gnome.TextEditor"}}
	r := NewResolver(desktop, &fakeProcs{names: map[int]string{5: "gnome-text-edit"}}, nil)

	w, err := r.Active(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gnome-text-edit", w.Process)

	desktop.active.PID = 6
	w, err = r.Active(context.Background())
	require.NoError(t, err)
	require.Equal(t, "org.gnome.TextEditor", w.Process)
}

func TestVerify(t *testing.T) {
	window := Window{Address: "0x1", PID: 5, Process: "code"}

	t.Run("healthy", func(t *testing.T) {
		desktop := &fakeDesktop{clients: []hypr.Client{{Address: "0x1", PID: 5, Mapped: true}}}
		r := NewResolver(desktop, &fakeProcs{responsive: map[int]bool{5: true}}, nil)
		require.NoError(t, r.Verify(context.Background(), window))
	})

	t.Run("window closed", func(t *testing.T) {
		r := NewResolver(&fakeDesktop{}, &fakeProcs{responsive: map[int]bool{5: true}}, nil)
		require.ErrorIs(t, r.Verify(context.Background(), window), failure.ErrTargetBecameUnresponsive)
	})

	t.Run("process stopped", func(t *testing.T) {
		desktop := &fakeDesktop{clients: []hypr.Client{{Address: "0x1", PID: 5, Mapped: true}}}
		r := NewResolver(desktop, &fakeProcs{responsive: map[int]bool{}}, nil)
		require.ErrorIs(t, r.Verify(context.Background(), window), failure.ErrTargetBecameUnresponsive)
	})

	t.Run("query failure is inconclusive", func(t *testing.T) {
		desktop := &fakeDesktop{clientsErr: errors.New("socket gone")}
		r := NewResolver(desktop, &fakeProcs{}, nil)
		err := r.Verify(context.Background(), window)
		require.ErrorIs(t, err, failure.ErrVerificationInconclusive)
		require.Equal(t, failure.KindVerificationInconclusive, failure.KindOf(err))
	})
}

func TestRunning(t *testing.T) {
	r := NewResolver(&fakeDesktop{}, &fakeProcs{byName: map[string][]int{"kitty": {3}}}, nil)

	ok, err := r.Running(context.Background(), "kitty")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.Running(context.Background(), "devenv")
	require.NoError(t, err)
	require.False(t, ok)
}
