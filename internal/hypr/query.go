package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// specialPrefix marks Hyprland's scratchpad workspaces, used as the minimized state.
const specialPrefix = "special:"

// ActiveWindow contains the fields needed for paste dispatch targeting.
type ActiveWindow struct {
	Address      string `json:"address"`
	Class        string `json:"class"`
	InitialClass string `json:"initialClass"`
	Title        string `json:"title"`
	PID          int    `json:"pid"`
}

// Workspace identifies the workspace a client lives on.
type Workspace struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client is one mapped or unmapped toplevel reported by `hyprctl clients`.
type Client struct {
	Address        string    `json:"address"`
	Mapped         bool      `json:"mapped"`
	Hidden         bool      `json:"hidden"`
	Workspace      Workspace `json:"workspace"`
	PID            int       `json:"pid"`
	Class          string    `json:"class"`
	Title          string    `json:"title"`
	FocusHistoryID int       `json:"focusHistoryID"`
}

// Visible reports whether the client can receive focus.
func (c Client) Visible() bool {
	return c.Mapped && !c.Hidden && strings.TrimSpace(c.Address) != ""
}

// Minimized reports whether the client is parked on a special workspace.
func (c Client) Minimized() bool {
	return strings.HasPrefix(c.Workspace.Name, specialPrefix)
}

// SpecialWorkspace returns the special workspace name without its prefix.
func (c Client) SpecialWorkspace() string {
	return strings.TrimPrefix(c.Workspace.Name, specialPrefix)
}

// Monitor is one output reported by `hyprctl monitors`.
// SpecialWorkspace is the special workspace currently shown on it, if any.
type Monitor struct {
	Name             string    `json:"name"`
	Focused          bool      `json:"focused"`
	SpecialWorkspace Workspace `json:"specialWorkspace"`
}

// QueryMonitors lists every active monitor.
func QueryMonitors(ctx context.Context) ([]Monitor, error) {
	output, err := runHyprctlJSON(ctx, "monitors")
	if err != nil {
		return nil, err
	}

	var monitors []Monitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return nil, fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	for i := range monitors {
		monitors[i].SpecialWorkspace.Name = strings.TrimSpace(monitors[i].SpecialWorkspace.Name)
	}
	return monitors, nil
}

// ShownSpecialWorkspaces returns the full names ("special:x") of special workspaces visible on any monitor.
func ShownSpecialWorkspaces(ctx context.Context) ([]string, error) {
	monitors, err := QueryMonitors(ctx)
	if err != nil {
		return nil, err
	}
	var shown []string
	for _, m := range monitors {
		if strings.HasPrefix(m.SpecialWorkspace.Name, specialPrefix) {
			shown = append(shown, m.SpecialWorkspace.Name)
		}
	}
	return shown, nil
}

// QueryActiveWindow fetches and validates the active-window contract from hyprctl.
func QueryActiveWindow(ctx context.Context) (ActiveWindow, error) {
	output, err := runHyprctlJSON(ctx, "activewindow")
	if err != nil {
		return ActiveWindow{}, err
	}

	var window ActiveWindow
	if err := json.Unmarshal(output, &window); err != nil {
		return ActiveWindow{}, fmt.Errorf("decode hyprctl activewindow json: %w", err)
	}
	window.Address = strings.TrimSpace(window.Address)
	window.Class = strings.TrimSpace(window.Class)
	window.InitialClass = strings.TrimSpace(window.InitialClass)
	window.Title = strings.TrimSpace(window.Title)
	if window.Address == "" {
		return ActiveWindow{}, fmt.Errorf("hyprctl activewindow returned empty address")
	}
	return window, nil
}

// QueryClients lists every toplevel known to the compositor.
func QueryClients(ctx context.Context) ([]Client, error) {
	output, err := runHyprctlJSON(ctx, "clients")
	if err != nil {
		return nil, err
	}

	var clients []Client
	if err := json.Unmarshal(output, &clients); err != nil {
		return nil, fmt.Errorf("decode hyprctl clients json: %w", err)
	}
	for i := range clients {
		clients[i].Address = strings.TrimSpace(clients[i].Address)
		clients[i].Class = strings.TrimSpace(clients[i].Class)
		clients[i].Workspace.Name = strings.TrimSpace(clients[i].Workspace.Name)
	}
	return clients, nil
}

// FocusWindow asks the compositor to activate the window at address.
func FocusWindow(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("focuswindow requires a window address")
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "focuswindow", "address:"+address)
}

// ToggleSpecialWorkspace shows or hides the named special workspace.
func ToggleSpecialWorkspace(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("togglespecialworkspace requires a workspace name")
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "togglespecialworkspace", name)
}

// SendShortcut sends a literal hyprctl sendshortcut payload.
func SendShortcut(ctx context.Context, shortcut string) error {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return fmt.Errorf("sendshortcut requires a non-empty payload")
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "sendshortcut", shortcut)
}

// Notify shows a compositor notification. icon follows hyprctl's numbering (0 warning, 3 error, 5 ok).
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return runHyprctl(ctx, "--quiet", "dispatch", "notify",
		strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
}

// runHyprctlJSON executes a JSON-returning hyprctl subcommand.
func runHyprctlJSON(ctx context.Context, target string) ([]byte, error) {
	output, err := runHyprctlOutput(ctx, "-j", target)
	if err != nil {
		return nil, err
	}
	return output, nil
}
