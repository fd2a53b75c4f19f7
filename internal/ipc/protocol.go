// Package ipc carries inject, status, and profiles requests between the caret
// CLI and a running `caret serve` daemon over a unix socket.
package ipc

// Commands understood by the daemon.
const (
	CommandStatus   = "status"
	CommandInject   = "inject"
	CommandProfiles = "profiles"
)

// Request is one newline-delimited JSON request.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
	Target  string `json:"target,omitempty"`
	Method  string `json:"method,omitempty"`
	Retries int    `json:"retries,omitempty"`
	Strict  bool   `json:"strict,omitempty"`
}

// Response is one newline-delimited JSON response.
type Response struct {
	OK         bool          `json:"ok"`
	State      string        `json:"state,omitempty"`
	Message    string        `json:"message,omitempty"`
	Error      string        `json:"error,omitempty"`
	Method     string        `json:"method,omitempty"`
	Kind       string        `json:"kind,omitempty"`
	Attempts   int           `json:"attempts,omitempty"`
	DurationMS int64         `json:"duration_ms,omitempty"`
	Profiles   []ProfileInfo `json:"profiles,omitempty"`
}

// ProfileInfo is the wire form of one compatibility profile.
type ProfileInfo struct {
	Process          string  `json:"process"`
	DisplayName      string  `json:"display_name"`
	Weight           float64 `json:"weight"`
	PreferClipboard  bool    `json:"prefer_clipboard,omitempty"`
	UseUnicodeFix    bool    `json:"use_unicode_fix,omitempty"`
	InterCharDelayMS int64   `json:"inter_char_delay_ms,omitempty"`
	LinePauseMS      int64   `json:"line_pause_ms,omitempty"`
	PasteShortcut    string  `json:"paste_shortcut,omitempty"`
}
