// Package config resolves, parses, validates, and defaults caret configuration.
package config

// Config is the fully materialized runtime configuration used by caret.
type Config struct {
	Inject     InjectConfig
	Paste      PasteConfig
	Clipboard  ClipboardConfig
	Keyboard   CommandConfig
	Profiles   ProfilesConfig
	Validation ValidationConfig
	History    HistoryConfig
	DBus       DBusConfig
	Indicator  IndicatorConfig
}

// InjectConfig holds the request defaults applied when a caller does not override them.
type InjectConfig struct {
	RetryCount             int
	CharDelayMS            int
	LinePauseMS            int
	RetryDelayMS           int
	FocusTimeoutMS         int
	FocusSettleMS          int
	PasteSettleMS          int
	AllowClipboardFallback bool
	RestoreClipboard       bool
	StrictVerification     bool
	Method                 string
	DeadlineMS             int
}

// PasteConfig controls the paste keystroke sent for clipboard emission.
type PasteConfig struct {
	Shortcut string
}

// ClipboardConfig selects the clipboard backend and its commands.
type ClipboardConfig struct {
	Backend string
	Write   CommandConfig
	Read    CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// ProfilesConfig points at an optional compatibility-profile override file.
type ProfilesConfig struct {
	File  string
	Watch bool
}

// ValidationConfig controls the cross-application validation harness.
type ValidationConfig struct {
	AppDelayMS         int
	PassThreshold      float64
	StrictVerification bool
	ReportDir          string
	Apps               []string
}

// HistoryConfig controls the SQLite validation archive.
type HistoryConfig struct {
	Enable bool
	Path   string
}

// DBusConfig controls the session-bus export used by `caret serve`.
type DBusConfig struct {
	Enable bool
}

// IndicatorConfig controls notifications and audio cues for injection outcomes.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	NotifySuccess     bool
	ErrorTimeoutMS    int
	SuccessTimeoutMS  int
	DesktopAppName    string
	SoundEnable       bool
	SoundCompleteFile string
	SoundCancelFile   string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	ClipboardBackendCommand = "command"
	ClipboardBackendSystem  = "system"

	IndicatorBackendHyprland = "hyprland"
	IndicatorBackendDesktop  = "desktop"
)
