package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	in := cfg.Inject
	if in.RetryCount < 1 {
		return nil, fmt.Errorf("inject.retry_count must be >= 1")
	}
	durations := []struct {
		key   string
		value int
	}{
		{"inject.char_delay_ms", in.CharDelayMS},
		{"inject.line_pause_ms", in.LinePauseMS},
		{"inject.retry_delay_ms", in.RetryDelayMS},
		{"inject.focus_settle_ms", in.FocusSettleMS},
		{"inject.paste_settle_ms", in.PasteSettleMS},
		{"inject.deadline_ms", in.DeadlineMS},
		{"validation.app_delay_ms", cfg.Validation.AppDelayMS},
		{"indicator.error_timeout_ms", cfg.Indicator.ErrorTimeoutMS},
		{"indicator.success_timeout_ms", cfg.Indicator.SuccessTimeoutMS},
	}
	for _, d := range durations {
		if d.value < 0 {
			return nil, fmt.Errorf("%s must be >= 0", d.key)
		}
	}
	if in.FocusTimeoutMS <= 0 {
		return nil, fmt.Errorf("inject.focus_timeout_ms must be > 0")
	}

	switch in.Method {
	case "", "direct", "clipboard":
	default:
		return nil, fmt.Errorf("inject.method must be one of: direct, clipboard (or empty)")
	}

	if in.RetryCount == 1 && in.AllowClipboardFallback && in.Method == "" {
		warnings = append(warnings, Warning{Message: "inject.retry_count=1 leaves no attempt for clipboard fallback"})
	}
	if in.DeadlineMS > 0 && in.FocusTimeoutMS > in.DeadlineMS {
		warnings = append(warnings, Warning{Message: "inject.focus_timeout_ms exceeds inject.deadline_ms; focus waits will be cut short"})
	}

	if strings.TrimSpace(cfg.Paste.Shortcut) == "" {
		return nil, fmt.Errorf("paste.shortcut must not be empty")
	}

	switch cfg.Clipboard.Backend {
	case ClipboardBackendCommand:
		if len(cfg.Clipboard.Write.Argv) == 0 {
			return nil, fmt.Errorf("clipboard_cmd must not be empty when clipboard.backend=command")
		}
		if len(cfg.Clipboard.Read.Argv) == 0 && in.RestoreClipboard {
			warnings = append(warnings, Warning{Message: "clipboard_read_cmd is empty; clipboard contents will not be restored"})
		}
	case ClipboardBackendSystem:
	default:
		return nil, fmt.Errorf("clipboard.backend must be one of: command, system")
	}

	if len(cfg.Keyboard.Argv) == 0 {
		return nil, fmt.Errorf("keyboard_cmd must not be empty")
	}

	if cfg.Validation.PassThreshold <= 0 || cfg.Validation.PassThreshold > 1 {
		return nil, fmt.Errorf("validation.pass_threshold must be in (0, 1]")
	}

	switch cfg.Indicator.Backend {
	case IndicatorBackendHyprland, IndicatorBackendDesktop:
	default:
		return nil, fmt.Errorf("indicator.backend must be one of: hyprland, desktop")
	}
	if cfg.Indicator.NotifySuccess && !cfg.Indicator.Enable {
		warnings = append(warnings, Warning{Message: "indicator.notify_success has no effect while indicator.enable=false"})
	}

	if cfg.Profiles.Watch && strings.TrimSpace(cfg.Profiles.File) == "" {
		warnings = append(warnings, Warning{Message: "profiles.watch has no effect without profiles.file"})
	}

	return warnings, nil
}
