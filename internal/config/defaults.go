package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboardWrite := "wl-copy"
	clipboardRead := "wl-paste --no-newline"
	keyboard := "wtype"

	return Config{
		Inject: InjectConfig{
			RetryCount:             2,
			CharDelayMS:            8,
			LinePauseMS:            0,
			RetryDelayMS:           150,
			FocusTimeoutMS:         800,
			FocusSettleMS:          60,
			PasteSettleMS:          120,
			AllowClipboardFallback: true,
			RestoreClipboard:       true,
			StrictVerification:     false,
			DeadlineMS:             5000,
		},
		Paste: PasteConfig{Shortcut: "CTRL,V"},
		Clipboard: ClipboardConfig{
			Backend: ClipboardBackendCommand,
			Write:   commandOf(clipboardWrite),
			Read:    commandOf(clipboardRead),
		},
		Keyboard: commandOf(keyboard),
		Validation: ValidationConfig{
			AppDelayMS:         1500,
			PassThreshold:      0.8,
			StrictVerification: true,
		},
		History: HistoryConfig{Enable: true},
		Indicator: IndicatorConfig{
			Enable:           false,
			Backend:          IndicatorBackendHyprland,
			ErrorTimeoutMS:   2500,
			SuccessTimeoutMS: 1000,
			DesktopAppName:   "caret",
		},
	}
}
