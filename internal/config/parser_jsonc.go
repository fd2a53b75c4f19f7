package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Inject     *jsoncInject     `json:"inject"`
	Paste      *jsoncPaste      `json:"paste"`
	Clipboard  *jsoncClipboard  `json:"clipboard"`
	Profiles   *jsoncProfiles   `json:"profiles"`
	Validation *jsoncValidation `json:"validation"`
	History    *jsoncHistory    `json:"history"`
	DBus       *jsoncDBus       `json:"dbus"`
	Indicator  *jsoncIndicator  `json:"indicator"`

	ClipboardCmd     *string `json:"clipboard_cmd"`
	ClipboardReadCmd *string `json:"clipboard_read_cmd"`
	KeyboardCmd      *string `json:"keyboard_cmd"`
}

type jsoncInject struct {
	RetryCount             *int    `json:"retry_count"`
	CharDelayMS            *int    `json:"char_delay_ms"`
	LinePauseMS            *int    `json:"line_pause_ms"`
	RetryDelayMS           *int    `json:"retry_delay_ms"`
	FocusTimeoutMS         *int    `json:"focus_timeout_ms"`
	FocusSettleMS          *int    `json:"focus_settle_ms"`
	PasteSettleMS          *int    `json:"paste_settle_ms"`
	AllowClipboardFallback *bool   `json:"allow_clipboard_fallback"`
	RestoreClipboard       *bool   `json:"restore_clipboard"`
	StrictVerification     *bool   `json:"strict_verification"`
	Method                 *string `json:"method"`
	DeadlineMS             *int    `json:"deadline_ms"`
}

type jsoncPaste struct {
	Shortcut *string `json:"shortcut"`
}

type jsoncClipboard struct {
	Backend *string `json:"backend"`
}

type jsoncProfiles struct {
	File  *string `json:"file"`
	Watch *bool   `json:"watch"`
}

type jsoncValidation struct {
	AppDelayMS         *int             `json:"app_delay_ms"`
	PassThreshold      *float64         `json:"pass_threshold"`
	StrictVerification *bool            `json:"strict_verification"`
	ReportDir          *string          `json:"report_dir"`
	Apps               *jsoncStringList `json:"apps"`
}

type jsoncHistory struct {
	Enable *bool   `json:"enable"`
	Path   *string `json:"path"`
}

type jsoncDBus struct {
	Enable *bool `json:"enable"`
}

type jsoncIndicator struct {
	Enable           *bool   `json:"enable"`
	Backend          *string `json:"backend"`
	NotifySuccess    *bool   `json:"notify_success"`
	ErrorTimeoutMS   *int    `json:"error_timeout_ms"`
	SuccessTimeoutMS *int    `json:"success_timeout_ms"`
	DesktopAppName   *string `json:"desktop_app_name"`

	SoundEnable       *bool   `json:"sound_enable"`
	SoundCompleteFile *string `json:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if in := payload.Inject; in != nil {
		setInt(&cfg.Inject.RetryCount, in.RetryCount)
		setInt(&cfg.Inject.CharDelayMS, in.CharDelayMS)
		setInt(&cfg.Inject.LinePauseMS, in.LinePauseMS)
		setInt(&cfg.Inject.RetryDelayMS, in.RetryDelayMS)
		setInt(&cfg.Inject.FocusTimeoutMS, in.FocusTimeoutMS)
		setInt(&cfg.Inject.FocusSettleMS, in.FocusSettleMS)
		setInt(&cfg.Inject.PasteSettleMS, in.PasteSettleMS)
		setInt(&cfg.Inject.DeadlineMS, in.DeadlineMS)
		setBool(&cfg.Inject.AllowClipboardFallback, in.AllowClipboardFallback)
		setBool(&cfg.Inject.RestoreClipboard, in.RestoreClipboard)
		setBool(&cfg.Inject.StrictVerification, in.StrictVerification)
		if in.Method != nil {
			cfg.Inject.Method = strings.ToLower(strings.TrimSpace(*in.Method))
		}
	}

	if payload.Paste != nil && payload.Paste.Shortcut != nil {
		cfg.Paste.Shortcut = strings.TrimSpace(*payload.Paste.Shortcut)
	}

	if payload.Clipboard != nil && payload.Clipboard.Backend != nil {
		cfg.Clipboard.Backend = strings.ToLower(strings.TrimSpace(*payload.Clipboard.Backend))
	}

	if payload.Profiles != nil {
		if payload.Profiles.File != nil {
			cfg.Profiles.File = strings.TrimSpace(*payload.Profiles.File)
		}
		setBool(&cfg.Profiles.Watch, payload.Profiles.Watch)
	}

	if v := payload.Validation; v != nil {
		setInt(&cfg.Validation.AppDelayMS, v.AppDelayMS)
		if v.PassThreshold != nil {
			cfg.Validation.PassThreshold = *v.PassThreshold
		}
		setBool(&cfg.Validation.StrictVerification, v.StrictVerification)
		if v.ReportDir != nil {
			cfg.Validation.ReportDir = strings.TrimSpace(*v.ReportDir)
		}
		if v.Apps != nil {
			cfg.Validation.Apps = nil
			for _, name := range *v.Apps {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				cfg.Validation.Apps = append(cfg.Validation.Apps, name)
			}
		}
	}

	if payload.History != nil {
		setBool(&cfg.History.Enable, payload.History.Enable)
		if payload.History.Path != nil {
			cfg.History.Path = strings.TrimSpace(*payload.History.Path)
		}
	}

	if payload.DBus != nil {
		setBool(&cfg.DBus.Enable, payload.DBus.Enable)
	}

	if ind := payload.Indicator; ind != nil {
		setBool(&cfg.Indicator.Enable, ind.Enable)
		setBool(&cfg.Indicator.NotifySuccess, ind.NotifySuccess)
		setInt(&cfg.Indicator.ErrorTimeoutMS, ind.ErrorTimeoutMS)
		setInt(&cfg.Indicator.SuccessTimeoutMS, ind.SuccessTimeoutMS)
		if ind.Backend != nil {
			cfg.Indicator.Backend = strings.ToLower(strings.TrimSpace(*ind.Backend))
		}
		if ind.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*ind.DesktopAppName)
		}
		setBool(&cfg.Indicator.SoundEnable, ind.SoundEnable)
		if ind.SoundCompleteFile != nil {
			cfg.Indicator.SoundCompleteFile = strings.TrimSpace(*ind.SoundCompleteFile)
		}
		if ind.SoundCancelFile != nil {
			cfg.Indicator.SoundCancelFile = strings.TrimSpace(*ind.SoundCancelFile)
		}
	}

	commands := []struct {
		key    string
		raw    *string
		target *CommandConfig
	}{
		{key: "clipboard_cmd", raw: payload.ClipboardCmd, target: &cfg.Clipboard.Write},
		{key: "clipboard_read_cmd", raw: payload.ClipboardReadCmd, target: &cfg.Clipboard.Read},
		{key: "keyboard_cmd", raw: payload.KeyboardCmd, target: &cfg.Keyboard},
	}
	for _, command := range commands {
		if command.raw == nil {
			continue
		}
		argv, err := splitCommand(*command.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", command.key, err)
		}
		*command.target = CommandConfig{Raw: *command.raw, Argv: argv}
	}

	return warnings, nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
