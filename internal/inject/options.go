// Package inject places text at the caret of a foreign application window.
//
// The Engine is the single entry point. It serializes every request behind one
// session lock, resolves focus, selects an emission plan from the target's
// compatibility profile, emits, verifies, and retries with strategy escalation.
package inject

import (
	"fmt"
	"strings"
	"time"

	"github.com/rbright/caret/internal/config"
)

// Method is the emission mechanism actually used for an attempt.
type Method string

const (
	MethodDirect    Method = "direct"
	MethodClipboard Method = "clipboard"
)

// ParseMethod accepts "", "direct", or "clipboard".
func ParseMethod(raw string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case MethodDirect:
		return MethodDirect, nil
	case MethodClipboard:
		return MethodClipboard, nil
	default:
		return "", fmt.Errorf("unknown injection method %q (want direct or clipboard)", raw)
	}
}

// Options configures one request. Build it per request and do not mutate it afterwards.
type Options struct {
	// Target is a process name. Empty targets the window that currently has focus.
	Target string
	// RetryCount is the total attempt budget, including the first attempt.
	RetryCount int
	CharDelay  time.Duration
	LinePause  time.Duration
	RetryDelay time.Duration
	// AllowClipboardFallback lets a failed direct attempt escalate to clipboard paste.
	AllowClipboardFallback bool
	// Method pins the emission method and disables escalation when non-empty.
	Method Method

	FocusTimeout       time.Duration
	FocusSettle        time.Duration
	PasteSettle        time.Duration
	PasteShortcut      string
	RestoreClipboard   bool
	StrictVerification bool
	// Deadline bounds the whole request, retries included. Zero disables it.
	Deadline time.Duration
}

// OptionsFromConfig builds request defaults from runtime configuration.
func OptionsFromConfig(cfg config.Config) Options {
	in := cfg.Inject
	method, _ := ParseMethod(in.Method)
	return Options{
		RetryCount:             in.RetryCount,
		CharDelay:              ms(in.CharDelayMS),
		LinePause:              ms(in.LinePauseMS),
		RetryDelay:             ms(in.RetryDelayMS),
		AllowClipboardFallback: in.AllowClipboardFallback,
		Method:                 method,
		FocusTimeout:           ms(in.FocusTimeoutMS),
		FocusSettle:            ms(in.FocusSettleMS),
		PasteSettle:            ms(in.PasteSettleMS),
		PasteShortcut:          cfg.Paste.Shortcut,
		RestoreClipboard:       in.RestoreClipboard,
		StrictVerification:     in.StrictVerification,
		Deadline:               ms(in.DeadlineMS),
	}
}

func (o Options) normalized() Options {
	o.Target = strings.TrimSpace(o.Target)
	if o.RetryCount < 1 {
		o.RetryCount = 1
	}
	if o.FocusTimeout <= 0 {
		o.FocusTimeout = time.Second
	}
	if strings.TrimSpace(o.PasteShortcut) == "" {
		o.PasteShortcut = "CTRL,V"
	}
	return o
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
