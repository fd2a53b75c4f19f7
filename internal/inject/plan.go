package inject

import (
	"time"
	"unicode/utf8"

	"github.com/rbright/caret/internal/profile"
)

// Plan is the concrete emission method and timing for one attempt.
// It is either a DirectPlan or a ClipboardPlan.
type Plan interface {
	Method() Method
	isPlan()
}

// DirectPlan types text as synthetic key events.
type DirectPlan struct {
	CharDelay time.Duration
	LinePause time.Duration
}

// ClipboardPlan sets the clipboard and sends the paste shortcut.
type ClipboardPlan struct {
	Shortcut string
	Settle   time.Duration
	Restore  bool
}

func (DirectPlan) Method() Method    { return MethodDirect }
func (ClipboardPlan) Method() Method { return MethodClipboard }
func (DirectPlan) isPlan()           {}
func (ClipboardPlan) isPlan()        {}

// Select maps a profile and text to an emission plan. It is deterministic.
//
// A pinned method wins. Otherwise prefer_clipboard selects the clipboard, and
// use_unicode_fix sends text containing non-ASCII through the clipboard as a whole.
func Select(p profile.Profile, text string, opts Options) Plan {
	switch opts.Method {
	case MethodDirect:
		return directPlan(p, opts)
	case MethodClipboard:
		return clipboardPlan(p, opts)
	}

	if p.PreferClipboard {
		return clipboardPlan(p, opts)
	}
	if p.UseUnicodeFix && !isASCII(text) {
		return clipboardPlan(p, opts)
	}
	return directPlan(p, opts)
}

// Escalate returns the fallback plan for a retry after plan failed.
func Escalate(plan Plan, p profile.Profile, opts Options) Plan {
	if opts.Method != "" || !opts.AllowClipboardFallback {
		return plan
	}
	if _, ok := plan.(DirectPlan); ok {
		return clipboardPlan(p, opts)
	}
	return plan
}

func directPlan(p profile.Profile, opts Options) DirectPlan {
	plan := DirectPlan{CharDelay: opts.CharDelay, LinePause: opts.LinePause}
	if p.InterCharDelay > 0 {
		plan.CharDelay = p.InterCharDelay
	}
	if p.LinePause > 0 {
		plan.LinePause = p.LinePause
	}
	return plan
}

func clipboardPlan(p profile.Profile, opts Options) ClipboardPlan {
	plan := ClipboardPlan{
		Shortcut: opts.PasteShortcut,
		Settle:   opts.PasteSettle,
		Restore:  opts.RestoreClipboard,
	}
	if p.PasteShortcut != "" {
		plan.Shortcut = p.PasteShortcut
	}
	return plan
}

func isASCII(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
