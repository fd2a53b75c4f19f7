package inject

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/caret/internal/config"
	"github.com/rbright/caret/internal/profile"
)

func defaultOptions() Options {
	return OptionsFromConfig(config.Default()).normalized()
}

func TestSelectASCIIDefaultsToDirect(t *testing.T) {
	opts := defaultOptions()
	for _, p := range profile.Builtin().Profiles() {
		plan := Select(p, "Hello World 123", opts)
		if p.PreferClipboard {
			require.Equal(t, MethodClipboard, plan.Method(), p.Process)
			continue
		}
		require.Equal(t, MethodDirect, plan.Method(), p.Process)
	}
}

func TestSelectUnicodeFixRoutesNonASCIIThroughClipboard(t *testing.T) {
	opts := defaultOptions()
	fixed := profile.Profile{Process: "chrome", UseUnicodeFix: true}

	require.Equal(t, MethodClipboard, Select(fixed, "Test with unicode: αβγδεζηθ", opts).Method())
	require.Equal(t, MethodDirect, Select(fixed, "plain ascii", opts).Method())
	require.Equal(t, MethodDirect, Select(profile.Fallback("chrome"), "Test with unicode: αβγδεζηθ", opts).Method())
}

func TestSelectPinnedMethodWins(t *testing.T) {
	opts := defaultOptions()
	opts.Method = MethodDirect
	require.Equal(t, MethodDirect, Select(profile.Profile{PreferClipboard: true}, "x", opts).Method())

	opts.Method = MethodClipboard
	require.Equal(t, MethodClipboard, Select(profile.Fallback("code"), "x", opts).Method())
}

func TestSelectAppliesProfileTiming(t *testing.T) {
	opts := defaultOptions()
	p := profile.Profile{InterCharDelay: 12 * time.Millisecond, LinePause: 30 * time.Millisecond, PasteShortcut: "CTRL SHIFT,V"}

	direct, ok := Select(p, "abc", opts).(DirectPlan)
	require.True(t, ok)
	require.Equal(t, DirectPlan{CharDelay: 12 * time.Millisecond, LinePause: 30 * time.Millisecond}, direct)

	opts.Method = MethodClipboard
	clip, ok := Select(p, "abc", opts).(ClipboardPlan)
	require.True(t, ok)
	require.Equal(t, ClipboardPlan{Shortcut: "CTRL SHIFT,V", Settle: 120 * time.Millisecond, Restore: true}, clip)

	opts.Method = ""
	fallback, ok := Select(profile.Fallback("x"), "abc", opts).(DirectPlan)
	require.True(t, ok)
	require.Equal(t, 8*time.Millisecond, fallback.CharDelay)
}

func TestSelectIsDeterministic(t *testing.T) {
	opts := defaultOptions()
	p, _ := profile.Builtin().Lookup("firefox")
	text := "Symbols: !@#$%^&*() ünïcödé"
	require.Equal(t, Select(p, text, opts), Select(p, text, opts))
}

func TestEscalate(t *testing.T) {
	opts := defaultOptions()
	p := profile.Fallback("code")
	direct := Select(p, "x", opts)

	require.Equal(t, MethodClipboard, Escalate(direct, p, opts).Method())

	noFallback := opts
	noFallback.AllowClipboardFallback = false
	require.Equal(t, MethodDirect, Escalate(direct, p, noFallback).Method())

	pinned := opts
	pinned.Method = MethodDirect
	require.Equal(t, MethodDirect, Escalate(direct, p, pinned).Method())

	clip := clipboardPlan(p, opts)
	require.Equal(t, Plan(clip), Escalate(clip, p, opts))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Clipboard ")
	require.NoError(t, err)
	require.Equal(t, MethodClipboard, m)

	m, err = ParseMethod("")
	require.NoError(t, err)
	require.Empty(t, m)

	_, err = ParseMethod("osc52")
	require.Error(t, err)
}

func TestOptionsNormalized(t *testing.T) {
	opts := Options{Target: " chrome ", RetryCount: 0}.normalized()
	require.Equal(t, "chrome", opts.Target)
	require.Equal(t, 1, opts.RetryCount)
	require.Equal(t, "CTRL,V", opts.PasteShortcut)
	require.Equal(t, time.Second, opts.FocusTimeout)
}
