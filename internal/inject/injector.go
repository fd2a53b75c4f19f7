package inject

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/caret/internal/failure"
	"github.com/rbright/caret/internal/focus"
	"github.com/rbright/caret/internal/output"
)

// Keyboard emits synthetic key events into the focused window.
type Keyboard interface {
	Type(ctx context.Context, text string, delay time.Duration) error
	Key(ctx context.Context, name string) error
}

// Clipboard is the session clipboard.
type Clipboard interface {
	Read(context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// Paster sends a paste shortcut to a window.
type Paster interface {
	Paste(ctx context.Context, shortcut string, windowAddress string) error
}

// Injector executes exactly one emission plan. It never retries.
type Injector struct {
	keyboard  Keyboard
	clipboard Clipboard
	paster    Paster
	logger    *slog.Logger
}

// NewInjector constructs an injector over the given desktop surfaces.
func NewInjector(keyboard Keyboard, clipboard Clipboard, paster Paster, logger *slog.Logger) *Injector {
	return &Injector{keyboard: keyboard, clipboard: clipboard, paster: paster, logger: logger}
}

// Emit delivers text to window according to plan.
func (i *Injector) Emit(ctx context.Context, plan Plan, text string, window focus.Window) error {
	if text == "" {
		return nil
	}
	text = normalizeNewlines(text)

	var err error
	switch p := plan.(type) {
	case DirectPlan:
		err = i.emitDirect(ctx, p, text)
	case ClipboardPlan:
		err = i.emitClipboard(ctx, p, text, window)
	default:
		err = fmt.Errorf("unsupported plan %T", plan)
	}
	if err != nil {
		return failure.Wrap(failure.KindEmissionRejected, window.Process, err)
	}
	return nil
}

// emitDirect types runs of ordinary characters and sends Enter and Tab as named keys.
func (i *Injector) emitDirect(ctx context.Context, plan DirectPlan, text string) error {
	var run strings.Builder
	flush := func() error {
		if run.Len() == 0 {
			return nil
		}
		segment := run.String()
		run.Reset()
		return i.keyboard.Type(ctx, segment, plan.CharDelay)
	}

	for _, r := range text {
		switch r {
		case '\n':
			if err := flush(); err != nil {
				return err
			}
			if err := i.keyboard.Key(ctx, output.KeyReturn); err != nil {
				return err
			}
			if err := sleep(ctx, plan.LinePause); err != nil {
				return err
			}
		case '\t':
			if err := flush(); err != nil {
				return err
			}
			if err := i.keyboard.Key(ctx, output.KeyTab); err != nil {
				return err
			}
			if err := sleep(ctx, plan.CharDelay); err != nil {
				return err
			}
		default:
			run.WriteRune(r)
		}
	}
	return flush()
}

// emitClipboard sets the clipboard, pastes, and restores prior contents when asked.
func (i *Injector) emitClipboard(ctx context.Context, plan ClipboardPlan, text string, window focus.Window) error {
	if plan.Restore {
		previous, readErr := i.clipboard.Read(ctx)
		if readErr != nil {
			i.warn("clipboard not saved; it will not be restored", readErr)
		} else {
			defer func() {
				// Detached from ctx: a timed-out request still restores.
				restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if restoreErr := i.clipboard.Write(restoreCtx, previous); restoreErr != nil {
					i.warn("clipboard restore failed", restoreErr)
				}
			}()
		}
	}

	if err := i.clipboard.Write(ctx, text); err != nil {
		return err
	}
	if err := i.paster.Paste(ctx, plan.Shortcut, window.Address); err != nil {
		return fmt.Errorf("paste dispatch: %w", err)
	}
	return sleep(ctx, plan.Settle)
}

func (i *Injector) warn(msg string, err error) {
	if i.logger == nil {
		return
	}
	i.logger.Warn(msg, "error", err.Error())
}

func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
