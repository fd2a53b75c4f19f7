package output

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key names understood by wtype -k.
const (
	KeyReturn = "Return"
	KeyTab    = "Tab"
)

// Keyboard synthesizes key events through a wtype-compatible command.
type Keyboard struct {
	argv []string
}

// NewKeyboard wraps the configured keyboard_cmd argv.
func NewKeyboard(argv []string) *Keyboard {
	return &Keyboard{argv: append([]string(nil), argv...)}
}

// Type emits text as individual key events, sleeping delay between characters.
func (k *Keyboard) Type(ctx context.Context, text string, delay time.Duration) error {
	if text == "" {
		return nil
	}
	args := make([]string, 0, 4)
	if ms := delay.Milliseconds(); ms > 0 {
		args = append(args, "-d", strconv.FormatInt(ms, 10))
	}
	args = append(args, "--", text)
	return k.run(ctx, args...)
}

// Key presses and releases one named key.
func (k *Keyboard) Key(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("key name cannot be empty")
	}
	return k.run(ctx, "-k", name)
}

func (k *Keyboard) run(ctx context.Context, args ...string) error {
	if len(k.argv) == 0 {
		return fmt.Errorf("keyboard command argv cannot be empty")
	}
	argv := make([]string, 0, len(k.argv)+len(args))
	argv = append(argv, k.argv...)
	argv = append(argv, args...)
	if _, err := runCommandOutput(ctx, argv); err != nil {
		return fmt.Errorf("keyboard emit: %w", err)
	}
	return nil
}
