// Package output drives the desktop input surfaces: keyboard emission, clipboard, and paste dispatch.
package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/caret/internal/config"
)

const clipboardTimeout = 2 * time.Second

// Clipboard is the system clipboard as seen by the injector.
type Clipboard interface {
	Read(context.Context) (string, error)
	Write(ctx context.Context, text string) error
}

// NewClipboard selects the configured clipboard backend.
func NewClipboard(cfg config.ClipboardConfig) Clipboard {
	if cfg.Backend == config.ClipboardBackendSystem {
		return NewSystemClipboard()
	}
	return &CommandClipboard{WriteArgv: cfg.Write.Argv, ReadArgv: cfg.Read.Argv}
}

// CommandClipboard shells out to clipboard tools such as wl-copy and wl-paste.
type CommandClipboard struct {
	WriteArgv []string
	ReadArgv  []string
}

// Write replaces clipboard contents with text. Empty text clears the clipboard.
func (c *CommandClipboard) Write(ctx context.Context, text string) error {
	writeCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if text == "" && isWLCopy(c.WriteArgv) {
		if err := runCommandWithInput(writeCtx, []string{c.WriteArgv[0], "--clear"}, ""); err != nil {
			return fmt.Errorf("clear clipboard: %w", err)
		}
		return nil
	}
	if err := runCommandWithInput(writeCtx, c.WriteArgv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// Read returns current clipboard contents byte for byte.
// An empty selection reads as "" rather than an error.
func (c *CommandClipboard) Read(ctx context.Context) (string, error) {
	if len(c.ReadArgv) == 0 {
		return "", fmt.Errorf("read clipboard: no clipboard_read_cmd configured")
	}
	readCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	out, err := runCommandOutput(readCtx, c.ReadArgv)
	if err != nil {
		if emptySelection(err) {
			return "", nil
		}
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return out, nil
}

// emptySelection matches wl-paste's report for a clipboard with no offer.
func emptySelection(err error) bool {
	msg := err.Error()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg += " " + string(exitErr.Stderr)
	}
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "nothing is copied") || strings.Contains(msg, "no selection")
}

// isWLCopy reports whether argv runs wl-copy, which empties the clipboard with --clear.
func isWLCopy(argv []string) bool {
	return len(argv) > 0 && filepath.Base(argv[0]) == "wl-copy"
}

// SystemClipboard uses the platform clipboard discovered by atotto/clipboard.
type SystemClipboard struct {
	readAll  func() (string, error)
	writeAll func(string) error
}

// NewSystemClipboard constructs the library-backed clipboard.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{readAll: clipboard.ReadAll, writeAll: clipboard.WriteAll}
}

func (c *SystemClipboard) Write(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("set clipboard: no system clipboard utility available")
	}
	if err := c.writeAll(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

func (c *SystemClipboard) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if clipboard.Unsupported {
		return "", fmt.Errorf("read clipboard: no system clipboard utility available")
	}
	text, err := c.readAll()
	if err != nil {
		if emptySelection(err) {
			return "", nil
		}
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

// runCommandOutput executes argv and returns stdout untouched.
func runCommandOutput(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("command argv cannot be empty")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w (%s)", argv[0], err, msg)
		}
		return "", fmt.Errorf("run %s: %w", argv[0], err)
	}
	return stdout.String(), nil
}
