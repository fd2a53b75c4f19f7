package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "caret"

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir, "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", appDir, "config.jsonc"), nil
}

// StateDir resolves caret's XDG state directory.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for state fallback")
	}
	return filepath.Join(home, ".local", "state", appDir), nil
}

// ReportDir returns validation.report_dir or the default under the state dir.
func (c Config) ReportDir() (string, error) {
	if dir := strings.TrimSpace(c.Validation.ReportDir); dir != "" {
		return dir, nil
	}
	state, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "reports"), nil
}

// HistoryPath returns history.path or the default under the state dir.
func (c Config) HistoryPath() (string, error) {
	if path := strings.TrimSpace(c.History.Path); path != "" {
		return path, nil
	}
	state, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "history.db"), nil
}
