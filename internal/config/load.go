package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loaded is the outcome of Load: where the config came from, the effective
// values, and anything the user should see before caret runs.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load reads the caret config at explicitPath (or the XDG default).
// A missing file yields defaults plus a warning. Relative file paths inside
// the config resolve against the config's directory, and referenced files
// that cannot be read are reported as warnings rather than errors.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	loaded := Loaded{Path: path, Config: Default()}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", path),
		})
		return loaded, nil
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
	}
	loaded.Exists = true

	cfg, warnings, err := Parse(string(content), loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	anchorPaths(&cfg, filepath.Dir(path))

	loaded.Config = cfg
	loaded.Warnings = append(warnings, referencedFileWarnings(cfg)...)
	return loaded, nil
}

// anchorPaths expands `~` and joins relative file settings onto dir.
func anchorPaths(cfg *Config, dir string) {
	for _, p := range []*string{
		&cfg.Profiles.File,
		&cfg.History.Path,
		&cfg.Validation.ReportDir,
		&cfg.Indicator.SoundCompleteFile,
		&cfg.Indicator.SoundCancelFile,
	} {
		*p = anchorPath(*p, dir)
	}
}

func anchorPath(raw string, dir string) string {
	raw = expandHome(strings.TrimSpace(raw))
	if raw == "" || filepath.IsAbs(raw) {
		return raw
	}
	return filepath.Join(dir, raw)
}

func referencedFileWarnings(cfg Config) []Warning {
	var warnings []Warning
	if cfg.Profiles.File != "" {
		if msg := unreadable(cfg.Profiles.File); msg != "" {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("profiles.file %s; profile overrides cannot load", msg),
			})
		}
	}
	if !cfg.Indicator.SoundEnable {
		return warnings
	}
	for key, file := range map[string]string{
		"indicator.sound_complete_file": cfg.Indicator.SoundCompleteFile,
		"indicator.sound_cancel_file":   cfg.Indicator.SoundCancelFile,
	} {
		if file == "" {
			continue
		}
		if msg := unreadable(file); msg != "" {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("%s %s; the synthesized cue will play instead", key, msg),
			})
		}
	}
	return warnings
}

// unreadable describes why path cannot serve as an input file, or returns "".
func unreadable(path string) string {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("%q does not exist", path)
	case err != nil:
		return fmt.Sprintf("%q is not accessible: %v", path, err)
	case info.IsDir():
		return fmt.Sprintf("%q is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("%q is not readable: %v", path, err)
	}
	_ = f.Close()
	return ""
}
