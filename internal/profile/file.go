package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Override is one entry of a profile override file. Nil fields keep the base value.
type Override struct {
	Process          string   `yaml:"process" toml:"process"`
	DisplayName      *string  `yaml:"display_name" toml:"display_name"`
	Weight           *float64 `yaml:"weight" toml:"weight"`
	PreferClipboard  *bool    `yaml:"prefer_clipboard" toml:"prefer_clipboard"`
	UseUnicodeFix    *bool    `yaml:"use_unicode_fix" toml:"use_unicode_fix"`
	InterCharDelayMS *int     `yaml:"inter_char_delay_ms" toml:"inter_char_delay_ms"`
	LinePauseMS      *int     `yaml:"line_pause_ms" toml:"line_pause_ms"`
	PasteShortcut    *string  `yaml:"paste_shortcut" toml:"paste_shortcut"`
	FocusSettleMS    *int     `yaml:"focus_settle_ms" toml:"focus_settle_ms"`
	Remove           bool     `yaml:"remove" toml:"remove"`
}

type overrideFile struct {
	Profiles []Override `yaml:"profiles" toml:"profiles"`
}

// LoadFile reads overrides from a .yaml/.yml or .toml file.
func LoadFile(path string) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %q: %w", path, err)
	}

	var doc overrideFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("decode profiles %q: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decode profiles %q: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode profiles %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("profiles %q: unsupported extension (want .yaml, .yml, or .toml)", path)
	}
	return doc.Profiles, nil
}

// Apply merges overrides onto base by process name and returns a new table.
// Unknown processes are appended; Remove drops an entry.
func Apply(base Table, overrides []Override) (Table, error) {
	profiles := base.Profiles()
	positions := make(map[string]int, len(profiles))
	for i, p := range profiles {
		positions[p.Process] = i
	}
	removed := make(map[string]bool)

	for _, o := range overrides {
		name := strings.TrimSpace(o.Process)
		if name == "" {
			return Table{}, fmt.Errorf("profile override is missing process")
		}
		if o.Remove {
			removed[name] = true
			continue
		}
		delete(removed, name)

		i, ok := positions[name]
		if !ok {
			profiles = append(profiles, Fallback(name))
			i = len(profiles) - 1
			positions[name] = i
		}
		if err := o.applyTo(&profiles[i]); err != nil {
			return Table{}, err
		}
	}

	kept := profiles[:0]
	for _, p := range profiles {
		if removed[p.Process] {
			continue
		}
		kept = append(kept, p)
	}
	return NewTable(kept)
}

// LoadTable applies an override file to base. An empty path returns base.
func LoadTable(base Table, path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	overrides, err := LoadFile(path)
	if err != nil {
		return Table{}, err
	}
	return Apply(base, overrides)
}

func (o Override) applyTo(p *Profile) error {
	if o.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*o.DisplayName)
	}
	if o.Weight != nil {
		if *o.Weight <= 0 {
			return fmt.Errorf("profile %q: weight must be > 0 (use remove to drop the application)", o.Process)
		}
		p.Weight = *o.Weight
	}
	if o.PreferClipboard != nil {
		p.PreferClipboard = *o.PreferClipboard
	}
	if o.UseUnicodeFix != nil {
		p.UseUnicodeFix = *o.UseUnicodeFix
	}
	if o.PasteShortcut != nil {
		p.PasteShortcut = strings.TrimSpace(*o.PasteShortcut)
	}

	var err error
	if p.InterCharDelay, err = millis(o.Process, "inter_char_delay_ms", o.InterCharDelayMS, p.InterCharDelay); err != nil {
		return err
	}
	if p.LinePause, err = millis(o.Process, "line_pause_ms", o.LinePauseMS, p.LinePause); err != nil {
		return err
	}
	if p.FocusSettle, err = millis(o.Process, "focus_settle_ms", o.FocusSettleMS, p.FocusSettle); err != nil {
		return err
	}
	return nil
}

func millis(process string, key string, value *int, current time.Duration) (time.Duration, error) {
	if value == nil {
		return current, nil
	}
	if *value < 0 {
		return 0, fmt.Errorf("profile %q: %s must be >= 0", process, key)
	}
	return time.Duration(*value) * time.Millisecond, nil
}
