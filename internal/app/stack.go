package app

import (
	"fmt"
	"log/slog"

	"github.com/rbright/caret/internal/config"
	"github.com/rbright/caret/internal/focus"
	"github.com/rbright/caret/internal/hypr"
	"github.com/rbright/caret/internal/indicator"
	"github.com/rbright/caret/internal/inject"
	"github.com/rbright/caret/internal/output"
	"github.com/rbright/caret/internal/procfs"
	"github.com/rbright/caret/internal/profile"
)

// stack is the live injection stack for one desktop session.
// surface is the engine as seen by interactive callers, with outcome notifications attached.
type stack struct {
	engine    *inject.Engine
	surface   indicator.Engine
	indicator *indicator.Indicator
	resolver  *focus.Resolver
	defaults  inject.Options
}

// newStack builds the engine over hyprctl, /proc, the keyboard tool, and the clipboard.
func newStack(cfg config.Config, logger *slog.Logger) (*stack, error) {
	table, err := loadProfiles(cfg)
	if err != nil {
		return nil, err
	}

	resolver := focus.NewResolver(hypr.CLI{}, procfs.New(), logger)
	injector := inject.NewInjector(
		output.NewKeyboard(cfg.Keyboard.Argv),
		output.NewClipboard(cfg.Clipboard),
		output.Paster{},
		logger,
	)
	engine := inject.NewEngine(profile.NewStore(table), resolver, injector, logger)
	notifier := indicator.New(cfg.Indicator, logger)

	return &stack{
		engine:    engine,
		surface:   notifier.Observe(engine),
		indicator: notifier,
		resolver:  resolver,
		defaults:  inject.OptionsFromConfig(cfg),
	}, nil
}

// loadProfiles merges the configured override file over the built-in table.
func loadProfiles(cfg config.Config) (profile.Table, error) {
	table, err := profile.LoadTable(profile.Builtin(), cfg.Profiles.File)
	if err != nil {
		return profile.Table{}, fmt.Errorf("load profiles: %w", err)
	}
	return table, nil
}
