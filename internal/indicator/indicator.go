// Package indicator surfaces injection outcomes as audio cues and compositor or desktop notifications.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/caret/internal/config"
	"github.com/rbright/caret/internal/hypr"
	"github.com/rbright/caret/internal/inject"
	"github.com/rbright/caret/internal/profile"
)

const (
	iconOK    = 5
	iconError = 3

	colorOK    = "rgb(a6e3a1)"
	colorError = "rgb(f38ba8)"
)

// Engine is the injection surface an Indicator observes.
type Engine interface {
	Inject(ctx context.Context, text string, opts inject.Options) inject.Outcome
	Profiles() profile.Table
}

// desktopSender delivers freedesktop notifications and returns the server-assigned id.
type desktopSender interface {
	Notify(ctx context.Context, appName string, replaceID uint32, summary string, body string, timeoutMS int) (uint32, error)
}

// Indicator notifies about finished injections through the configured backend.
type Indicator struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	desktop  desktopSender

	mu                    sync.Mutex
	desktopNotificationID uint32

	play    func(context.Context, cueKind, config.IndicatorConfig) error
	soundMu sync.Mutex
	cues    sync.WaitGroup
}

// New creates an indicator from config. A disabled indicator is a no-op.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Indicator {
	return &Indicator{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		desktop:  busNotifier{},
		play:     emitCue,
	}
}

// Outcome reports one finished injection. With sound_enable every outcome plays a cue.
// Failures always notify; successes only with notify_success.
func (i *Indicator) Outcome(ctx context.Context, outcome inject.Outcome) {
	i.playCue(cueFor(outcome.Success))
	if !i.cfg.Enable {
		return
	}
	if outcome.Success {
		if !i.cfg.NotifySuccess {
			return
		}
		i.run(ctx, func(ctx context.Context) error {
			return i.notify(ctx, iconOK, i.cfg.SuccessTimeoutMS, colorOK, i.messages.success(outcome))
		})
		return
	}

	timeout := i.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 2500
	}
	i.run(ctx, func(ctx context.Context) error {
		return i.notify(ctx, iconError, timeout, colorError, i.messages.failure(outcome))
	})
}

// Observe wraps engine so every outcome is reported.
func (i *Indicator) Observe(engine Engine) Engine {
	return observed{Engine: engine, indicator: i}
}

type observed struct {
	Engine
	indicator *Indicator
}

func (o observed) Inject(ctx context.Context, text string, opts inject.Options) inject.Outcome {
	outcome := o.Engine.Inject(ctx, text, opts)
	o.indicator.Outcome(ctx, outcome)
	return outcome
}

// Wait blocks until queued audio cues finish. Short-lived commands call it before exiting.
func (i *Indicator) Wait() {
	i.cues.Wait()
}

// playCue serializes cue playback and emits audio asynchronously.
func (i *Indicator) playCue(kind cueKind) {
	if !i.cfg.SoundEnable {
		return
	}
	i.cues.Add(1)
	go func() {
		defer i.cues.Done()
		i.soundMu.Lock()
		defer i.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		if err := i.play(ctx, kind, i.cfg); err != nil {
			i.log("indicator audio cue failed", err)
		}
	}()
}

// notify dispatches through the configured backend.
func (i *Indicator) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.EqualFold(strings.TrimSpace(i.cfg.Backend), config.IndicatorBackendDesktop) {
		return i.notifyDesktop(ctx, timeoutMS, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// notifyDesktop replaces the previous desktop notification so failures do not stack.
func (i *Indicator) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	i.mu.Lock()
	replaceID := i.desktopNotificationID
	i.mu.Unlock()

	appName := strings.TrimSpace(i.cfg.DesktopAppName)
	if appName == "" {
		appName = "caret"
	}

	id, err := i.desktop.Notify(ctx, appName, replaceID, text, "", timeoutMS)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.desktopNotificationID = id
	i.mu.Unlock()
	return nil
}

// run executes a notification with a bounded timeout that outlives caller cancellation.
func (i *Indicator) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		i.log("indicator dispatch failed", err)
	}
}

// log emits debug-only indicator failures to the runtime logger.
func (i *Indicator) log(message string, err error) {
	if i.logger == nil || err == nil {
		return
	}
	i.logger.Debug(message, "error", err.Error())
}
