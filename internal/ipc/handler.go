package ipc

import (
	"context"
	"fmt"
	"time"

	"github.com/rbright/caret/internal/inject"
	"github.com/rbright/caret/internal/profile"
)

// Engine is the daemon-side injection surface.
type Engine interface {
	Inject(ctx context.Context, text string, opts inject.Options) inject.Outcome
	Profiles() profile.Table
}

// EngineHandler answers daemon requests from one shared Engine.
type EngineHandler struct {
	engine   Engine
	defaults inject.Options
	started  time.Time
}

// NewEngineHandler serves requests using defaults for any option a request leaves unset.
func NewEngineHandler(engine Engine, defaults inject.Options) *EngineHandler {
	return &EngineHandler{engine: engine, defaults: defaults, started: time.Now()}
}

func (h *EngineHandler) Handle(ctx context.Context, req Request) Response {
	switch req.Command {
	case CommandStatus:
		return Response{
			OK:      true,
			State:   "ready",
			Message: fmt.Sprintf("up %s, %d profiles", time.Since(h.started).Round(time.Second), h.engine.Profiles().Len()),
		}
	case CommandProfiles:
		return Response{OK: true, Profiles: ProfileInfos(h.engine.Profiles())}
	case CommandInject:
		return h.inject(ctx, req)
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

func (h *EngineHandler) inject(ctx context.Context, req Request) Response {
	opts, err := RequestOptions(h.defaults, req)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	return OutcomeResponse(h.engine.Inject(ctx, req.Text, opts))
}

// OutcomeResponse is the wire form of an injection outcome.
func OutcomeResponse(outcome inject.Outcome) Response {
	resp := Response{
		OK:         outcome.Success,
		Method:     string(outcome.Method),
		Kind:       string(outcome.Kind),
		Attempts:   len(outcome.Attempts),
		DurationMS: outcome.Elapsed.Milliseconds(),
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}
	return resp
}

// RequestOptions overlays request fields on the daemon defaults.
func RequestOptions(defaults inject.Options, req Request) (inject.Options, error) {
	opts := defaults
	opts.Target = req.Target
	if req.Method != "" {
		method, err := inject.ParseMethod(req.Method)
		if err != nil {
			return inject.Options{}, err
		}
		opts.Method = method
	}
	if req.Retries > 0 {
		opts.RetryCount = req.Retries
	}
	if req.Strict {
		opts.StrictVerification = true
	}
	return opts, nil
}

// ProfileInfos converts a profile table to its wire form, preserving order.
func ProfileInfos(table profile.Table) []ProfileInfo {
	profiles := table.Profiles()
	out := make([]ProfileInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, ProfileInfo{
			Process:          p.Process,
			DisplayName:      p.DisplayName,
			Weight:           p.Weight,
			PreferClipboard:  p.PreferClipboard,
			UseUnicodeFix:    p.UseUnicodeFix,
			InterCharDelayMS: p.InterCharDelay.Milliseconds(),
			LinePauseMS:      p.LinePause.Milliseconds(),
			PasteShortcut:    p.PasteShortcut,
		})
	}
	return out
}
