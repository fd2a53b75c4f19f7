// Package dbusapi exports the injection engine on the session bus.
package dbusapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/rbright/caret/internal/inject"
)

const (
	BusName   = "io.github.rbright.Caret"
	Interface = "io.github.rbright.Caret"
	Path      = dbus.ObjectPath("/io/github/rbright/Caret")
)

const introspectXML = `
<node>
	<interface name="` + Interface + `">
		<method name="Inject">
			<arg direction="in" type="s" name="text"/>
			<arg direction="in" type="s" name="target"/>
			<arg direction="out" type="b" name="success"/>
		</method>
		<method name="InjectDetailed">
			<arg direction="in" type="s" name="text"/>
			<arg direction="in" type="s" name="target"/>
			<arg direction="out" type="b" name="success"/>
			<arg direction="out" type="s" name="method"/>
			<arg direction="out" type="s" name="kind"/>
		</method>
	</interface>` + introspect.IntrospectDataString + `</node>`

// Engine is the injection surface exported on the bus.
type Engine interface {
	Inject(ctx context.Context, text string, opts inject.Options) inject.Outcome
}

// Service is the exported bus object. Each call runs with ctx and defaults fixed at construction.
type Service struct {
	ctx      context.Context
	engine   Engine
	defaults inject.Options
	logger   *slog.Logger
}

func NewService(ctx context.Context, engine Engine, defaults inject.Options, logger *slog.Logger) *Service {
	return &Service{ctx: ctx, engine: engine, defaults: defaults, logger: logger}
}

// Inject types text into target ("" for the focused window) and reports success.
func (s *Service) Inject(text, target string) (bool, *dbus.Error) {
	outcome := s.run(text, target)
	return outcome.Success, nil
}

// InjectDetailed is Inject plus the method used and the failure kind, if any.
func (s *Service) InjectDetailed(text, target string) (bool, string, string, *dbus.Error) {
	outcome := s.run(text, target)
	return outcome.Success, string(outcome.Method), string(outcome.Kind), nil
}

func (s *Service) run(text, target string) inject.Outcome {
	opts := s.defaults
	opts.Target = target
	outcome := s.engine.Inject(s.ctx, text, opts)
	if s.logger != nil {
		s.logger.Info("dbus inject", "target", target, "success", outcome.Success, "kind", string(outcome.Kind))
	}
	return outcome
}

// Serve claims BusName on the session bus, exports svc, and blocks until ctx is done.
func Serve(ctx context.Context, svc *Service) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	if err := export(conn, svc); err != nil {
		return err
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("bus name already taken")
	}

	<-ctx.Done()
	_, _ = conn.ReleaseName(BusName)
	return nil
}

func export(conn *dbus.Conn, svc *Service) error {
	if err := conn.Export(svc, Path, Interface); err != nil {
		return fmt.Errorf("export %s: %w", Interface, err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), Path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}
	return nil
}
