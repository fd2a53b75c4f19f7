package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbright/caret/internal/dbusapi"
	"github.com/rbright/caret/internal/ipc"
	"github.com/rbright/caret/internal/profile"
)

const profileReloadDebounce = 250 * time.Millisecond

func (r Runner) newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the injection daemon",
		Long: "Hold one injection engine and serve inject, status, and profiles requests on $XDG_RUNTIME_DIR/caret.sock " +
			"until interrupted. Optionally exports the engine on the session bus and reloads the profile file on change.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.open(g, "serve")
			if err != nil {
				return err
			}
			defer env.close()
			return r.serve(cmd.Context(), env)
		},
	}
}

func (r Runner) serve(ctx context.Context, env *env) error {
	cfg := env.loaded.Config
	logger := env.logger

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return failed(err)
	}

	st, err := newStack(cfg, logger)
	if err != nil {
		return failed(err)
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return failed(fmt.Errorf("%w on %s", err, socketPath))
		}
		return failed(err)
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
		st.indicator.Wait()
	}()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	if cfg.DBus.Enable {
		svc := dbusapi.NewService(serverCtx, st.surface, st.defaults, logger)
		go func() {
			if err := dbusapi.Serve(serverCtx, svc); err != nil {
				fmt.Fprintf(r.Stderr, "warning: dbus export disabled: %v\n", err)
				logger.Warn("dbus export failed", "error", err.Error())
			}
		}()
	}

	if cfg.Profiles.Watch && cfg.Profiles.File != "" {
		go func() {
			err := profile.Watch(serverCtx, cfg.Profiles.File, profileReloadDebounce, logger, func() {
				reloadProfiles(serverCtx, st, cfg.Profiles.File, logger)
			})
			if err != nil {
				logger.Warn("profile watch stopped", "file", cfg.Profiles.File, "error", err.Error())
			}
		}()
	}

	logger.Info("serving", "socket", socketPath, "profiles", st.engine.Profiles().Len(), "dbus", cfg.DBus.Enable)
	fmt.Fprintf(r.Stdout, "serving on %s\n", socketPath)

	if err := ipc.Serve(serverCtx, listener, ipc.NewEngineHandler(st.surface, st.defaults)); err != nil {
		return failed(fmt.Errorf("ipc server failed: %w", err))
	}
	logger.Info("serve stopped")
	return nil
}

// reloadProfiles swaps in a freshly merged table. A broken file keeps the current table.
func reloadProfiles(ctx context.Context, st *stack, path string, logger *slog.Logger) {
	table, err := profile.LoadTable(profile.Builtin(), path)
	if err != nil {
		logger.Warn("profile reload rejected", "file", path, "error", err.Error())
		return
	}
	if err := st.engine.ReplaceProfiles(ctx, table); err != nil {
		logger.Warn("profile reload aborted", "file", path, "error", err.Error())
		return
	}
	logger.Info("profiles reloaded", "file", path, "profiles", table.Len())
}
