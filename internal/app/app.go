// Package app wires caret's command tree to the injection runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rbright/caret/internal/config"
	"github.com/rbright/caret/internal/doctor"
	"github.com/rbright/caret/internal/logging"
	"github.com/rbright/caret/internal/version"
)

// Runner executes one CLI invocation against injectable output streams.
// A nil Logger means the JSONL log file is opened per command.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute returns 0 on success, 1 when an operation fails, and 2 for usage errors.
func (r Runner) Execute(ctx context.Context, args []string) int {
	root := r.newRootCmd()
	root.SetArgs(args)
	root.SetOut(r.Stdout)
	root.SetErr(r.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", exit.err)
		}
		return exit.code
	}

	fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
	fmt.Fprint(r.Stderr, root.UsageString())
	return 2
}

// exitError marks an operation failure. Errors without it are usage errors.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// failed reports an operation failure. A nil err exits 1 without printing.
func failed(err error) error {
	return &exitError{code: 1, err: err}
}

// globals are the persistent root flags.
type globals struct {
	configPath string
	logLevel   string
}

func (r Runner) newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "caret",
		Short:         "Reliable text injection for Hyprland",
		Long:          "caret focuses a target application and types text into it, retrying and falling back to the clipboard when direct typing fails.",
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(version.String() + "\n")
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to config.jsonc")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(r.newInjectCmd(g))
	cmd.AddCommand(r.newServeCmd(g))
	cmd.AddCommand(r.newValidateCmd(g))
	cmd.AddCommand(r.newProfilesCmd(g))
	cmd.AddCommand(r.newHistoryCmd(g))
	cmd.AddCommand(r.newDoctorCmd(g))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func (r Runner) newDoctorCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the desktop session, input tools, and caret files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := r.open(g, "doctor")
			if err != nil {
				return err
			}
			defer env.close()

			report := doctor.Run(cmd.Context(), env.loaded)
			fmt.Fprintln(r.Stdout, report.String())
			if !report.OK() {
				return failed(nil)
			}
			return nil
		},
	}
}

// env is the per-command state shared by every command that reads config.
type env struct {
	loaded config.Loaded
	logger *slog.Logger
	logs   logging.Runtime
}

func (e *env) close() {
	_ = e.logs.Close()
}

// open sets up logging and loads config, echoing config warnings to stderr.
func (r Runner) open(g *globals, command string) (*env, error) {
	level, err := logging.ParseLevel(g.logLevel)
	if err != nil {
		return nil, err
	}

	logs := logging.Discard()
	logger := r.Logger
	if logger == nil {
		logs, err = logging.New(level)
		if err != nil {
			return nil, failed(fmt.Errorf("setup logging: %w", err))
		}
		logger = logs.Logger
	}

	loaded, err := config.Load(g.configPath)
	if err != nil {
		logger.Error("load config failed", "error", err.Error())
		_ = logs.Close()
		return nil, failed(err)
	}
	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", command,
		"config", loaded.Path,
		"log", logs.Path,
	)
	return &env{loaded: loaded, logger: logger, logs: logs}, nil
}
