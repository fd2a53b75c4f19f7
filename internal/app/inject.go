package app

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rbright/caret/internal/inject"
	"github.com/rbright/caret/internal/ipc"
)

const forwardTimeout = 30 * time.Second

func (r Runner) newInjectCmd(g *globals) *cobra.Command {
	var (
		req   ipc.Request
		local bool
	)

	cmd := &cobra.Command{
		Use:   "inject [flags] TEXT...",
		Short: "Type text into a target application",
		Long: "Focus --target (a process name) or, without --target, the active window, then type TEXT into it. " +
			"Use - to read the text from stdin. The request goes to a running `caret serve` daemon when one is listening.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := inject.ParseMethod(req.Method); err != nil {
				return err
			}
			if req.Retries < 0 {
				return errors.New("--retries must be >= 0")
			}

			text := strings.Join(args, " ")
			if len(args) == 1 && args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return failed(fmt.Errorf("read stdin: %w", err))
				}
				text = strings.TrimSuffix(string(data), "\n")
			}
			req.Command = ipc.CommandInject
			req.Text = text

			env, err := r.open(g, "inject")
			if err != nil {
				return err
			}
			defer env.close()

			if !local {
				if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
					resp, handled, err := ipc.Forward(cmd.Context(), socketPath, req, forwardTimeout)
					if handled {
						env.logger.Info("inject forwarded", "socket", socketPath, "ok", resp.OK)
						return r.reportInject(resp, err)
					}
				}
			}

			st, err := newStack(env.loaded.Config, env.logger)
			if err != nil {
				return failed(err)
			}
			opts, err := ipc.RequestOptions(st.defaults, req)
			if err != nil {
				return err
			}
			resp := ipc.OutcomeResponse(st.surface.Inject(cmd.Context(), text, opts))
			st.indicator.Wait()
			return r.reportInject(resp, nil)
		},
	}

	cmd.Flags().StringVarP(&req.Target, "target", "t", "", "Process name of the target application (default: active window)")
	cmd.Flags().StringVarP(&req.Method, "method", "m", "", "Force an injection method: direct or clipboard")
	cmd.Flags().IntVarP(&req.Retries, "retries", "r", 0, "Total attempts (default: inject.retry_count)")
	cmd.Flags().BoolVar(&req.Strict, "strict", false, "Treat inconclusive verification as failure")
	cmd.Flags().BoolVar(&local, "local", false, "Run in-process even when a daemon is listening")
	return cmd
}

// reportInject prints one outcome line and maps failure to exit status 1.
func (r Runner) reportInject(resp ipc.Response, forwardErr error) error {
	if resp.OK {
		fmt.Fprintf(r.Stdout, "ok method=%s attempts=%d duration_ms=%d\n", resp.Method, resp.Attempts, resp.DurationMS)
		return nil
	}
	if resp.Kind == "" {
		if forwardErr == nil {
			forwardErr = errors.New("injection failed")
		}
		return failed(forwardErr)
	}

	fmt.Fprintf(r.Stdout, "failed method=%s attempts=%d kind=%s duration_ms=%d\n",
		resp.Method, resp.Attempts, resp.Kind, resp.DurationMS)
	return failed(errors.New(resp.Error))
}
