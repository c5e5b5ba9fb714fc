package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Protezhe/OrionSupport/pkg/lib/runner"
)

func newStopCmd(root *rootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop every process; exits 1 when none was running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			stopped := runStop(cmd.Context(), a, cmd.OutOrStdout(), cmd.ErrOrStderr(), runner.StopOptions{Wait: wait})
			if stopped == 0 {
				return &exitError{code: exitNothingStopped}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait this long for processes to exit, then kill them")
	return cmd
}

// runStop stops every process in declared order, prints one line per process and
// returns how many were actually stopped.
func runStop(ctx context.Context, a *app, out, errOut io.Writer, opts runner.StopOptions) int {
	stopped := 0
	for _, p := range a.cfg.Processes {
		res := a.runner.Stop(ctx, p, opts)
		if res.Stopped {
			stopped++
			fmt.Fprintf(out, "%s stopped.\n", p.Name)
			continue
		}
		fmt.Fprintf(out, "%s not running.\n", p.Name)
		if res.Err != nil {
			fmt.Fprintf(errOut, "orionctl: %s: %v\n", p.Name, res.Err)
		}
	}
	return stopped
}
