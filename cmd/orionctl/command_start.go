package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Protezhe/OrionSupport/pkg/lib"
	"github.com/Protezhe/OrionSupport/pkg/lib/environment"
	"github.com/Protezhe/OrionSupport/pkg/lib/probe"
)

const readyPollInterval = 200 * time.Millisecond

type startOptions struct {
	wait        bool
	skipRunning bool
}

func newStartCmd(root *rootOptions) *cobra.Command {
	opts := &startOptions{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Provision the environment if needed and launch every process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			return runStart(cmd.Context(), a, cmd.OutOrStdout(), root.verbose, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait until processes with a readiness probe are ready")
	cmd.Flags().BoolVar(&opts.skipRunning, "skip-running", false, "do not launch processes that are already running")
	return cmd
}

func runStart(ctx context.Context, a *app, out io.Writer, verbose bool, opts *startOptions) error {
	prov := environment.NewProvisioner(a.cfg.Environment, a.cfg.Root)
	if verbose {
		prov.SetOutput(out)
	}
	created, err := prov.Ensure(ctx)
	if err != nil {
		return &exitError{code: exitProvisioning, err: err}
	}
	if created {
		fmt.Fprintf(out, "Environment created in %s.\n", a.cfg.Environment.Dir)
	}

	var launched []lib.ManagedProcess
	for _, p := range a.cfg.Processes {
		if opts.skipRunning {
			pids, err := a.runner.Running(ctx, p)
			if err != nil {
				return err
			}
			if len(pids) > 0 {
				fmt.Fprintf(out, "%s already running (pid %s).\n", p.Name, joinPIDs(pids))
				continue
			}
		}

		inst, err := a.runner.Launch(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s started (pid %d).\n", p.Name, inst.PID)
		launched = append(launched, p)
	}

	if !opts.wait {
		return nil
	}
	for _, p := range launched {
		if p.Ready == nil {
			continue
		}
		if err := probe.WaitReady(ctx, *p.Ready, readyPollInterval); err != nil {
			return &exitError{code: exitNotReady, err: fmt.Errorf("%s: %w", p.Name, err)}
		}
		fmt.Fprintf(out, "%s ready.\n", p.Name)
	}
	return nil
}
