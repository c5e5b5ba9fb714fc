package main

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Protezhe/OrionSupport/pkg/lib/runner"
)

func newRestartCmd(root *rootOptions) *cobra.Command {
	opts := &startOptions{}
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop every process, then start them again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			// Nothing running is fine here.
			runStop(cmd.Context(), a, io.Discard, cmd.ErrOrStderr(), runner.StopOptions{Wait: wait})
			return runStart(cmd.Context(), a, cmd.OutOrStdout(), root.verbose, opts)
		},
	}
	cmd.Flags().DurationVar(&wait, "stop-timeout", 10*time.Second, "how long to wait for processes to exit before killing them")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "wait until processes with a readiness probe are ready")
	return cmd
}
