package main

import (
	"github.com/spf13/cobra"

	"github.com/Protezhe/OrionSupport/pkg/lib"
	"github.com/Protezhe/OrionSupport/pkg/lib/probe"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which processes are running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			statuses := make([]lib.ProcessStatus, 0, len(a.cfg.Processes))
			for _, p := range a.cfg.Processes {
				st, err := a.runner.Status(ctx, p)
				if err != nil {
					return err
				}
				if p.Ready != nil && st.State == lib.ProcessStateRunning {
					ready := probe.Check(ctx, *p.Ready) == nil
					st.Ready = &ready
				}
				statuses = append(statuses, st)
			}
			printStatusTable(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	return cmd
}
