package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Protezhe/OrionSupport/pkg/lib/config"
	"github.com/Protezhe/OrionSupport/pkg/lib/logging"
	"github.com/Protezhe/OrionSupport/pkg/lib/runner"
)

const (
	envRoot   = "ORION_ROOT"
	envConfig = "ORION_CONFIG"
)

type rootOptions struct {
	root    string
	config  string
	verbose bool
}

// app is what every subcommand works with once flags are parsed.
type app struct {
	cfg    *config.Config
	runner *runner.Runner
}

func (o *rootOptions) load() (*app, error) {
	cfg, err := config.Load(o.root, o.config)
	if err != nil {
		return nil, err
	}
	r, err := runner.NewRunner(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, runner: r}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "orionctl",
		Short:         "Start and stop the Orion support services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logging.SetOutput(cmd.ErrOrStderr(), true)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.root, "root", envOr(envRoot, "."), "project directory (env "+envRoot+")")
	flags.StringVar(&opts.config, "config", os.Getenv(envConfig), "config file, default <root>/"+config.FileName+" (env "+envConfig+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log what orionctl is doing to stderr")

	root.AddCommand(newStartCmd(opts))
	root.AddCommand(newStopCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newRestartCmd(opts))

	return root
}
