package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/vfogsim/internal/config"
	"github.com/ZanzyTHEbar/vfogsim/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
	pretty     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "vfogsim",
		Short: "Compare DMITS and trust-adaptive scheduling on simulated vehicular fog nodes",
		Long: `vfogsim simulates the execution of a task DAG over mobile fog nodes whose
reliability depends on their mobility and on a trust score learned from task
outcomes. Each trial runs the static DMITS utility scheduler and the
trust-adaptive scheduler against the same workload and failure model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "config.json", "path to configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	pf.BoolVar(&flags.pretty, "pretty", true, "human-readable console logs")

	root.AddCommand(
		newRunCmd(flags),
		newTrialCmd(flags),
		newSampleCmd(flags),
		newWatchCmd(flags),
		newConfigCmd(flags),
		newHistoryCmd(flags),
	)
	return root
}

// loadConfig resolves the effective configuration: defaults, file, environment,
// then command-line flags, and builds the logger from it.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if flags.logLevel != "" {
		cfg.System.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.System.Pretty = flags.pretty
	}

	logger := logging.New(cfg.System.LogLevel, cfg.System.Pretty, cmd.ErrOrStderr())
	logging.SetGlobal(logger)
	return cfg, logger, nil
}
