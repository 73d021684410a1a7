package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/vfogsim/internal/adapters/report"
	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/scheduler"
)

func newTrialCmd(flags *globalFlags) *cobra.Command {
	sf := &simFlags{}
	var (
		index  int
		policy string
	)

	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Replay one trial and print its attempt log",
		Long: `trial re-runs a single trial of the experiment with the same seed
derivation as "run", so the attempt log matches the trial at that index.`,
		Example: `  vfogsim trial --index 3
  vfogsim trial --index 0 --policy proposed --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			sf.apply(cmd, cfg)
			cfg.Simulation.KeepAttemptLog = true
			if err := cfg.Validate(); err != nil {
				return err
			}
			if index < 0 {
				return fmt.Errorf("trial index cannot be negative, got %d", index)
			}

			var results []*engine.TrialResult
			sim := &simulation{cfg: cfg, logger: logger}
			runner, err := sim.runner()
			if err != nil {
				return err
			}
			pair, err := runner.RunTrial(index)
			if err != nil {
				return err
			}
			switch strings.ToLower(policy) {
			case "", "both", "all":
				results = append(results, pair.DMITS, pair.Proposed)
				if pair.Baseline != nil {
					results = append(results, pair.Baseline)
				}
			case strings.ToLower(scheduler.DMITSName):
				results = append(results, pair.DMITS)
			case strings.ToLower(scheduler.ProposedName):
				results = append(results, pair.Proposed)
			case strings.ToLower(scheduler.BaselineName):
				if pair.Baseline == nil {
					return fmt.Errorf("baseline policy is not enabled (use --baseline)")
				}
				results = append(results, pair.Baseline)
			default:
				return fmt.Errorf("unknown policy %q (want dmits, proposed, baseline or both)", policy)
			}

			out := cmd.OutOrStdout()
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := report.WriteAttemptLog(out, res); err != nil {
					return err
				}
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().IntVarP(&index, "index", "i", 0, "trial index to replay")
	cmd.Flags().StringVarP(&policy, "policy", "p", "both", "policy to show: dmits, proposed, baseline or both")
	return cmd
}
