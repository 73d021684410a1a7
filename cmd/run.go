package main

import (
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/vfogsim/internal/config"
)

// simFlags override simulation settings from the command line.
type simFlags struct {
	dataset  string
	workload string
	tasks    int
	trials   int
	seed     uint64
	retries  int
	db       string
	parallel bool
	baseline bool
}

func (f *simFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.dataset, "dataset", "d", "", "CSV mobility trace (default: generated sample)")
	fl.StringVarP(&f.workload, "workload", "w", "", "JSON workload file (default: reference graph)")
	fl.IntVar(&f.tasks, "tasks", 0, "size of the reference workload")
	fl.IntVarP(&f.trials, "trials", "n", 0, "number of paired trials")
	fl.Uint64Var(&f.seed, "seed", 0, "base random seed")
	fl.IntVar(&f.retries, "max-retries", 0, "retries per task after the first attempt")
	fl.StringVar(&f.db, "db", "", "result database path (empty disables persistence)")
	fl.BoolVar(&f.parallel, "parallel", false, "dispatch trials to the worker pool")
	fl.BoolVar(&f.baseline, "baseline", false, "also run the mobility-only baseline policy")
}

// apply copies the flags the user set onto cfg.
func (f *simFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("dataset") {
		cfg.Simulation.Dataset = f.dataset
	}
	if fl.Changed("workload") {
		cfg.Simulation.Workload = f.workload
	}
	if fl.Changed("tasks") {
		cfg.Simulation.Tasks = f.tasks
	}
	if fl.Changed("trials") {
		cfg.Simulation.Trials = f.trials
	}
	if fl.Changed("seed") {
		cfg.Simulation.Seed = f.seed
	}
	if fl.Changed("max-retries") {
		cfg.Simulation.MaxRetries = f.retries
	}
	if fl.Changed("db") {
		cfg.Store.Path = f.db
	}
	if fl.Changed("parallel") {
		cfg.Simulation.Parallel = f.parallel
	}
	if fl.Changed("baseline") {
		cfg.Simulation.Baseline = f.baseline
	}
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	sf := &simFlags{}
	var (
		asJSON   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the paired DMITS vs Proposed experiment",
		Example: `  vfogsim run --trials 10 --seed 42
  vfogsim run -d trace.csv -w workload.json --json > report.json
  vfogsim run --db results.db --parallel`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			sf.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			sim := &simulation{cfg: cfg, logger: logger}
			progressOut := cmd.ErrOrStderr()
			if !progress {
				progressOut = nil
			}
			_, err = sim.execute(cmd.Context(), cmd.OutOrStdout(), progressOut, asJSON)
			return err
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "write the report as JSON")
	cmd.Flags().BoolVar(&progress, "progress", false, "show a trial progress bar on stderr")
	return cmd
}
