package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/vfogsim/internal/adapters/store"
	"github.com/ZanzyTHEbar/vfogsim/internal/utils"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		db    string
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored experiment runs",
		Example: `  vfogsim history --db results.db
  vfogsim history --db results.db --run 01920f3e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.Store.Path = db
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("no result database configured (use --db or VFOG_STORE_PATH)")
			}

			ctx := cmd.Context()
			st, err := store.Open(ctx, cfg.Store.Path, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			if runID != "" {
				rows, err := st.TrialResults(ctx, runID)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					return fmt.Errorf("run %s not found", runID)
				}
				fmt.Fprintln(tw, "Trial\tPolicy\tSeed\tCompleted\tFailed\tBlocked\tAttempts\tRetries\tExec time\t")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d/%d\t%d\t%d\t%d\t%d\t%s\t\n",
						r.Trial, r.Policy, r.Seed, r.Completed, r.Total, r.Failed, r.Blocked,
						r.Attempts, r.Retries, utils.FormatSeconds(r.ExecutionTime))
				}
				return tw.Flush()
			}

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "Run\tStarted\tTrials\tNodes\tTasks\tDMITS\tProposed\tDelay (D/P)\tElapsed\t")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.1f%%\t%.1f%%\t%.2f/%.2f\t%s\t\n",
					r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Trials, r.Nodes, r.Tasks,
					r.DMITSSuccess, r.ProposedSuccess, r.DMITSDelay, r.ProposedDelay,
					utils.FormatSeconds(r.ElapsedSeconds))
			}
			return tw.Flush()
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&db, "db", "", "result database path (default from config)")
	fl.IntVarP(&limit, "limit", "l", 20, "maximum runs to list, 0 for all")
	fl.StringVar(&runID, "run", "", "show the per-trial results of one run")
	return cmd
}
