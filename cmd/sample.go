package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/vfogsim/internal/dataset"
	"github.com/ZanzyTHEbar/vfogsim/internal/workload"
)

func newSampleCmd(flags *globalFlags) *cobra.Command {
	var (
		out          string
		workloadOut  string
		vehicles     int
		records      int
		seed         uint64
		workloadSize int
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic mobility trace (and optionally a workload file)",
		Example: `  vfogsim sample --out trace.csv
  vfogsim sample --out trace.csv --vehicles 8 --records 200 --workload-out workload.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if !fl.Changed("vehicles") {
				vehicles = cfg.Simulation.SampleVehicles
			}
			if !fl.Changed("records") {
				records = cfg.Simulation.SampleRecords
			}
			if !fl.Changed("seed") {
				seed = cfg.Simulation.Seed
			}
			if !fl.Changed("tasks") {
				workloadSize = cfg.Simulation.Tasks
			}
			if vehicles < 1 || records < 1 {
				return fmt.Errorf("vehicles and records must be at least 1")
			}

			if err := dataset.WriteSample(out, vehicles, records, seed); err != nil {
				return err
			}
			logger.Info().Str("path", out).Int("vehicles", vehicles).Int("records", records).Msg("sample trace written")

			if workloadOut == "" {
				return nil
			}
			if err := workload.Save(workloadOut, workload.Reference(workloadSize, cfg.Simulation.MaxRetries)); err != nil {
				return err
			}
			logger.Info().Str("path", workloadOut).Int("tasks", workloadSize).Msg("workload written")
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&out, "out", "o", "vehicle_data.csv", "trace output path")
	fl.StringVar(&workloadOut, "workload-out", "", "also write the reference workload to this path")
	fl.IntVar(&vehicles, "vehicles", 0, "number of vehicles (default from config)")
	fl.IntVar(&records, "records", 0, "records per vehicle (default from config)")
	fl.Uint64Var(&seed, "seed", 0, "generator seed (default from config)")
	fl.IntVar(&workloadSize, "tasks", 0, "reference workload size (default from config)")
	return cmd
}
