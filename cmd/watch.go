package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/vfogsim/internal/config"
)

const defaultDebounce = 500 * time.Millisecond

func newWatchCmd(flags *globalFlags) *cobra.Command {
	sf := &simFlags{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the experiment whenever the config, dataset or workload changes",
		Example: `  vfogsim watch -d trace.csv -w workload.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			// Config and flags are re-read before every run so edits to the
			// config file take effect.
			runOnce := func() (*config.Config, zerolog.Logger, error) {
				cfg, logger, err := loadConfig(cmd, flags)
				if err != nil {
					return nil, zerolog.Nop(), err
				}
				sf.apply(cmd, cfg)
				if err := cfg.Validate(); err != nil {
					return cfg, logger, err
				}
				sim := &simulation{cfg: cfg, logger: logger}
				_, err = sim.execute(ctx, out, nil, false)
				return cfg, logger, err
			}

			cfg, logger, err := runOnce()
			if cfg == nil {
				return err
			}
			if err != nil {
				logger.Error().Err(err).Msg("run failed, waiting for changes")
			}

			watched := watchedFiles(flags.configFile, cfg)
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			// Directories are watched rather than files so that editors which
			// replace a file on save keep triggering events.
			dirs := map[string]struct{}{}
			for path := range watched {
				dirs[filepath.Dir(path)] = struct{}{}
			}
			for dir := range dirs {
				if err := watcher.Add(dir); err != nil {
					return fmt.Errorf("watch %s: %w", dir, err)
				}
			}
			logger.Info().Int("files", len(watched)).Msg("watching for changes")

			var (
				timer  *time.Timer
				timerC <-chan time.Time
			)
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if _, ok := watched[filepath.Clean(event.Name)]; !ok {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
						continue
					}
					logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
					if timer == nil {
						timer = time.NewTimer(debounce)
					} else {
						timer.Reset(debounce)
					}
					timerC = timer.C
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					logger.Warn().Err(err).Msg("watcher error")
				case <-timerC:
					timerC = nil
					fmt.Fprintln(out)
					if _, _, err := runOnce(); err != nil {
						if ctx.Err() != nil {
							return nil
						}
						logger.Error().Err(err).Msg("run failed, waiting for changes")
					}
				}
			}
		},
	}

	sf.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before re-running")
	return cmd
}

// watchedFiles returns the cleaned paths whose changes trigger a re-run.
func watchedFiles(configFile string, cfg *config.Config) map[string]struct{} {
	files := map[string]struct{}{}
	for _, path := range []string{configFile, cfg.Simulation.Dataset, cfg.Simulation.Workload} {
		if path != "" {
			files[filepath.Clean(path)] = struct{}{}
		}
	}
	return files
}
