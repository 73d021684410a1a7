package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/uber-go/tally/v4"

	"github.com/ZanzyTHEbar/vfogsim/internal/adapters/eventbus"
	"github.com/ZanzyTHEbar/vfogsim/internal/adapters/report"
	"github.com/ZanzyTHEbar/vfogsim/internal/adapters/store"
	"github.com/ZanzyTHEbar/vfogsim/internal/adapters/workerpool"
	"github.com/ZanzyTHEbar/vfogsim/internal/config"
	"github.com/ZanzyTHEbar/vfogsim/internal/dataset"
	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
	"github.com/ZanzyTHEbar/vfogsim/internal/experiment"
	"github.com/ZanzyTHEbar/vfogsim/internal/logging"
	"github.com/ZanzyTHEbar/vfogsim/internal/workload"
)

// statTopics are forwarded to the stats collector.
var statTopics = []string{
	domain.TaskAttempted,
	domain.TaskCompleted,
	domain.TaskFailed,
	domain.TaskRetried,
	domain.TrialFinished,
}

// simulation wires the configured inputs and adapters around an experiment run.
type simulation struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// loadNodes reads the configured dataset, or generates the sample trace in memory.
func (s *simulation) loadNodes() ([]*domain.Node, error) {
	if path := s.cfg.Simulation.Dataset; path != "" {
		nodes, err := dataset.LoadNodes(path)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("dataset", path).Int("nodes", len(nodes)).Msg("loaded fog nodes")
		return nodes, nil
	}

	var buf bytes.Buffer
	sim := s.cfg.Simulation
	if err := dataset.GenerateSample(&buf, sim.SampleVehicles, sim.SampleRecords, sim.Seed); err != nil {
		return nil, err
	}
	nodes, err := dataset.ReadNodes(&buf)
	if err != nil {
		return nil, fmt.Errorf("read generated sample: %w", err)
	}
	s.logger.Info().Int("nodes", len(nodes)).Msg("no dataset configured, using generated sample")
	return nodes, nil
}

// loadTasks reads the configured workload, or builds the reference graph.
func (s *simulation) loadTasks() ([]*domain.Task, error) {
	sim := s.cfg.Simulation
	if sim.Workload != "" {
		tasks, err := workload.Load(sim.Workload, sim.MaxRetries)
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("workload", sim.Workload).Int("tasks", len(tasks)).Msg("loaded workload")
		return tasks, nil
	}
	return workload.Reference(sim.Tasks, sim.MaxRetries), nil
}

// runner builds an experiment runner over freshly loaded inputs.
func (s *simulation) runner(options ...experiment.RunnerOption) (*experiment.Runner, error) {
	nodes, err := s.loadNodes()
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		s.logger.Debug().Stringer("node", n).Msg("fog node")
	}
	tasks, err := s.loadTasks()
	if err != nil {
		return nil, err
	}

	options = append([]experiment.RunnerOption{experiment.WithLogger(s.logger)}, options...)
	return experiment.NewRunner(nodes, tasks, experiment.OptionsFromConfig(s.cfg), options...)
}

// execute runs the experiment with event statistics, optional parallel
// dispatch and persistence, then writes the report to out.
func (s *simulation) execute(ctx context.Context, out, progressOut io.Writer, asJSON bool) (*experiment.Report, error) {
	bus := eventbus.NewSimpleEventBus(s.logger)
	defer bus.Stop()

	stats := domain.NewTaskStatsCollector()
	type subscription struct {
		topic string
		sub   eventbus.Subscriber
	}
	var (
		subs   []subscription
		drains []<-chan struct{}
	)
	for _, topic := range statTopics {
		sub, err := bus.Subscribe(topic, s.cfg.EventBus.DefaultBufferSize)
		if err != nil {
			return nil, err
		}
		subs = append(subs, subscription{topic, sub})
		drains = append(drains, stats.EventHandler(sub))
	}
	if progressOut != nil {
		perTrial := 2
		if s.cfg.Simulation.Baseline {
			perTrial = 3
		}
		total := s.cfg.Simulation.Trials * perTrial
		sub, err := bus.Subscribe(domain.TrialFinished, total)
		if err != nil {
			return nil, err
		}
		subs = append(subs, subscription{domain.TrialFinished, sub})
		drains = append(drains, report.NewProgress(progressOut, total).Consume(sub))
	}

	// Subscribers are closed once, either after a successful run or on the way out.
	closeSubs := sync.OnceFunc(func() {
		for _, sb := range subs {
			_ = bus.Unsubscribe(sb.topic, sb.sub)
			close(sb.sub)
		}
		for _, d := range drains {
			<-d
		}
	})
	defer closeSubs()

	stopStats := make(chan struct{})
	defer close(stopStats)
	if interval := s.cfg.System.StatsInterval; interval > 0 {
		stats.StartStatsMonitor(time.Duration(interval)*time.Second, s.logger, stopStats)
	}

	scope := tally.NoopScope
	closeScope := func() {}
	if s.cfg.System.MetricsEnabled {
		interval := time.Duration(s.cfg.System.StatsInterval) * time.Second
		root, closer := logging.NewRootScope("vfogsim", s.logger, interval)
		scope = root
		closeScope = sync.OnceFunc(func() {
			if err := closer.Close(); err != nil {
				s.logger.Warn().Err(err).Msg("metrics scope close failed")
			}
		})
		defer closeScope()
	}

	options := []experiment.RunnerOption{
		experiment.WithPublisher(bus),
		experiment.WithScope(scope),
	}
	if s.cfg.Simulation.Parallel {
		pool, err := s.newPool()
		if err != nil {
			return nil, err
		}
		defer pool.Stop()
		options = append(options, experiment.WithExecutor(pool))
	}

	runner, err := s.runner(options...)
	if err != nil {
		return nil, err
	}
	rep, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	closeSubs()
	stats.LogStats(s.logger)
	closeScope()
	if dropped := bus.Dropped(); dropped > 0 {
		s.logger.Debug().Int64("dropped", dropped).Msg("events dropped by slow subscribers")
	}

	if asJSON {
		err = report.WriteJSON(out, rep)
	} else {
		err = report.WriteText(out, rep)
	}
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	if path := s.cfg.Store.Path; path != "" {
		if err := s.save(ctx, path, rep); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func (s *simulation) newPool() (*workerpool.WorkerPool, error) {
	wp := s.cfg.WorkerPool
	monitor := workerpool.NewLoadMonitor(wp.CPUThreshold, wp.MemThreshold, s.logger)
	pool, err := workerpool.NewWorkerPool(wp.InitialWorkers, wp.MinWorkers, wp.MaxWorkers, wp.QueueSize, monitor, s.logger)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	if err := pool.Start(); err != nil {
		pool.Stop()
		return nil, err
	}
	return pool, nil
}

func (s *simulation) save(ctx context.Context, path string, rep *experiment.Report) error {
	db, err := store.Open(ctx, path, s.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	s.logger.Info().Str("db", path).Str("run_id", rep.RunID).Msg("report stored")
	return nil
}
