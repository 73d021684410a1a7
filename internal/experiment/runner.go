// Package experiment runs repeated paired trials of the DMITS and Proposed
// policies over a shared node population and workload.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/uber-go/tally/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/vfogsim/internal/config"
	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/ports"
	"github.com/ZanzyTHEbar/vfogsim/internal/scheduler"
	"github.com/ZanzyTHEbar/vfogsim/internal/utils"
)

// ErrNoTrials is returned when an experiment is configured with zero trials.
var ErrNoTrials = errors.New("experiment needs at least one trial")

// Policy indices feed SeedFor, so each policy keeps its stream across runs.
const (
	dmitsIndex    = 0
	proposedIndex = 1
	baselineIndex = 2
)

// Options are the experiment parameters.
type Options struct {
	Trials         int
	Seed           uint64
	Failure        engine.FailureModel
	DMITS          scheduler.DMITSWeights
	Proposed       scheduler.ProposedParams
	Baseline       bool // Also run the mobility-only policy
	KeepAttemptLog bool
}

// OptionsFromConfig extracts experiment options from the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Trials:         cfg.Simulation.Trials,
		Seed:           cfg.Simulation.Seed,
		Failure:        cfg.FailureModel(),
		DMITS:          cfg.DMITSWeights(),
		Proposed:       cfg.ProposedParams(),
		Baseline:       cfg.Simulation.Baseline,
		KeepAttemptLog: cfg.Simulation.KeepAttemptLog,
	}
}

// Runner executes trials. Node and task templates are never mutated; every
// trial runs on fresh copies.
type Runner struct {
	nodes        []*domain.Node
	tasks        []*domain.Task
	opts         Options
	criticalPath float64

	logger    zerolog.Logger
	scope     tally.Scope
	executor  ports.TaskExecutor
	publisher domain.Publisher
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger. It is passed on to the engine.
func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithScope sets the metrics scope.
func WithScope(scope tally.Scope) RunnerOption {
	return func(r *Runner) {
		if scope != nil {
			r.scope = scope
		}
	}
}

// WithExecutor dispatches trials to an executor instead of running them in
// sequence. The caller owns the executor's lifecycle.
func WithExecutor(executor ports.TaskExecutor) RunnerOption {
	return func(r *Runner) { r.executor = executor }
}

// WithPublisher forwards engine events to an event bus.
func WithPublisher(p domain.Publisher) RunnerOption {
	return func(r *Runner) { r.publisher = p }
}

// NewRunner validates the templates and returns a runner. The workload graph is
// built once here so structural errors surface before any trial runs.
func NewRunner(nodes []*domain.Node, tasks []*domain.Task, opts Options, options ...RunnerOption) (*Runner, error) {
	if len(nodes) == 0 {
		return nil, scheduler.ErrNoNodes
	}
	if opts.Trials < 1 {
		return nil, ErrNoTrials
	}
	graph, err := domain.NewTaskGraph(domain.CloneTasks(tasks))
	if err != nil {
		return nil, fmt.Errorf("invalid workload: %w", err)
	}
	_, criticalPath := graph.CriticalPath()

	r := &Runner{
		nodes:        domain.CloneNodes(nodes),
		tasks:        domain.CloneTasks(tasks),
		opts:         opts,
		criticalPath: criticalPath,
		logger:       zerolog.Nop(),
		scope:        tally.NoopScope,
	}
	for _, o := range options {
		o(r)
	}
	if blocked := graph.Blocked(); len(blocked) > 0 {
		r.logger.Warn().Ints("tasks", blocked).Msg("tasks depend on unknown ids and will never run")
	}
	return r, nil
}

// policies returns fresh policy instances in seed-index order.
func (r *Runner) policies() []ports.Policy {
	policies := []ports.Policy{
		dmitsIndex:    scheduler.NewDMITS(r.opts.DMITS),
		proposedIndex: scheduler.NewProposed(r.opts.Proposed),
	}
	if r.opts.Baseline {
		policies = append(policies, scheduler.NewBaseline())
	}
	return policies
}

// RunTrial runs every policy once. The result depends only on the templates,
// the options and trial.
func (r *Runner) RunTrial(trial int) (*TrialPair, error) {
	policies := r.policies()
	results := make([]*engine.TrialResult, len(policies))
	for i, policy := range policies {
		res, err := r.runPolicy(trial, i, policy)
		if err != nil {
			return nil, fmt.Errorf("trial %d, policy %s: %w", trial, policy.Name(), err)
		}
		results[i] = res
	}
	pair := &TrialPair{Trial: trial, DMITS: results[dmitsIndex], Proposed: results[proposedIndex]}
	if len(results) > baselineIndex {
		pair.Baseline = results[baselineIndex]
	}
	return pair, nil
}

func (r *Runner) runPolicy(trial, index int, policy ports.Policy) (*engine.TrialResult, error) {
	graph, err := domain.NewTaskGraph(domain.CloneTasks(r.tasks))
	if err != nil {
		return nil, err
	}
	// Every policy starts from the same reliabilities, blended with the
	// configured weights, so the failure model sees identical nodes.
	nodes := domain.CloneNodes(r.nodes)
	for _, n := range nodes {
		n.ComputeReliability(r.opts.Proposed.TrustWeight, r.opts.Proposed.MobilityWeight)
	}
	seed := engine.SeedFor(r.opts.Seed, trial, index)

	eng := engine.New(r.opts.Failure,
		engine.WithLogger(r.logger),
		engine.WithScope(r.scope),
		engine.WithPublisher(r.publisher),
		engine.WithTrial(trial),
		engine.WithAttemptLog(r.opts.KeepAttemptLog),
	)
	res, err := eng.Run(graph, nodes, policy, engine.NewRandomSource(seed))
	if err != nil {
		return nil, err
	}
	res.Seed = seed
	return res, nil
}

// Run executes every trial and summarises them. Results are ordered by trial
// index regardless of the order in which trials finish.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{
		RunID:        utils.GenerateRunID(),
		StartedAt:    started.UTC(),
		Seed:         r.opts.Seed,
		Trials:       r.opts.Trials,
		Nodes:        len(r.nodes),
		Tasks:        len(r.tasks),
		CriticalPath: r.criticalPath,
	}
	log := r.logger.With().Str("run_id", report.RunID).Logger()
	log.Info().Int("trials", r.opts.Trials).Int("nodes", len(r.nodes)).Int("tasks", len(r.tasks)).Msg("experiment started")

	pairs := make([]*TrialPair, r.opts.Trials)
	var err error
	if r.executor == nil {
		err = r.runSequential(ctx, pairs)
	} else {
		err = r.runDispatched(ctx, pairs)
	}
	if err != nil {
		return nil, err
	}

	report.Results = pairs
	report.Summary = Summarize(pairs)
	report.ElapsedSeconds = time.Since(started).Seconds()
	r.scope.Counter("experiments").Inc(1)

	log.Info().
		Float64("dmits_success", report.Summary.DMITS.SuccessRate.Mean).
		Float64("proposed_success", report.Summary.Proposed.SuccessRate.Mean).
		Float64("elapsed_s", report.ElapsedSeconds).
		Msg("experiment finished")
	return report, nil
}

func (r *Runner) runSequential(ctx context.Context, pairs []*TrialPair) error {
	for i := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		pair, err := r.RunTrial(i)
		if err != nil {
			return err
		}
		pairs[i] = pair
	}
	return nil
}

// runDispatched submits each trial to the executor and waits for all of them.
// Every trial writes only its own slot of pairs.
func (r *Runner) runDispatched(ctx context.Context, pairs []*TrialPair) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range pairs {
		done := make(chan error, 1)
		r.executor.Add(domain.RunnableFunc(func() error {
			if err := gctx.Err(); err != nil {
				done <- err
				return nil
			}
			pair, err := r.RunTrial(i)
			if err == nil {
				pairs[i] = pair
			}
			done <- err
			return err
		}))
		g.Go(func() error {
			select {
			case err := <-done:
				return err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}
