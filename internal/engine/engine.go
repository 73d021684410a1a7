// Package engine runs one scheduling trial: it drives a task graph to
// quiescence, asking a policy for a node per attempt and drawing the attempt's
// outcome from the failure model.
package engine

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/uber-go/tally/v4"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
	"github.com/ZanzyTHEbar/vfogsim/internal/ports"
)

// Engine executes trials. It holds no per-trial state and may be reused
// sequentially; concurrent trials need one Engine each only when they use
// different options.
type Engine struct {
	failure   FailureModel
	logger    zerolog.Logger
	scope     tally.Scope
	publisher domain.Publisher
	trial     int
	keepLog   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithScope sets the metrics scope. Counters are tagged with the policy name.
func WithScope(scope tally.Scope) Option {
	return func(e *Engine) {
		if scope != nil {
			e.scope = scope
		}
	}
}

// WithPublisher publishes task and trial events to an event bus.
func WithPublisher(p domain.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithTrial stamps results and events with a trial index.
func WithTrial(trial int) Option {
	return func(e *Engine) { e.trial = trial }
}

// WithAttemptLog controls whether the per-attempt log is kept in results.
func WithAttemptLog(keep bool) Option {
	return func(e *Engine) { e.keepLog = keep }
}

// New creates an engine with the given failure model.
func New(failure FailureModel, opts ...Option) *Engine {
	e := &Engine{
		failure: failure,
		logger:  zerolog.Nop(),
		scope:   tally.NoopScope,
		keepLog: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FailureModel returns the engine's failure curve.
func (e *Engine) FailureModel() FailureModel { return e.failure }

// Run executes every reachable task of graph on nodes under policy.
//
// Each pass snapshots the ready set and attempts every ready task once, in
// ascending id order. A failed attempt with retries left returns the task to
// READY for the next pass. The trial ends when no task is ready. Tasks behind
// a failed or unresolvable dependency stay PENDING.
//
// The graph's tasks and the nodes are mutated; callers pass fresh copies per trial.
func (e *Engine) Run(graph *domain.TaskGraph, nodes []*domain.Node, policy ports.Policy, rng RandomSource) (*TrialResult, error) {
	if graph == nil {
		return nil, errors.New("nil task graph")
	}
	if policy == nil {
		return nil, errors.New("nil policy")
	}
	if rng == nil {
		return nil, errors.New("nil random source")
	}

	name := policy.Name()
	log := e.logger.With().Str("policy", name).Int("trial", e.trial).Logger()
	m := newRunMetrics(e.scope.Tagged(map[string]string{"policy": name}))
	res := newTrialResult(name, e.trial, graph.Len())

	e.publish(domain.TrialStarted, domain.TrialEvent{Policy: name, Trial: e.trial, Total: graph.Len()})
	log.Debug().Int("tasks", graph.Len()).Int("nodes", len(nodes)).Msg("trial started")

	for {
		ready := graph.ReadyTasks()
		if len(ready) == 0 {
			break
		}
		res.Passes++
		slices.SortFunc(ready, func(a, b *domain.Task) int { return cmp.Compare(a.ID, b.ID) })

		for _, task := range ready {
			if err := e.attempt(task, nodes, policy, rng, res, m, log); err != nil {
				return nil, err
			}
		}
	}

	e.finish(graph, res)
	m.trials.Inc(1)
	if !e.keepLog {
		res.Log = nil
	}

	e.publish(domain.TrialFinished, domain.TrialEvent{
		Policy:    name,
		Trial:     e.trial,
		Total:     res.Total,
		Completed: res.Completed,
		Failed:    res.Failed,
		Blocked:   res.Blocked,
	})
	log.Debug().
		Int("completed", res.Completed).
		Int("failed", res.Failed).
		Int("blocked", res.Blocked).
		Int("attempts", res.Attempts).
		Float64("execution_time", res.ExecutionTime).
		Msg("trial finished")

	return res, nil
}

func (e *Engine) attempt(task *domain.Task, nodes []*domain.Node, policy ports.Policy, rng RandomSource, res *TrialResult, m *runMetrics, log zerolog.Logger) error {
	node, err := policy.SelectNode(task, nodes)
	if err != nil {
		return fmt.Errorf("select node for task %d: %w", task.ID, err)
	}
	if node == nil {
		return fmt.Errorf("select node for task %d: policy %s returned no node", task.ID, policy.Name())
	}

	if task.Status == domain.Pending {
		if err := task.Transition(domain.Ready); err != nil {
			return err
		}
	}
	if err := task.Transition(domain.Running); err != nil {
		return err
	}

	task.AssignedNode = node.ID
	task.Attempts++
	reliability := node.Reliability
	pFail := e.failure.Probability(reliability)
	draw := rng.Float64()
	success := draw >= pFail

	res.AttemptTime += task.Duration
	m.attempts.Inc(1)

	topic := domain.TaskCompleted
	if success {
		if err := task.Transition(domain.Completed); err != nil {
			return err
		}
		res.ExecutionTime += task.Duration
		m.completed.Inc(1)
	} else {
		task.Retries++
		if task.Retries <= task.MaxRetries {
			topic = domain.TaskRetried
			res.Retries++
			m.retries.Inc(1)
			err = task.Transition(domain.Ready)
		} else {
			topic = domain.TaskFailed
			m.failed.Inc(1)
			err = task.Transition(domain.Failed)
		}
		if err != nil {
			return err
		}
	}

	policy.OnTaskResult(node, task, success)

	res.record(Attempt{
		Pass:               res.Passes,
		TaskID:             task.ID,
		NodeID:             node.ID,
		Attempt:            task.Attempts,
		Reliability:        reliability,
		FailureProbability: pFail,
		Draw:               draw,
		Success:            success,
		Status:             task.Status,
	})

	ev := domain.TaskEvent{
		Policy:      policy.Name(),
		Trial:       e.trial,
		TaskID:      task.ID,
		NodeID:      node.ID,
		Attempt:     task.Attempts,
		Reliability: reliability,
		Status:      task.Status,
		Duration:    task.Duration,
	}
	e.publish(domain.TaskAttempted, ev)
	e.publish(topic, ev)

	log.Trace().
		Int("task", task.ID).
		Int("node", node.ID).
		Float64("reliability", reliability).
		Float64("p_fail", pFail).
		Float64("draw", draw).
		Stringer("status", task.Status).
		Msg("attempt")
	return nil
}

func (e *Engine) finish(graph *domain.TaskGraph, res *TrialResult) {
	blocked := make(map[int]struct{})
	for _, id := range graph.Blocked() {
		blocked[id] = struct{}{}
	}

	for _, task := range graph.Tasks() {
		res.TaskStatus[task.ID] = task.Status
		switch task.Status {
		case domain.Completed:
			res.Completed++
		case domain.Failed:
			res.Failed++
		default:
			if _, ok := blocked[task.ID]; ok {
				res.Blocked++
			} else {
				res.Unreached++
			}
		}
	}
}

func (e *Engine) publish(topic string, data any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(domain.NewEvent(topic, data))
}

type runMetrics struct {
	attempts  tally.Counter
	completed tally.Counter
	failed    tally.Counter
	retries   tally.Counter
	trials    tally.Counter
}

func newRunMetrics(scope tally.Scope) *runMetrics {
	return &runMetrics{
		attempts:  scope.Counter("attempts"),
		completed: scope.Counter("completed"),
		failed:    scope.Counter("failed"),
		retries:   scope.Counter("retries"),
		trials:    scope.Counter("trials"),
	}
}
