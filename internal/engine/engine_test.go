package engine

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/mock/gomock"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
	"github.com/ZanzyTHEbar/vfogsim/internal/ports/mocks"
	"github.com/ZanzyTHEbar/vfogsim/internal/scheduler"
)

// fixedSource always returns the same draw.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// sequenceSource replays draws in order and repeats the last one.
type sequenceSource struct {
	draws []float64
	i     int
}

func (s *sequenceSource) Float64() float64 {
	d := s.draws[min(s.i, len(s.draws)-1)]
	s.i++
	return d
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}

// reliableNode builds a node whose reliability under equal weights is r.
func reliableNode(id int, r float64) *domain.Node {
	return domain.NewNode(id, domain.NodeAttributes{Trust: r, Mobility: r, SocialTrust: r, Centrality: r})
}

func mustGraph(t *testing.T, tasks ...*domain.Task) *domain.TaskGraph {
	t.Helper()
	g, err := domain.NewTaskGraph(tasks)
	require.NoError(t, err)
	return g
}

func TestProposedPicksMostReliableNodeEndToEnd(t *testing.T) {
	nodes := []*domain.Node{reliableNode(1, 0.1), reliableNode(2, 0.5), reliableNode(3, 0.9)}
	graph := mustGraph(t, domain.NewTask(1, 2.0))

	res, err := New(DefaultFailureModel()).Run(graph, nodes, scheduler.NewProposed(scheduler.DefaultProposedParams()), fixedSource(0.99))
	require.NoError(t, err)

	require.Len(t, res.Log, 1)
	assert.Equal(t, 3, res.Log[0].NodeID)
	assert.True(t, res.Log[0].Success)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, domain.Completed, res.TaskStatus[1])
	assert.InDelta(t, 2.0, res.ExecutionTime, 1e-12)
	assert.Equal(t, 100.0, res.SuccessRate())

	// The success raised the chosen node's trust.
	assert.InDelta(t, 0.95, nodes[2].Trust, 1e-12)
}

func TestRetryExhaustion(t *testing.T) {
	task := domain.NewTask(1, 1.5)
	require.Equal(t, 2, task.MaxRetries)
	graph := mustGraph(t, task)
	scope := tally.NewTestScope("", nil)

	res, err := New(DefaultFailureModel(), WithScope(scope)).
		Run(graph, []*domain.Node{reliableNode(1, 1.0)}, scheduler.NewDMITS(scheduler.DefaultDMITSWeights()), fixedSource(0))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, task.Attempts)
	assert.Equal(t, 3, task.Retries)
	assert.Equal(t, 2, res.Retries)
	assert.Equal(t, 3, res.Passes)
	assert.Equal(t, domain.Failed, task.Status)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.ExecutionTime)
	assert.InDelta(t, 4.5, res.AttemptTime, 1e-12)

	statuses := make([]domain.TaskStatus, len(res.Log))
	for i, a := range res.Log {
		statuses[i] = a.Status
	}
	assert.Equal(t, []domain.TaskStatus{domain.Ready, domain.Ready, domain.Failed}, statuses)

	counters := scope.Snapshot().Counters()
	require.Contains(t, counters, "attempts+policy=DMITS")
	assert.Equal(t, int64(3), counters["attempts+policy=DMITS"].Value())
	assert.Equal(t, int64(2), counters["retries+policy=DMITS"].Value())
	assert.Equal(t, int64(1), counters["failed+policy=DMITS"].Value())
	assert.Equal(t, int64(1), counters["trials+policy=DMITS"].Value())
}

func TestZeroRetriesFailsOnFirstAttempt(t *testing.T) {
	task := domain.NewTask(1, 1)
	task.MaxRetries = 0
	res, err := New(DefaultFailureModel()).
		Run(mustGraph(t, task), []*domain.Node{reliableNode(1, 0.5)}, scheduler.NewDMITS(scheduler.DefaultDMITSWeights()), fixedSource(0))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, domain.Failed, task.Status)
}

func TestFailedRetryRunsInNextPass(t *testing.T) {
	graph := mustGraph(t, domain.NewTask(2, 3.0), domain.NewTask(1, 2.0))
	rng := &sequenceSource{draws: []float64{0, 0.99}}

	res, err := New(DefaultFailureModel()).
		Run(graph, []*domain.Node{reliableNode(1, 0.9)}, scheduler.NewProposed(scheduler.DefaultProposedParams()), rng)
	require.NoError(t, err)

	type step struct {
		Pass, Task int
		Success    bool
	}
	got := make([]step, len(res.Log))
	for i, a := range res.Log {
		got[i] = step{a.Pass, a.TaskID, a.Success}
	}
	want := []step{{1, 1, false}, {1, 2, true}, {2, 1, true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("attempt order mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 2, res.Passes)
	assert.Equal(t, 1, res.Retries)
	assert.Equal(t, 2, res.Completed)
	assert.InDelta(t, 5.0, res.ExecutionTime, 1e-12)
	assert.InDelta(t, 7.0, res.AttemptTime, 1e-12)
	assert.InDelta(t, 2.5, res.AverageDelay(), 1e-12)
	assert.Equal(t, NodeTally{Successes: 2, Failures: 1}, res.Nodes[1])
}

func TestDependentsWaitForCompletion(t *testing.T) {
	graph := mustGraph(t, domain.NewTask(3, 1, 1, 2), domain.NewTask(2, 1, 1), domain.NewTask(1, 1))
	res, err := New(DefaultFailureModel()).
		Run(graph, []*domain.Node{reliableNode(1, 0.9)}, scheduler.NewDMITS(scheduler.DefaultDMITSWeights()), fixedSource(0.99))
	require.NoError(t, err)

	order := make([]int, len(res.Log))
	for i, a := range res.Log {
		order[i] = a.TaskID
		assert.Equal(t, i+1, a.Pass)
	}
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 3, res.Completed)
}

func TestBlockedAndUnreachedTasks(t *testing.T) {
	root := domain.NewTask(1, 1)
	root.MaxRetries = 0
	graph := mustGraph(t, root, domain.NewTask(2, 1, 1), domain.NewTask(3, 1, 99), domain.NewTask(4, 1))
	rng := &sequenceSource{draws: []float64{0, 0.99}}

	res, err := New(DefaultFailureModel()).
		Run(graph, []*domain.Node{reliableNode(1, 0.9)}, scheduler.NewDMITS(scheduler.DefaultDMITSWeights()), rng)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Blocked)
	assert.Equal(t, 1, res.Unreached)
	assert.Equal(t, domain.Pending, res.TaskStatus[2])
	assert.Equal(t, domain.Pending, res.TaskStatus[3])
	assert.Equal(t, 25.0, res.SuccessRate())
}

func TestRunIsDeterministic(t *testing.T) {
	tasks := []*domain.Task{
		domain.NewTask(1, 2.0),
		domain.NewTask(2, 3.0, 1),
		domain.NewTask(3, 2.5, 1),
		domain.NewTask(4, 4.0, 2, 3),
		domain.NewTask(5, 3.5, 3),
	}
	nodes := []*domain.Node{reliableNode(1, 0.2), reliableNode(2, 0.35), reliableNode(3, 0.5)}

	run := func() *TrialResult {
		graph := mustGraph(t, domain.CloneTasks(tasks)...)
		res, err := New(DefaultFailureModel()).
			Run(graph, domain.CloneNodes(nodes), scheduler.NewProposed(scheduler.DefaultProposedParams()), NewRandomSource(SeedFor(42, 3, 1)))
		require.NoError(t, err)
		return res
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.ExecutionTime, second.ExecutionTime)
	assert.Equal(t, 0.2, nodes[0].Trust, "templates must not be mutated")
}

func TestRunCallsPolicyForEveryAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	policy := mocks.NewMockPolicy(ctrl)

	n := reliableNode(7, 0.9)
	task := domain.NewTask(1, 1)
	policy.EXPECT().Name().Return("mock").AnyTimes()
	gomock.InOrder(
		policy.EXPECT().SelectNode(task, gomock.Any()).Return(n, nil),
		policy.EXPECT().OnTaskResult(n, task, false),
		policy.EXPECT().SelectNode(task, gomock.Any()).Return(n, nil),
		policy.EXPECT().OnTaskResult(n, task, true),
	)

	pub := &recordingPublisher{}
	res, err := New(DefaultFailureModel(), WithPublisher(pub), WithTrial(4)).
		Run(mustGraph(t, task), []*domain.Node{n}, policy, &sequenceSource{draws: []float64{0, 0.99}})
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Policy)
	assert.Equal(t, 4, res.Trial)

	assert.Equal(t, []string{
		domain.TrialStarted,
		domain.TaskAttempted, domain.TaskRetried,
		domain.TaskAttempted, domain.TaskCompleted,
		domain.TrialFinished,
	}, pub.topics())

	last := pub.events[len(pub.events)-1].Data.(domain.TrialEvent)
	assert.Equal(t, domain.TrialEvent{Policy: "mock", Trial: 4, Total: 1, Completed: 1}, last)
}

func TestRunPropagatesSelectionErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	policy := mocks.NewMockPolicy(ctrl)
	policy.EXPECT().Name().Return("mock").AnyTimes()
	policy.EXPECT().SelectNode(gomock.Any(), gomock.Any()).Return(nil, scheduler.ErrNoNodes)

	task := domain.NewTask(1, 1)
	_, err := New(DefaultFailureModel()).Run(mustGraph(t, task), nil, policy, fixedSource(0.5))
	require.ErrorIs(t, err, scheduler.ErrNoNodes)
	assert.ErrorContains(t, err, "select node for task 1")
	assert.Equal(t, domain.Pending, task.Status, "a task without a node never starts running")
	assert.Zero(t, task.Attempts)
}

func TestTaskRunsOnlyAfterNodeIsSelected(t *testing.T) {
	ctrl := gomock.NewController(t)
	policy := mocks.NewMockPolicy(ctrl)

	n := reliableNode(1, 0.9)
	task := domain.NewTask(1, 1)
	policy.EXPECT().Name().Return("mock").AnyTimes()
	policy.EXPECT().SelectNode(task, gomock.Any()).
		DoAndReturn(func(task *domain.Task, _ []*domain.Node) (*domain.Node, error) {
			assert.NotEqual(t, domain.Running, task.Status)
			return n, nil
		})
	policy.EXPECT().OnTaskResult(n, task, true)

	res, err := New(DefaultFailureModel()).Run(mustGraph(t, task), []*domain.Node{n}, policy, fixedSource(0.99))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Completed)
}

func TestRunRejectsMissingCollaborators(t *testing.T) {
	e := New(DefaultFailureModel())
	graph := mustGraph(t, domain.NewTask(1, 1))
	policy := scheduler.NewDMITS(scheduler.DefaultDMITSWeights())

	_, err := e.Run(nil, nil, policy, fixedSource(0))
	assert.Error(t, err)
	_, err = e.Run(graph, nil, nil, fixedSource(0))
	assert.Error(t, err)
	_, err = e.Run(graph, nil, policy, nil)
	assert.Error(t, err)
}

func TestAttemptLogCanBeDropped(t *testing.T) {
	res, err := New(DefaultFailureModel(), WithAttemptLog(false)).
		Run(mustGraph(t, domain.NewTask(1, 1)), []*domain.Node{reliableNode(1, 0.9)}, scheduler.NewDMITS(scheduler.DefaultDMITSWeights()), fixedSource(0.99))
	require.NoError(t, err)
	assert.Nil(t, res.Log)
	assert.Equal(t, 1, res.Attempts)
}

func TestEmptyGraph(t *testing.T) {
	res, err := New(DefaultFailureModel()).
		Run(mustGraph(t), nil, scheduler.NewDMITS(scheduler.DefaultDMITSWeights()), fixedSource(0))
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Passes)
	assert.Zero(t, res.SuccessRate())
}
