package engine

import (
	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
	"github.com/ZanzyTHEbar/vfogsim/internal/metrics"
)

// Attempt is one entry of the trial's attempt log.
type Attempt struct {
	Pass               int               `json:"pass"`
	TaskID             int               `json:"taskId"`
	NodeID             int               `json:"nodeId"`
	Attempt            int               `json:"attempt"`
	Reliability        float64           `json:"reliability"`
	FailureProbability float64           `json:"failureProbability"`
	Draw               float64           `json:"draw"`
	Success            bool              `json:"success"`
	Status             domain.TaskStatus `json:"status"` // Task status after the attempt
}

// NodeTally counts attempts executed on one node.
type NodeTally struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// TrialResult summarises one policy's run over one workload.
type TrialResult struct {
	Policy string `json:"policy"`
	Trial  int    `json:"trial"`
	Seed   uint64 `json:"seed"`

	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`   // Tasks citing dependencies outside the graph
	Unreached int `json:"unreached"` // Tasks left pending behind a failed or blocked dependency

	Attempts int `json:"attempts"`
	Retries  int `json:"retries"`
	Passes   int `json:"passes"`

	// ExecutionTime sums the durations of completed tasks.
	ExecutionTime float64 `json:"executionTime"`
	// AttemptTime sums the durations of every attempt, failed ones included.
	AttemptTime float64 `json:"attemptTime"`

	TaskStatus map[int]domain.TaskStatus `json:"taskStatus"`
	Nodes      map[int]NodeTally         `json:"nodes"`
	Log        []Attempt                 `json:"log,omitempty"`
}

func newTrialResult(policy string, trial, total int) *TrialResult {
	return &TrialResult{
		Policy:     policy,
		Trial:      trial,
		Total:      total,
		TaskStatus: make(map[int]domain.TaskStatus, total),
		Nodes:      make(map[int]NodeTally),
	}
}

func (r *TrialResult) record(a Attempt) {
	r.Attempts++
	t := r.Nodes[a.NodeID]
	if a.Success {
		t.Successes++
	} else {
		t.Failures++
	}
	r.Nodes[a.NodeID] = t
	r.Log = append(r.Log, a)
}

// SuccessRate is the percentage of tasks that completed.
func (r *TrialResult) SuccessRate() float64 {
	return metrics.SuccessRate(r.Completed, r.Total)
}

// AverageDelay is the mean duration of completed tasks.
func (r *TrialResult) AverageDelay() float64 {
	return metrics.AverageDelay(r.ExecutionTime, r.Completed)
}
