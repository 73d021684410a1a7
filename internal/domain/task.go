package domain

import (
	"fmt"
	"slices"
)

// DefaultMaxRetries allows one initial attempt plus two retries.
const DefaultMaxRetries = 2

// TaskStatus defines the current state of a task.
type TaskStatus int

const (
	// Pending tasks are waiting on their dependencies.
	Pending TaskStatus = iota
	// Ready tasks have every dependency completed and wait for an assignment.
	Ready
	// Running tasks are being attempted on a node.
	Running
	// Completed tasks finished successfully.
	Completed
	// Failed tasks exhausted their retries.
	Failed
)

func (s TaskStatus) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("TaskStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name in reports.
func (s TaskStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *TaskStatus) UnmarshalText(b []byte) error {
	for _, candidate := range []TaskStatus{Pending, Ready, Running, Completed, Failed} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown task status %q", string(b))
}

// IsTerminal reports whether the status is permanent within a trial.
func IsTerminal(s TaskStatus) bool {
	return s == Completed || s == Failed
}

// Task represents a unit of work in the simulated workload.
type Task struct {
	ID           int        // Unique identifier for the task
	Duration     float64    // Execution time in seconds
	Dependencies []int      // IDs of tasks that must complete first
	Status       TaskStatus // Current status
	Retries      int        // Failed attempts so far
	MaxRetries   int        // Retries allowed after the first attempt
	Attempts     int        // Total attempts so far
	AssignedNode int        // Node of the latest attempt, -1 if never assigned
}

// NewTask creates a pending task with the default retry budget.
func NewTask(id int, duration float64, dependencies ...int) *Task {
	return &Task{
		ID:           id,
		Duration:     duration,
		Dependencies: slices.Clone(dependencies),
		Status:       Pending,
		MaxRetries:   DefaultMaxRetries,
		AssignedNode: -1,
	}
}

// Clone returns a deep copy of the task, including its runtime state.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Dependencies = slices.Clone(t.Dependencies)
	return &cp
}

// Reset returns the task to its pre-trial state.
func (t *Task) Reset() {
	t.Status = Pending
	t.Retries = 0
	t.Attempts = 0
	t.AssignedNode = -1
}

func (t *Task) String() string {
	deps := ""
	if len(t.Dependencies) > 0 {
		deps = fmt.Sprintf(", deps=%v", t.Dependencies)
	}
	return fmt.Sprintf("Task(id=%d, time=%.2fs, status=%s%s)", t.ID, t.Duration, t.Status, deps)
}

// CloneTasks deep-copies a task collection and resets every copy.
func CloneTasks(tasks []*Task) []*Task {
	out := make([]*Task, len(tasks))
	for i, t := range tasks {
		cp := t.Clone()
		cp.Reset()
		out[i] = cp
	}
	return out
}
