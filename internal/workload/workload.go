// Package workload builds the task sets that trials execute.
package workload

import (
	"fmt"
	"io"
	"os"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
	"github.com/ZanzyTHEbar/vfogsim/internal/utils"
)

// ExtraTaskDuration is the duration of the independent tasks appended beyond
// the reference graph.
const ExtraTaskDuration = 3.0

// referenceDeps is the eight-task fork/join graph:
//
//	1 -> 2, 3;  2, 3 -> 4;  3 -> 5;  4 -> 6;  5 -> 7;  6, 7 -> 8
var referenceDeps = [][]int{
	{},
	{1},
	{1},
	{2, 3},
	{3},
	{4},
	{5},
	{6, 7},
}

var referenceDurations = []float64{2.0, 3.0, 2.5, 4.0, 3.5, 2.0, 2.5, 3.0}

// Reference returns the first n tasks of the reference graph, extended with
// independent tasks when n exceeds it. Every task gets maxRetries.
func Reference(n, maxRetries int) []*domain.Task {
	tasks := make([]*domain.Task, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		var t *domain.Task
		if i <= len(referenceDeps) {
			t = domain.NewTask(i, referenceDurations[i-1], referenceDeps[i-1]...)
		} else {
			t = domain.NewTask(i, ExtraTaskDuration)
		}
		t.MaxRetries = maxRetries
		tasks = append(tasks, t)
	}
	return tasks
}

// File is the on-disk workload format.
type File struct {
	Tasks []TaskSpec `json:"tasks"`
}

// TaskSpec describes one task in a workload file.
type TaskSpec struct {
	ID           int     `json:"id"`
	Duration     float64 `json:"duration"`
	Dependencies []int   `json:"dependencies,omitempty"`
	MaxRetries   *int    `json:"maxRetries,omitempty"`
}

// Load reads a workload file. Tasks without an explicit retry budget get maxRetries.
func Load(path string, maxRetries int) ([]*domain.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workload: %w", err)
	}
	defer f.Close()

	tasks, err := Read(f, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("read workload %s: %w", path, err)
	}
	return tasks, nil
}

// Read decodes a workload and validates task fields. Graph-level checks
// (duplicates, cycles) are left to domain.NewTaskGraph.
func Read(r io.Reader, maxRetries int) ([]*domain.Task, error) {
	var file File
	if err := json.UnmarshalRead(r, &file, json.RejectUnknownMembers(true)); err != nil {
		return nil, fmt.Errorf("decode workload: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(file.Tasks))
	for _, spec := range file.Tasks {
		if spec.Duration <= 0 {
			return nil, fmt.Errorf("task %d: duration must be positive, got %v", spec.ID, spec.Duration)
		}
		t := domain.NewTask(spec.ID, spec.Duration, spec.Dependencies...)
		t.MaxRetries = maxRetries
		if spec.MaxRetries != nil {
			if *spec.MaxRetries < 0 {
				return nil, fmt.Errorf("task %d: negative retry budget %d", spec.ID, *spec.MaxRetries)
			}
			t.MaxRetries = *spec.MaxRetries
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Write encodes tasks in the workload file format.
func Write(w io.Writer, tasks []*domain.Task) error {
	file := File{Tasks: make([]TaskSpec, 0, len(tasks))}
	for _, t := range tasks {
		retries := t.MaxRetries
		file.Tasks = append(file.Tasks, TaskSpec{
			ID:           t.ID,
			Duration:     t.Duration,
			Dependencies: t.Dependencies,
			MaxRetries:   &retries,
		})
	}
	return json.MarshalWrite(w, file, jsontext.WithIndent("  "))
}

// Save writes tasks to path, creating parent directories as needed.
func Save(path string, tasks []*domain.Task) error {
	if err := utils.EnsureParentDir(path); err != nil {
		return fmt.Errorf("create workload directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workload: %w", err)
	}
	if err := Write(f, tasks); err != nil {
		f.Close()
		return fmt.Errorf("write workload %s: %w", path, err)
	}
	return f.Close()
}
