package workload

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
)

func TestReferenceWorkload(t *testing.T) {
	tasks := Reference(8, 2)
	require.Len(t, tasks, 8)

	g, err := domain.NewTaskGraph(tasks)
	require.NoError(t, err)
	path, length := g.CriticalPath()
	assert.Equal(t, []int{1, 2, 4, 6, 8}, path)
	assert.InDelta(t, 14.0, length, 1e-12)

	assert.Equal(t, []int{6, 7}, tasks[7].Dependencies)
	for _, task := range tasks {
		assert.Equal(t, 2, task.MaxRetries)
		assert.Equal(t, domain.Pending, task.Status)
	}
}

func TestReferenceWorkloadSizes(t *testing.T) {
	assert.Empty(t, Reference(0, 2))
	assert.Empty(t, Reference(-3, 2))

	small := Reference(3, 1)
	assert.Equal(t, []int{1}, small[2].Dependencies)

	large := Reference(10, 0)
	require.Len(t, large, 10)
	assert.Empty(t, large[9].Dependencies)
	assert.Equal(t, ExtraTaskDuration, large[9].Duration)
	assert.Equal(t, 10, large[9].ID)
}

func TestReadWorkload(t *testing.T) {
	input := `{
  "tasks": [
    {"id": 1, "duration": 2},
    {"id": 2, "duration": 1.5, "dependencies": [1], "maxRetries": 0}
  ]
}`
	tasks, err := Read(strings.NewReader(input), 3)
	require.NoError(t, err)

	want := []*domain.Task{
		{ID: 1, Duration: 2, MaxRetries: 3, AssignedNode: -1},
		{ID: 2, Duration: 1.5, Dependencies: []int{1}, MaxRetries: 0, AssignedNode: -1},
	}
	if diff := cmp.Diff(want, tasks); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestReadWorkloadRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"unknown field":    `{"tasks": [{"id": 1, "duration": 1, "priority": 3}]}`,
		"negative time":    `{"tasks": [{"id": 1, "duration": -1}]}`,
		"zero time":        `{"tasks": [{"id": 1, "duration": 0}]}`,
		"missing time":     `{"tasks": [{"id": 1}]}`,
		"negative retries": `{"tasks": [{"id": 1, "duration": 1, "maxRetries": -2}]}`,
		"not json":         `tasks: []`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input), 2)
			assert.Error(t, err)
		})
	}
}

func TestWorkloadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Reference(8, 2)))

	tasks, err := Read(&buf, 0)
	require.NoError(t, err)
	if diff := cmp.Diff(Reference(8, 2), tasks, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "workload.json")
	require.NoError(t, Save(path, Reference(4, 1)))

	tasks, err := Load(path, 5)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, 1, tasks[0].MaxRetries)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), 2)
	assert.ErrorContains(t, err, "open workload")
}
