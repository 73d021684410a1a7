package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/experiment"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("libsql store test skipped in short mode")
	}
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "results.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(runID string, started time.Time) *experiment.Report {
	pair := &experiment.TrialPair{
		Trial: 0,
		DMITS: &engine.TrialResult{
			Policy: "DMITS", Seed: 1 << 63, Total: 8, Completed: 6, Failed: 2,
			Attempts: 12, Retries: 4, ExecutionTime: 15, AttemptTime: 24,
		},
		Proposed: &engine.TrialResult{
			Policy: "Proposed", Seed: 7, Total: 8, Completed: 8,
			Attempts: 9, Retries: 1, ExecutionTime: 20, AttemptTime: 22,
		},
	}
	results := []*experiment.TrialPair{pair}
	return &experiment.Report{
		RunID:        runID,
		StartedAt:    started,
		Seed:         42,
		Trials:       1,
		Nodes:        4,
		Tasks:        8,
		CriticalPath: 14,
		Results:      results,
		Summary:      experiment.Summarize(results),
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveReport(ctx, testReport("run-a", older)))
	require.NoError(t, s.SaveReport(ctx, testReport("run-b", older.Add(time.Hour))))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].RunID)
	assert.Equal(t, "run-a", runs[1].RunID)
	assert.True(t, older.Equal(runs[1].StartedAt))
	assert.Equal(t, uint64(42), runs[0].Seed)
	assert.Equal(t, 75.0, runs[0].DMITSSuccess)
	assert.Equal(t, 100.0, runs[0].ProposedSuccess)
	assert.Equal(t, 2.5, runs[0].DMITSDelay)

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSaveReportRejectsDuplicateRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rep := testReport("run-dup", time.Now())
	require.NoError(t, s.SaveReport(ctx, rep))
	assert.ErrorIs(t, s.SaveReport(ctx, rep), ErrRunExists)

	rows, err := s.TrialResults(ctx, "run-dup")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "rejected save leaves no extra rows")
}

func TestTrialResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveReport(ctx, testReport("run-t", time.Now())))

	rows, err := s.TrialResults(ctx, "run-t")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, TrialRow{
		Trial: 0, Policy: "DMITS", Seed: 1 << 63, Total: 8, Completed: 6, Failed: 2,
		Attempts: 12, Retries: 4, ExecutionTime: 15, AttemptTime: 24,
	}, rows[0])
	assert.Equal(t, "Proposed", rows[1].Policy)

	none, err := s.TrialResults(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("libsql store test skipped in short mode")
	}
	path := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	s, err := Open(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(ctx, testReport("run-m", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
