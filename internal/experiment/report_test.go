package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/scheduler"
)

func result(policy string, completed, total int, execTime float64) *engine.TrialResult {
	return &engine.TrialResult{
		Policy:        policy,
		Total:         total,
		Completed:     completed,
		Failed:        total - completed,
		Attempts:      total + 1,
		ExecutionTime: execTime,
	}
}

func TestSummarize(t *testing.T) {
	pairs := []*TrialPair{
		{Trial: 0, DMITS: result(scheduler.DMITSName, 6, 8, 18), Proposed: result(scheduler.ProposedName, 8, 8, 20)},
		{Trial: 1, DMITS: result(scheduler.DMITSName, 4, 8, 12), Proposed: result(scheduler.ProposedName, 7, 8, 17.5)},
	}
	s := Summarize(pairs)

	assert.Equal(t, scheduler.DMITSName, s.DMITS.Policy)
	assert.Equal(t, scheduler.ProposedName, s.Proposed.Policy)
	assert.InDelta(t, 62.5, s.DMITS.SuccessRate.Mean, 1e-12)
	assert.InDelta(t, 93.75, s.Proposed.SuccessRate.Mean, 1e-12)
	assert.InDelta(t, 3.0, s.DMITS.AverageDelay.Mean, 1e-12)
	assert.InDelta(t, 2.5, s.Proposed.AverageDelay.Mean, 1e-12)
	assert.Equal(t, 10, s.DMITS.Completed)
	assert.Equal(t, 18, s.DMITS.Attempts)

	assert.InDelta(t, 31.25, s.Improvement.SuccessRate, 1e-12)
	assert.InDelta(t, 0.5, s.Improvement.Delay, 1e-12)
	assert.InDelta(t, 100.0/6, s.Improvement.DelayPercent, 1e-9)

	require.NotNil(t, s.SuccessTest)
	assert.Greater(t, s.SuccessTest.T, 0.0)
	require.NotNil(t, s.DelayTest)
	assert.True(t, math.IsInf(s.DelayTest.T, -1), "constant 0.5s saving")
	assert.Equal(t, 0.0, s.DelayTest.P)
}

func TestSummarizeSingleTrialSkipsTests(t *testing.T) {
	s := Summarize([]*TrialPair{
		{DMITS: result(scheduler.DMITSName, 8, 8, 16), Proposed: result(scheduler.ProposedName, 8, 8, 16)},
		nil,
	})
	assert.Nil(t, s.SuccessTest)
	assert.Nil(t, s.DelayTest)
	assert.Equal(t, 1, s.DMITS.SuccessRate.N)
	assert.Equal(t, 0.0, s.Improvement.SuccessRate)
}

func TestSummarizeBaseline(t *testing.T) {
	pairs := []*TrialPair{
		{DMITS: result(scheduler.DMITSName, 8, 8, 16), Proposed: result(scheduler.ProposedName, 8, 8, 16),
			Baseline: result(scheduler.BaselineName, 2, 8, 6)},
		{DMITS: result(scheduler.DMITSName, 8, 8, 16), Proposed: result(scheduler.ProposedName, 8, 8, 16),
			Baseline: result(scheduler.BaselineName, 4, 8, 12)},
	}
	s := Summarize(pairs)
	require.NotNil(t, s.Baseline)
	assert.Equal(t, scheduler.BaselineName, s.Baseline.Policy)
	assert.InDelta(t, 37.5, s.Baseline.SuccessRate.Mean, 1e-12)
	assert.InDelta(t, 3.0, s.Baseline.AverageDelay.Mean, 1e-12)
	assert.Equal(t, 6, s.Baseline.Completed)

	pairs[0].Baseline, pairs[1].Baseline = nil, nil
	assert.Nil(t, Summarize(pairs).Baseline)
}
