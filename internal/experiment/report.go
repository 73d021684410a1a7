package experiment

import (
	"time"

	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/metrics"
)

// TrialPair holds the compared policies' results for one trial. The runs share
// the workload and the initial node population but draw from separate seeds.
// Baseline is set only when the mobility-only policy is enabled.
type TrialPair struct {
	Trial    int                 `json:"trial"`
	DMITS    *engine.TrialResult `json:"dmits"`
	Proposed *engine.TrialResult `json:"proposed"`
	Baseline *engine.TrialResult `json:"baseline,omitempty"`
}

// PolicySummary aggregates one policy across all trials.
type PolicySummary struct {
	Policy       string          `json:"policy"`
	SuccessRate  metrics.Summary `json:"successRate"`
	AverageDelay metrics.Summary `json:"averageDelay"`
	Completed    int             `json:"completed"`
	Failed       int             `json:"failed"`
	Blocked      int             `json:"blocked"`
	Attempts     int             `json:"attempts"`
	Retries      int             `json:"retries"`
}

// TTest is the outcome of a paired t-test, Proposed minus DMITS.
type TTest struct {
	T float64 `json:"t,format:nonfinite"`
	P float64 `json:"p"`
}

// Summary compares the policies over all trials.
type Summary struct {
	DMITS       PolicySummary       `json:"dmits"`
	Proposed    PolicySummary       `json:"proposed"`
	Baseline    *PolicySummary      `json:"baseline,omitempty"`
	Improvement metrics.Improvement `json:"improvement"`
	SuccessTest *TTest              `json:"successTest,omitempty"` // Needs at least two trials
	DelayTest   *TTest              `json:"delayTest,omitempty"`
}

// Report is the complete output of an experiment run.
type Report struct {
	RunID          string       `json:"runId"`
	StartedAt      time.Time    `json:"startedAt"`
	ElapsedSeconds float64      `json:"elapsedSeconds"`
	Seed           uint64       `json:"seed"`
	Trials         int          `json:"trials"`
	Nodes          int          `json:"nodes"`
	Tasks          int          `json:"tasks"`
	CriticalPath   float64      `json:"criticalPath"` // Lower bound on workload makespan
	Results        []*TrialPair `json:"results"`
	Summary        Summary      `json:"summary"`
}

// Summarize computes the cross-trial summary of pairs.
func Summarize(pairs []*TrialPair) Summary {
	var dmits, proposed, baseline []*engine.TrialResult
	for _, p := range pairs {
		if p == nil {
			continue
		}
		dmits = append(dmits, p.DMITS)
		proposed = append(proposed, p.Proposed)
		if p.Baseline != nil {
			baseline = append(baseline, p.Baseline)
		}
	}

	s := Summary{
		DMITS:    summarizePolicy(dmits),
		Proposed: summarizePolicy(proposed),
	}
	if len(baseline) > 0 {
		b := summarizePolicy(baseline)
		s.Baseline = &b
	}
	s.Improvement = metrics.Compare(
		s.DMITS.SuccessRate.Mean, s.Proposed.SuccessRate.Mean,
		s.DMITS.AverageDelay.Mean, s.Proposed.AverageDelay.Mean,
	)

	if t, p, err := metrics.PairedTTest(successRates(proposed), successRates(dmits)); err == nil {
		s.SuccessTest = &TTest{T: t, P: p}
	}
	if t, p, err := metrics.PairedTTest(delays(proposed), delays(dmits)); err == nil {
		s.DelayTest = &TTest{T: t, P: p}
	}
	return s
}

func summarizePolicy(results []*engine.TrialResult) PolicySummary {
	var ps PolicySummary
	for _, r := range results {
		if ps.Policy == "" {
			ps.Policy = r.Policy
		}
		ps.Completed += r.Completed
		ps.Failed += r.Failed
		ps.Blocked += r.Blocked
		ps.Attempts += r.Attempts
		ps.Retries += r.Retries
	}
	ps.SuccessRate = metrics.Summarize(successRates(results))
	ps.AverageDelay = metrics.Summarize(delays(results))
	return ps
}

func successRates(results []*engine.TrialResult) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.SuccessRate()
	}
	return out
}

func delays(results []*engine.TrialResult) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.AverageDelay()
	}
	return out
}
