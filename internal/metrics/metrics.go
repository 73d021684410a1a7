// Package metrics computes the success-rate and delay figures reported for each
// policy, and the statistics used to compare policies across trials.
package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrSampleSize is returned when a test has too few paired samples.
var ErrSampleSize = errors.New("paired samples must have equal length of at least 2")

// SuccessRate returns completed/total as a percentage, 0 for an empty workload.
func SuccessRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// AverageDelay returns the mean duration of completed tasks, 0 if none completed.
func AverageDelay(executionTime float64, completed int) float64 {
	if completed <= 0 {
		return 0
	}
	return executionTime / float64(completed)
}

// Summary describes a sample.
type Summary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"` // Sample standard deviation, 0 when N < 2
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summarize computes the summary of xs. An empty sample yields the zero Summary.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := Summary{N: len(xs), Min: floats.Min(xs), Max: floats.Max(xs)}
	if len(xs) == 1 {
		s.Mean = xs[0]
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(xs, nil)
	return s
}

// PairedTTest runs a two-sided paired Student's t-test of a against b and
// returns the t statistic and p-value.
//
// When every difference is identical the variance is zero: equal samples give
// t=0, p=1 and a constant non-zero shift gives t=±Inf, p=0.
func PairedTTest(a, b []float64) (t, p float64, err error) {
	if len(a) != len(b) || len(a) < 2 {
		return 0, 0, ErrSampleSize
	}

	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	mean, std := stat.MeanStdDev(diff, nil)

	if std == 0 || math.IsNaN(std) {
		switch {
		case mean == 0:
			return 0, 1, nil
		case mean > 0:
			return math.Inf(1), 0, nil
		default:
			return math.Inf(-1), 0, nil
		}
	}

	n := float64(len(diff))
	t = mean / (std / math.Sqrt(n))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	p = 2 * dist.Survival(math.Abs(t))
	return t, math.Min(1, p), nil
}

// Improvement compares a candidate policy against a baseline.
type Improvement struct {
	SuccessRate  float64 `json:"successRate"`  // Percentage points gained
	Delay        float64 `json:"delay"`        // Seconds saved per completed task
	DelayPercent float64 `json:"delayPercent"` // Delay saved relative to the baseline
}

// Compare returns the improvement of candidate over baseline.
func Compare(baselineRate, candidateRate, baselineDelay, candidateDelay float64) Improvement {
	imp := Improvement{
		SuccessRate: candidateRate - baselineRate,
		Delay:       baselineDelay - candidateDelay,
	}
	if baselineDelay > 0 {
		imp.DelayPercent = imp.Delay / baselineDelay * 100
	}
	return imp
}
