package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/vfogsim/internal/engine"
	"github.com/ZanzyTHEbar/vfogsim/internal/experiment"
)

const (
	barWidth  = 40
	fullCell  = "█"
	emptyCell = "░"
)

// WriteText renders the comparison table, the improvement lines and a bar
// chart of both headline metrics.
func WriteText(w io.Writer, r *experiment.Report) error {
	s := r.Summary
	p := &printer{w: w}

	p.rule()
	p.printf("  COMPARISON RESULTS  (run %s, %d trials, seed %d)\n", r.RunID, r.Trials, r.Seed)
	p.rule()
	p.printf("Nodes: %d   Tasks: %d   Critical path: %.2fs\n\n", r.Nodes, r.Tasks, r.CriticalPath)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Policy\tSuccess rate\t±\tAvg delay\t±\tCompleted\tFailed\tBlocked\tAttempts\t")
	policies := []experiment.PolicySummary{s.DMITS, s.Proposed}
	if s.Baseline != nil {
		policies = append(policies, *s.Baseline)
	}
	for _, ps := range policies {
		fmt.Fprintf(tw, "%s\t%.1f%%\t%.1f\t%.2fs\t%.2f\t%d\t%d\t%d\t%d\t\n",
			ps.Policy,
			ps.SuccessRate.Mean, ps.SuccessRate.Std,
			ps.AverageDelay.Mean, ps.AverageDelay.Std,
			ps.Completed, ps.Failed, ps.Blocked, ps.Attempts)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	imp := s.Improvement
	p.printf("\nImprovements:\n")
	p.printf("  Success Rate: %+.1f%% (%s)\n", imp.SuccessRate, arrow(imp.SuccessRate > 0))
	p.printf("  Average Delay: %+.2fs (%.1f%% %s)\n", -imp.Delay, imp.DelayPercent, arrow(imp.Delay < 0))
	if s.SuccessTest != nil {
		p.printf("  Success paired t-test: t=%s p=%.4f\n", formatT(s.SuccessTest.T), s.SuccessTest.P)
	}
	if s.DelayTest != nil {
		p.printf("  Delay paired t-test:   t=%s p=%.4f\n", formatT(s.DelayTest.T), s.DelayTest.P)
	}

	p.printf("\nSuccess rate (%%)\n")
	maxRate := 100.0
	for _, ps := range policies {
		p.bar(ps.Policy, ps.SuccessRate.Mean, maxRate, "%.1f")
	}

	p.printf("\nAverage delay (s)\n")
	maxDelay := 0.0
	for _, ps := range policies {
		maxDelay = math.Max(maxDelay, ps.AverageDelay.Mean)
	}
	for _, ps := range policies {
		p.bar(ps.Policy, ps.AverageDelay.Mean, maxDelay, "%.2f")
	}

	return p.err
}

// WriteAttemptLog renders the per-attempt log of a single trial result.
func WriteAttemptLog(w io.Writer, res *engine.TrialResult) error {
	fmt.Fprintf(w, "%s trial %d (seed %d): %d/%d completed, %d failed, %d blocked, %d attempts\n",
		res.Policy, res.Trial, res.Seed, res.Completed, res.Total, res.Failed, res.Blocked, res.Attempts)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Pass\tTask\tNode\tAttempt\tReliability\tP(fail)\tDraw\tResult\t")
	for _, a := range res.Log {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\t%s\t\n",
			a.Pass, a.TaskID, a.NodeID, a.Attempt, a.Reliability, a.FailureProbability, a.Draw, a.Status)
	}
	return tw.Flush()
}

// Bar renders value as a fixed-width bar scaled against maxValue.
func Bar(value, maxValue float64, width int) string {
	filled := 0
	if maxValue > 0 && value > 0 {
		filled = int(math.Round(float64(width) * math.Min(value, maxValue) / maxValue))
	}
	return strings.Repeat(fullCell, filled) + strings.Repeat(emptyCell, width-filled)
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) rule() { p.printf("%s\n", strings.Repeat("=", 70)) }

func (p *printer) bar(label string, value, maxValue float64, valueFormat string) {
	p.printf("  %-9s [%s] "+valueFormat+"\n", label, Bar(value, maxValue, barWidth), value)
}

func arrow(up bool) string {
	if up {
		return "↑"
	}
	return "↓"
}

func formatT(t float64) string {
	if math.IsInf(t, 0) {
		if t > 0 {
			return "+Inf"
		}
		return "-Inf"
	}
	return fmt.Sprintf("%.3f", t)
}
