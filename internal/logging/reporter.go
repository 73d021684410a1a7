package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/uber-go/tally/v4"
)

// StatsReporter writes tally metrics as zerolog events, one event per metric
// per report interval.
type StatsReporter struct {
	logger zerolog.Logger
}

var _ tally.StatsReporter = (*StatsReporter)(nil)

// NewStatsReporter returns a reporter logging at info level through logger.
func NewStatsReporter(logger zerolog.Logger) *StatsReporter {
	return &StatsReporter{logger: logger.With().Str("component", "metrics").Logger()}
}

// NewRootScope builds a root scope flushing to a StatsReporter every interval.
// A zero interval reports only when the returned closer is closed.
func NewRootScope(prefix string, logger zerolog.Logger, interval time.Duration) (tally.Scope, io.Closer) {
	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:   prefix,
		Tags:     map[string]string{},
		Reporter: NewStatsReporter(logger),
	}, interval)
}

func (r *StatsReporter) event(kind, name string, tags map[string]string) *zerolog.Event {
	ev := r.logger.Info().Str("kind", kind).Str("metric", name)
	if len(tags) > 0 {
		ev = ev.Interface("tags", tags)
	}
	return ev
}

func (r *StatsReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.event("counter", name, tags).Int64("value", value).Msg("metric")
}

func (r *StatsReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.event("gauge", name, tags).Float64("value", value).Msg("metric")
}

func (r *StatsReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.event("timer", name, tags).Dur("value", interval).Msg("metric")
}

func (r *StatsReporter) ReportHistogramValueSamples(name string, tags map[string]string, _ tally.Buckets,
	bucketLowerBound, bucketUpperBound float64, samples int64) {
	r.event("histogram", name, tags).
		Float64("lower", bucketLowerBound).
		Float64("upper", bucketUpperBound).
		Int64("samples", samples).
		Msg("metric")
}

func (r *StatsReporter) ReportHistogramDurationSamples(name string, tags map[string]string, _ tally.Buckets,
	bucketLowerBound, bucketUpperBound time.Duration, samples int64) {
	r.event("histogram", name, tags).
		Dur("lower", bucketLowerBound).
		Dur("upper", bucketUpperBound).
		Int64("samples", samples).
		Msg("metric")
}

func (r *StatsReporter) Capabilities() tally.Capabilities { return r }

// Reporting is always on; the logger's level decides what is written.
func (r *StatsReporter) Reporting() bool { return true }

func (r *StatsReporter) Tagging() bool { return true }

// Flush is a no-op: every metric is written as it is reported.
func (r *StatsReporter) Flush() {}
