package domain

import (
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PolicyStats aggregates the events observed for one scheduling policy.
type PolicyStats struct {
	Attempts  int
	Completed int
	Failed    int
	Retried   int
	Trials    int
	WorkTime  float64 // Summed duration of completed tasks
}

// TaskStatsCollector collects execution statistics from the event stream.
type TaskStatsCollector struct {
	mu        sync.RWMutex
	byPolicy  map[string]PolicyStats
	startTime time.Time
}

// NewTaskStatsCollector creates a new TaskStatsCollector
func NewTaskStatsCollector() *TaskStatsCollector {
	return &TaskStatsCollector{
		byPolicy:  make(map[string]PolicyStats),
		startTime: time.Now(),
	}
}

// Record applies a single event. Events with unknown payloads are ignored.
func (tsc *TaskStatsCollector) Record(event Event) {
	tsc.mu.Lock()
	defer tsc.mu.Unlock()

	switch data := event.Data.(type) {
	case TaskEvent:
		s := tsc.byPolicy[data.Policy]
		switch event.Topic {
		case TaskAttempted:
			s.Attempts++
		case TaskCompleted:
			s.Completed++
			s.WorkTime += data.Duration
		case TaskFailed:
			s.Failed++
		case TaskRetried:
			s.Retried++
		}
		tsc.byPolicy[data.Policy] = s
	case TrialEvent:
		if event.Topic == TrialFinished {
			s := tsc.byPolicy[data.Policy]
			s.Trials++
			tsc.byPolicy[data.Policy] = s
		}
	}
}

// Stats returns a snapshot of the per-policy statistics.
func (tsc *TaskStatsCollector) Stats() map[string]PolicyStats {
	tsc.mu.RLock()
	defer tsc.mu.RUnlock()
	return maps.Clone(tsc.byPolicy)
}

// LogStats writes the current statistics to the logger, one line per policy.
func (tsc *TaskStatsCollector) LogStats(logger zerolog.Logger) {
	uptime := time.Since(tsc.startTime)
	for policy, s := range tsc.Stats() {
		logger.Info().
			Str("policy", policy).
			Int("trials", s.Trials).
			Int("attempts", s.Attempts).
			Int("completed", s.Completed).
			Int("failed", s.Failed).
			Int("retried", s.Retried).
			Dur("uptime", uptime).
			Msg("task stats")
	}
}

// StartStatsMonitor starts a background goroutine that periodically logs stats
func (tsc *TaskStatsCollector) StartStatsMonitor(interval time.Duration, logger zerolog.Logger, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				tsc.LogStats(logger)
			case <-stopCh:
				return
			}
		}
	}()
}

// EventHandler consumes events until the channel is closed. The returned
// channel is closed once every event has been recorded.
func (tsc *TaskStatsCollector) EventHandler(events <-chan Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			tsc.Record(event)
		}
	}()
	return done
}
