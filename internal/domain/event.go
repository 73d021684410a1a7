package domain

import "time"

// Event topics published while trials run.
const (
	TaskAttempted = "task.attempted"
	TaskCompleted = "task.completed"
	TaskFailed    = "task.failed"
	TaskRetried   = "task.retried"
	TrialStarted  = "trial.started"
	TrialFinished = "trial.finished"
)

// Event represents a message passed through the event bus.
type Event struct {
	Topic     string    // Type or category of the event (e.g., "task.completed")
	Data      any       // Payload of the event
	Timestamp time.Time // When the event occurred
}

// NewEvent creates a new event.
func NewEvent(topic string, data any) Event {
	return Event{
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Publisher is the write side of an event bus.
type Publisher interface {
	Publish(event Event)
}

// Runnable defines the interface for jobs that can be executed by the worker pool.
type Runnable interface {
	Run() error
}

// RunnableFunc adapts a plain function to Runnable.
type RunnableFunc func() error

func (f RunnableFunc) Run() error { return f() }

// TaskEvent is the payload of task.* events.
type TaskEvent struct {
	Policy      string
	Trial       int
	TaskID      int
	NodeID      int
	Attempt     int
	Reliability float64
	Status      TaskStatus
	Duration    float64
}

// TrialEvent is the payload of trial.* events.
type TrialEvent struct {
	Policy    string
	Trial     int
	Total     int
	Completed int
	Failed    int
	Blocked   int
}
