package ports

import "github.com/ZanzyTHEbar/vfogsim/internal/domain"

// TaskExecutor defines the port for submitting jobs to an execution engine (like a worker pool).
// Independent trials are dispatched through it; a single trial always runs on one goroutine.
type TaskExecutor interface {
	// Add submits a runnable job for execution.
	// Implementations may block if internal capacity is reached.
	Add(job domain.Runnable)

	// TryAdd attempts to submit a runnable job for execution without blocking.
	// Returns true if the job was accepted, false otherwise (e.g., queue full, pool stopped).
	TryAdd(job domain.Runnable) bool

	// Start initializes the executor (e.g., starts worker pool monitor).
	Start() error

	// Stop gracefully shuts down the executor, waiting for active jobs to complete.
	Stop()
}
