package workerpool

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/vfogsim/internal/domain"
)

const (
	defaultQueueSize       = 100
	defaultMonitorInterval = 10 * time.Second
	defaultCooldownPeriod  = 1 * time.Minute // Cooldown after scaling down
	minWorkers             = 1
	cpuLowThreshold        = 0.5 // Threshold to consider scaling down
)

// ErrMonitorRunning is returned by Start when the monitor is already active.
var ErrMonitorRunning = errors.New("worker pool monitor already started")

// WorkerPool manages a pool of goroutines to execute Runnable jobs. The pool
// grows under load up to maxWorkers and retires idle workers down to minWorkers.
type WorkerPool struct {
	minWorkers      int
	maxWorkers      int
	currentWorkers  int                  // Current number of active workers
	nextWorkerID    int                  // Monotonic id for log lines
	workerQueue     chan domain.Runnable // Channel to send jobs to workers
	retire          chan struct{}        // Asks one worker to exit
	stopChan        chan struct{}        // Channel to signal workers and monitor to stop
	wg              sync.WaitGroup       // To wait for workers and monitor to finish
	monitor         *LoadMonitor         // System load monitor
	monitorInterval time.Duration        // How often to check load
	cooldownUntil   time.Time            // Time until scaling down is allowed again
	monitorRunning  bool                 // Flag to track if monitor is active
	stopped         bool
	logger          zerolog.Logger

	mu sync.Mutex // Protects currentWorkers, cooldownUntil, monitorRunning, stopped
}

// NewWorkerPool creates a new WorkerPool with adaptive sizing.
func NewWorkerPool(initialWorkers, minPoolWorkers, maxPoolWorkers int, queueSize int, monitor *LoadMonitor, logger zerolog.Logger) (*WorkerPool, error) {
	if minPoolWorkers <= 0 {
		minPoolWorkers = minWorkers
	}
	if maxPoolWorkers <= 0 {
		maxPoolWorkers = runtime.NumCPU() * 4
	}
	if maxPoolWorkers < minPoolWorkers {
		return nil, errors.New("maxWorkers must be greater than or equal to minWorkers")
	}
	if initialWorkers <= 0 {
		initialWorkers = runtime.NumCPU()
	}
	initialWorkers = min(max(initialWorkers, minPoolWorkers), maxPoolWorkers)
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	logger = logger.With().Str("component", "workerpool").Logger()
	if monitor == nil {
		monitor = NewLoadMonitor(0.8, 0.9, logger)
	}

	pool := &WorkerPool{
		minWorkers:      minPoolWorkers,
		maxWorkers:      maxPoolWorkers,
		workerQueue:     make(chan domain.Runnable, queueSize),
		retire:          make(chan struct{}),
		stopChan:        make(chan struct{}),
		monitor:         monitor,
		monitorInterval: defaultMonitorInterval,
		logger:          logger,
	}

	logger.Debug().
		Int("min", minPoolWorkers).
		Int("max", maxPoolWorkers).
		Int("initial", initialWorkers).
		Int("queue", queueSize).
		Msg("initializing worker pool")

	pool.mu.Lock()
	for i := 0; i < initialWorkers; i++ {
		pool.startWorker()
	}
	pool.mu.Unlock()

	return pool, nil
}

// startWorker launches a new worker goroutine.
// Assumes mu lock is held by the caller.
func (wp *WorkerPool) startWorker() {
	wp.currentWorkers++
	wp.nextWorkerID++
	wp.wg.Add(1)
	go wp.worker(wp.nextWorkerID)
}

// Add submits a job to the worker pool queue, blocking while the queue is full.
func (wp *WorkerPool) Add(job domain.Runnable) {
	if job == nil {
		return
	}
	select {
	case wp.workerQueue <- job:
	case <-wp.stopChan:
		wp.logger.Warn().Msg("worker pool stopped, job not added")
	}
}

// TryAdd attempts to submit a job without blocking.
func (wp *WorkerPool) TryAdd(job domain.Runnable) bool {
	if job == nil {
		return false
	}
	select {
	case <-wp.stopChan:
		return false
	default:
	}
	select {
	case wp.workerQueue <- job:
		return true
	default:
		return false // Queue full
	}
}

// worker is the execution loop for a single worker goroutine.
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	for {
		select {
		case job := <-wp.workerQueue:
			if err := job.Run(); err != nil {
				wp.logger.Error().Err(err).Int("worker", id).Msg("job failed")
			}
		case <-wp.retire:
			wp.logger.Debug().Int("worker", id).Msg("worker retired")
			return
		case <-wp.stopChan:
			return
		}
	}
}

// Start implements the ports.TaskExecutor interface.
// It starts the pool's monitor if it's not already running.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return errors.New("worker pool is stopped")
	}
	if wp.monitorRunning {
		return ErrMonitorRunning
	}

	wp.monitorRunning = true
	wp.wg.Add(1)
	go wp.adjustSizeLoop()
	wp.logger.Debug().Dur("interval", wp.monitorInterval).Msg("worker pool monitor started")
	return nil
}

// adjustSizeLoop periodically checks system load and adjusts the worker count.
func (wp *WorkerPool) adjustSizeLoop() {
	defer wp.wg.Done()

	ticker := time.NewTicker(wp.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wp.adjustSize()
		case <-wp.stopChan:
			wp.mu.Lock()
			wp.monitorRunning = false
			wp.mu.Unlock()
			return
		}
	}
}

// adjustSize scales the pool up under load or queue pressure and retires one
// worker when the host is idle, then holds off further shrinking for a cooldown.
func (wp *WorkerPool) adjustSize() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return
	}

	cpuUsage := wp.monitor.GetCPUUsage()
	memUsage := wp.monitor.GetMemUsage()
	queueUsage := 0.0
	if c := cap(wp.workerQueue); c > 0 {
		queueUsage = float64(len(wp.workerQueue)) / float64(c)
	}

	// Scale up
	overloaded := cpuUsage > wp.monitor.GetCPUThreshold() || memUsage > wp.monitor.GetMemThreshold()
	if (overloaded || queueUsage > 0.75) && wp.currentWorkers < wp.maxWorkers {
		wp.logger.Debug().
			Float64("cpu", cpuUsage).
			Float64("mem", memUsage).
			Float64("queue", queueUsage).
			Int("workers", wp.currentWorkers+1).
			Msg("scaling up")
		wp.startWorker()
		return
	}

	// Scale down
	if !time.Now().After(wp.cooldownUntil) {
		return
	}
	if cpuUsage < cpuLowThreshold && queueUsage < 0.1 && wp.currentWorkers > wp.minWorkers {
		select {
		case wp.retire <- struct{}{}:
			wp.currentWorkers--
			wp.cooldownUntil = time.Now().Add(defaultCooldownPeriod)
			wp.logger.Debug().
				Float64("cpu", cpuUsage).
				Float64("queue", queueUsage).
				Int("workers", wp.currentWorkers).
				Msg("scaled down")
		default:
			// Every worker is busy; try again next tick.
		}
	}
}

// Stop implements the ports.TaskExecutor interface.
// Signals shutdown and waits for workers and monitor. Queued jobs that no
// worker has picked up are discarded.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.stopChan)
	workers := wp.currentWorkers
	wp.mu.Unlock()

	wp.wg.Wait()

	wp.mu.Lock()
	wp.monitorRunning = false
	wp.currentWorkers = 0
	wp.mu.Unlock()

	wp.logger.Debug().Int("workers", workers).Msg("worker pool stopped")
}

// GetCurrentWorkers returns the current number of active worker goroutines.
func (wp *WorkerPool) GetCurrentWorkers() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.currentWorkers
}
