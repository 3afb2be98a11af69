package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrRunnerNotStarted is returned by Submit before Start or after Stop.
var ErrRunnerNotStarted = errors.New("task runner is not running")

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be running before it is
	// reported as stuck. Zero disables the monitor.
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            4,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// StuckTaskFinder reports tasks that have been running for too long.
type StuckTaskFinder interface {
	RunningLongerThan(age time.Duration) []Snapshot
}

// TaskRunner manages background task processing: a bounded queue, a pool of
// workers draining it, and a monitor that reports tasks stuck in running.
// In-memory tasks cannot be resumed, so stuck tasks are only logged.
type TaskRunner struct {
	queue   *TaskQueue
	pool    *WorkerPool
	stuck   StuckTaskFinder
	config  TaskRunnerConfig
	logger  *slog.Logger
	monitor chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopped bool
}

// NewTaskRunner creates a new TaskRunner. stuck may be nil.
func NewTaskRunner(stuck StuckTaskFinder, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	// Apply default check interval if not specified
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}

	logger = logger.With("component", "task_runner")
	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	pool.SetErrorHandler(func(task Task, err error) {
		// Default error handler just logs the error
		logger.Debug("task error handled", "task_id", task.ID(), "task_type", task.Type())
	})

	return &TaskRunner{
		queue:   queue,
		pool:    pool,
		stuck:   stuck,
		config:  config,
		logger:  logger,
		monitor: make(chan struct{}),
	}
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit adds a new task to the queue without blocking. It returns an error
// wrapping ErrQueueFull or ErrQueueClosed when the task cannot be accepted.
func (r *TaskRunner) Submit(_ context.Context, task Task) error {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()
	if !running {
		return ErrRunnerNotStarted
	}

	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Start begins processing tasks. It may be called once.
func (r *TaskRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running || r.stopped {
		return errors.New("task runner already started")
	}
	r.running = true

	r.pool.Start()

	if r.stuck != nil && r.config.StuckTaskAge > 0 {
		r.wg.Add(1)
		go r.stuckTaskMonitor()
	}
	return nil
}

// Stop rejects new submissions, cancels the context of running tasks and
// waits for the workers to drain the queue. Queued tasks still run, with a
// cancelled context, so every task reaches a terminal state.
func (r *TaskRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.stopped = true
	r.mu.Unlock()

	r.queue.Close()
	r.pool.Stop()
	close(r.monitor)
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// stuckTaskMonitor periodically logs tasks that have been running for too long
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.monitor:
			return

		case <-ticker.C:
			stuckTasks := r.stuck.RunningLongerThan(r.config.StuckTaskAge)
			for _, snap := range stuckTasks {
				r.logger.Warn("task running longer than expected",
					"task_id", snap.ID,
					"request_key", snap.Key,
					"stage", snap.Progress.Stage,
					"running_for", time.Since(snap.StartedAt).String())
			}
		}
	}
}
