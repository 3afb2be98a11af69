package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
)

// State is the lifecycle state of a task record.
type State string

// Possible task states. Completed and failed are terminal.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// canTransition encodes pending -> running -> {completed | failed}.
func (s State) canTransition(to State) bool {
	switch s {
	case StatePending:
		return to == StateRunning
	case StateRunning:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}

// Task type constants
const (
	// TaskTypeEntityAnalysis is the task type for analyzing news about one entity
	TaskTypeEntityAnalysis = "entity_analysis"
)

// Pipeline stage names, used for progress, spans and error classification.
const (
	StageFetch      = "fetch"
	StageAnalyze    = "analyze"
	StageAggregate  = "aggregate"
	StageTranslate  = "translate"
	StageSynthesize = "synthesize"
	StageSchedule   = "schedule"
)

// Progress is a coarse indicator for pollers. It is not used for correctness.
type Progress struct {
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"`
}

// Snapshot is a value copy of a task record taken under the registry lock.
// Result points at an immutable AnalysisResult shared with the registry.
type Snapshot struct {
	ID         uuid.UUID
	Key        domain.RequestKey
	Entity     string
	State      State
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Progress   Progress
	Result     *domain.AnalysisResult
	Error      *TaskError
}

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}
