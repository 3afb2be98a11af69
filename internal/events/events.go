package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskEvent describes one lifecycle transition of an analysis task.
// From is empty for the creation event.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// TaskID identifies the task that moved
	TaskID uuid.UUID `json:"task_id"`

	// Key is the normalized request key the task serves
	Key string `json:"key"`

	From string `json:"from,omitempty"`
	To   string `json:"to"`

	// ErrorKind is set when the task moved to failed
	ErrorKind string `json:"error_kind,omitempty"`

	// Warnings lists non-fatal problems recorded with a completed result
	Warnings []string `json:"warnings,omitempty"`

	// Elapsed is the time since the task was created
	Elapsed time.Duration `json:"elapsed"`

	At time.Time `json:"at"`
}

// NewTaskEvent creates a TaskEvent stamped with a fresh id and the current time.
func NewTaskEvent(taskID uuid.UUID, key, from, to string) *TaskEvent {
	return &TaskEvent{
		ID:     uuid.New(),
		TaskID: taskID,
		Key:    key,
		From:   from,
		To:     to,
		At:     time.Now(),
	}
}

// EventHandler defines an interface for components that react to task events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the registry to publish transitions without knowing who listens.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
