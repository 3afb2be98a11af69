package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/newslens/internal/domain"
	"github.com/phrazzld/newslens/internal/task"
)

// Sentinel errors returned by AnalysisService. Callers check them with
// errors.Is; the API layer maps them to HTTP status codes.
var (
	// ErrInvalidEntity indicates the entity name is empty after normalization.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidEntity = errors.New("invalid entity name")

	// ErrTaskNotFound indicates no task exists with the requested id.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("analysis task not found")

	// ErrBusy indicates the task could not be scheduled because the queue is
	// full or shutting down. The task is recorded as failed.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrBusy = errors.New("analysis capacity exhausted")
)

// AnalysisServiceError wraps unexpected errors from the analysis service with
// the operation that failed.
type AnalysisServiceError struct {
	// Operation is the operation that failed (e.g., "request_analysis")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for AnalysisServiceError.
func (e *AnalysisServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("analysis service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *AnalysisServiceError) Unwrap() error {
	return e.Err
}

// NewAnalysisServiceError maps known lower-level errors to the package
// sentinels and wraps everything else.
func NewAnalysisServiceError(operation, message string, err error) error {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, domain.ErrValidation):
		return ErrInvalidEntity
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed), errors.Is(err, task.ErrRunnerNotStarted):
		return fmt.Errorf("%w: %w", ErrBusy, err)
	}
	return &AnalysisServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
