package task

import (
	"errors"
	"fmt"

	"github.com/phrazzld/newslens/internal/redact"
)

// Registry errors
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid task state transition")
	ErrInvalidPayload    = errors.New("invalid transition payload")
)

// Construction errors
var (
	ErrNilFetcher  = errors.New("item fetcher cannot be nil")
	ErrNilAnalyzer = errors.New("item analyzer cannot be nil")
	ErrNilRecorder = errors.New("task recorder cannot be nil")
	ErrNilPipeline = errors.New("pipeline cannot be nil")
	ErrNilLogger   = errors.New("logger cannot be nil")
	ErrEmptyTaskID = errors.New("task ID cannot be empty")
)

// ErrorKind classifies why a task failed or degraded.
type ErrorKind string

// Error kinds. SynthesisFailure is recorded as a warning and never fails a task.
const (
	KindFetch       ErrorKind = "FetchFailure"
	KindAnalysis    ErrorKind = "AnalysisFailure"
	KindAggregation ErrorKind = "AggregationFailure"
	KindSynthesis   ErrorKind = "SynthesisFailure"
	KindScheduling  ErrorKind = "SchedulingFailure"
	KindInternal    ErrorKind = "InternalFailure"
)

// TaskError is the stable error stored on a failed task record.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// StageError wraps a collaborator failure with the stage it happened in.
type StageError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

// NewStageError creates a StageError.
func NewStageError(kind ErrorKind, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Classify turns any pipeline error into a TaskError with a redacted message.
// Errors that are not a StageError are reported as internal failures.
func Classify(err error) *TaskError {
	if err == nil {
		return nil
	}
	var te *TaskError
	if errors.As(err, &te) {
		cp := *te
		return &cp
	}
	var se *StageError
	if errors.As(err, &se) {
		return &TaskError{Kind: se.Kind, Stage: se.Stage, Message: redact.Error(se.Err)}
	}
	return &TaskError{Kind: KindInternal, Message: redact.Error(err)}
}
