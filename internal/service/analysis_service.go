package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
	"github.com/phrazzld/newslens/internal/redact"
	"github.com/phrazzld/newslens/internal/task"
)

// TaskRegistry is the part of task.Registry the service needs.
type TaskRegistry interface {
	Acquire(ctx context.Context, key domain.RequestKey, entity string) (task.Acquisition, error)
	Get(ctx context.Context, id uuid.UUID) (task.Snapshot, error)
	Transition(ctx context.Context, id uuid.UUID, to task.State, payload task.Payload) (task.Snapshot, error)
	KnownEntities(ctx context.Context) []task.KnownEntity
}

// TaskFactory builds the executable task for a freshly acquired record.
type TaskFactory interface {
	CreateTask(snap task.Snapshot) (*task.AnalysisTask, error)
}

// TaskSubmitter schedules a task for background execution without blocking.
type TaskSubmitter interface {
	Submit(ctx context.Context, t task.Task) error
}

// AcquireRecorder counts requests answered without scheduling new work.
type AcquireRecorder interface {
	RecordCacheHit(ctx context.Context)
	RecordInFlightJoin(ctx context.Context)
}

// TaskHandle is what a caller gets back from RequestAnalysis.
type TaskHandle struct {
	// TaskID identifies the task serving the request.
	TaskID uuid.UUID
	// Key is the normalized request key.
	Key domain.RequestKey
	// Outcome says whether work was started, joined or served from cache.
	Outcome task.Outcome
	// State is the task state when the handle was created.
	State task.State
	// Result is set only when Outcome is task.OutcomeCompleted.
	Result *domain.AnalysisResult
}

// AnalysisService defines the orchestrator operations.
type AnalysisService interface {
	// RequestAnalysis returns the cached result, the in-flight task, or a newly
	// scheduled task for the entity. It never waits for analysis to finish.
	RequestAnalysis(ctx context.Context, entityName string) (TaskHandle, error)

	// PollStatus returns a snapshot of the task, or ErrTaskNotFound.
	PollStatus(ctx context.Context, id uuid.UUID) (task.Snapshot, error)

	// ListKnownEntities returns the request keys with a completed result, sorted.
	ListKnownEntities(ctx context.Context) []string
}

type analysisServiceImpl struct {
	registry TaskRegistry
	factory  TaskFactory
	runner   TaskSubmitter
	recorder AcquireRecorder
	logger   *slog.Logger
}

// NewAnalysisService creates an AnalysisService. recorder may be nil.
func NewAnalysisService(
	registry TaskRegistry,
	factory TaskFactory,
	runner TaskSubmitter,
	recorder AcquireRecorder,
	logger *slog.Logger,
) (AnalysisService, error) {
	if registry == nil {
		return nil, &AnalysisServiceError{Operation: "new", Message: "registry cannot be nil"}
	}
	if factory == nil {
		return nil, &AnalysisServiceError{Operation: "new", Message: "task factory cannot be nil"}
	}
	if runner == nil {
		return nil, &AnalysisServiceError{Operation: "new", Message: "task runner cannot be nil"}
	}
	if logger == nil {
		return nil, &AnalysisServiceError{Operation: "new", Message: "logger cannot be nil"}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &analysisServiceImpl{
		registry: registry,
		factory:  factory,
		runner:   runner,
		recorder: recorder,
		logger:   logger.With("component", "analysis_service"),
	}, nil
}

// RequestAnalysis implements AnalysisService.
func (s *analysisServiceImpl) RequestAnalysis(ctx context.Context, entityName string) (TaskHandle, error) {
	key, err := domain.NewRequestKey(entityName)
	if err != nil {
		return TaskHandle{}, NewAnalysisServiceError("request_analysis", "invalid entity", err)
	}
	entity := domain.DisplayName(entityName)

	acq, err := s.registry.Acquire(ctx, key, entity)
	if err != nil {
		return TaskHandle{}, NewAnalysisServiceError("request_analysis", "failed to acquire key", err)
	}

	handle := TaskHandle{
		TaskID:  acq.Snapshot.ID,
		Key:     key,
		Outcome: acq.Outcome,
		State:   acq.Snapshot.State,
	}
	logger := s.logger.With("request_key", key, "task_id", handle.TaskID)

	switch acq.Outcome {
	case task.OutcomeCompleted:
		s.recorder.RecordCacheHit(ctx)
		handle.Result = acq.Snapshot.Result
		logger.Debug("serving cached analysis")
		return handle, nil

	case task.OutcomeInFlight:
		s.recorder.RecordInFlightJoin(ctx)
		logger.Debug("joined in-flight analysis", "state", acq.Snapshot.State)
		return handle, nil
	}

	t, err := s.factory.CreateTask(acq.Snapshot)
	if err != nil {
		s.abandon(ctx, acq.Snapshot, task.KindInternal, err)
		return TaskHandle{}, NewAnalysisServiceError("request_analysis", "failed to create task", err)
	}

	// The runner owns the task's context from here on; ctx only bounds the
	// hand-off.
	if err := s.runner.Submit(ctx, t); err != nil {
		handle.State = s.abandon(ctx, acq.Snapshot, task.KindScheduling, err)
		return handle, NewAnalysisServiceError("request_analysis", "failed to schedule task", err)
	}

	logger.Info("analysis scheduled", "entity", entity)
	return handle, nil
}

// abandon fails a record whose task will never execute. The record still
// passes through running so its history matches an executed task.
func (s *analysisServiceImpl) abandon(ctx context.Context, snap task.Snapshot, kind task.ErrorKind, cause error) task.State {
	ctx = context.WithoutCancel(ctx)
	logger := s.logger.With("task_id", snap.ID, "request_key", snap.Key)

	if _, err := s.registry.Transition(ctx, snap.ID, task.StateRunning, task.Payload{}); err != nil {
		logger.Error("failed to mark abandoned task running", "error", err)
		return snap.State
	}

	taskErr := task.Classify(task.NewStageError(kind, task.StageSchedule, cause))
	failed, err := s.registry.Transition(ctx, snap.ID, task.StateFailed, task.Payload{Err: taskErr})
	if err != nil {
		logger.Error("failed to mark abandoned task failed", "error", err)
		return task.StateRunning
	}

	logger.Warn("analysis abandoned",
		"error_kind", kind,
		"error", redact.Error(cause))
	return failed.State
}

// PollStatus implements AnalysisService.
func (s *analysisServiceImpl) PollStatus(ctx context.Context, id uuid.UUID) (task.Snapshot, error) {
	snap, err := s.registry.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, task.ErrTaskNotFound) {
			s.logger.Error("failed to read task", "task_id", id, "error", err)
		}
		return task.Snapshot{}, NewAnalysisServiceError("poll_status", "failed to read task", err)
	}
	return snap, nil
}

// ListKnownEntities implements AnalysisService.
func (s *analysisServiceImpl) ListKnownEntities(ctx context.Context) []string {
	known := s.registry.KnownEntities(ctx)
	keys := make([]string, len(known))
	for i, k := range known {
		keys[i] = k.Key.String()
	}
	return keys
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit(context.Context)     {}
func (nopRecorder) RecordInFlightJoin(context.Context) {}
