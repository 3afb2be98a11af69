package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
	nlotel "github.com/phrazzld/newslens/internal/platform/otel"
)

// TaskRecorder is the part of the Registry a running task writes to.
type TaskRecorder interface {
	Transition(ctx context.Context, id uuid.UUID, to State, payload Payload) (Snapshot, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress Progress) error
}

// AnalysisPipeline produces the result for one entity.
type AnalysisPipeline interface {
	Run(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error)
}

// AnalysisTask implements the Task interface for analyzing the news about
// one entity. It owns its record's transitions after creation: running on
// start, then completed or failed.
type AnalysisTask struct {
	id       uuid.UUID
	key      domain.RequestKey
	entity   string
	recorder TaskRecorder
	pipeline AnalysisPipeline
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAnalysisTask creates a task for a record previously created as pending.
// A zero timeout means the pipeline may run for as long as it needs.
func NewAnalysisTask(
	snap Snapshot,
	recorder TaskRecorder,
	pipeline AnalysisPipeline,
	timeout time.Duration,
	logger *slog.Logger,
) (*AnalysisTask, error) {
	if recorder == nil {
		return nil, ErrNilRecorder
	}
	if pipeline == nil {
		return nil, ErrNilPipeline
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if snap.ID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	return &AnalysisTask{
		id:       snap.ID,
		key:      snap.Key,
		entity:   snap.Entity,
		recorder: recorder,
		pipeline: pipeline,
		timeout:  timeout,
		logger: logger.With(
			"task_type", TaskTypeEntityAnalysis,
			"task_id", snap.ID,
			"request_key", snap.Key),
	}, nil
}

// ID returns the task's unique identifier
func (t *AnalysisTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *AnalysisTask) Type() string {
	return TaskTypeEntityAnalysis
}

// Execute moves the task to running, runs the pipeline and records the
// terminal state. The returned error mirrors a failed outcome.
func (t *AnalysisTask) Execute(ctx context.Context) (err error) {
	ctx, span := nlotel.StartTaskSpan(ctx, t.id.String(), string(t.key))
	defer func() { nlotel.EndSpan(span, err) }()

	// Terminal writes must land even when ctx is cancelled by shutdown.
	recordCtx := context.WithoutCancel(ctx)

	if _, err := t.recorder.Transition(recordCtx, t.id, StateRunning, Payload{}); err != nil {
		t.logger.Error("failed to mark task running", "error", err)
		return fmt.Errorf("failed to mark task running: %w", err)
	}
	t.logger.Info("analysis started", "entity", t.entity)

	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	result, runErr := t.run(runCtx)
	if runErr != nil {
		taskErr := Classify(runErr)
		t.logger.Error("analysis failed",
			"error_kind", taskErr.Kind,
			"stage", taskErr.Stage,
			"error", taskErr.Message,
			"duration_ms", time.Since(start).Milliseconds())

		if _, err := t.recorder.Transition(recordCtx, t.id, StateFailed, Payload{Err: taskErr}); err != nil {
			t.logger.Error("failed to mark task failed", "error", err)
			return errors.Join(runErr, err)
		}
		return runErr
	}

	if _, err := t.recorder.Transition(recordCtx, t.id, StateCompleted, Payload{Result: result}); err != nil {
		t.logger.Error("failed to mark task completed", "error", err)
		return fmt.Errorf("failed to mark task completed: %w", err)
	}

	t.logger.Info("analysis completed",
		"item_count", len(result.Items),
		"has_audio", result.HasAudio(),
		"warning_count", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// run invokes the pipeline and converts a panic into an internal failure.
func (t *AnalysisTask) run(ctx context.Context) (result *domain.AnalysisResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("pipeline panicked: %v", rec)
		}
	}()

	result, err = t.pipeline.Run(ctx, t.entity, t.report)
	if err == nil && result == nil {
		err = errors.New("pipeline returned no result")
	}
	return result, err
}

func (t *AnalysisTask) report(p Progress) {
	if err := t.recorder.UpdateProgress(context.Background(), t.id, p); err != nil {
		t.logger.Debug("progress update dropped", "stage", p.Stage, "error", err)
	}
}
