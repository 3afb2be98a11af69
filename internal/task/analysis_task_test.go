package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPipeline struct {
	RunFn func(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error)
}

func (m *mockPipeline) Run(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
	return m.RunFn(ctx, entity, report)
}

func acquireTask(t *testing.T, r *Registry, pipeline AnalysisPipeline, timeout time.Duration) *AnalysisTask {
	t.Helper()
	acq, err := r.Acquire(context.Background(), "apple", "Apple")
	require.NoError(t, err)
	require.Equal(t, OutcomeStarted, acq.Outcome)

	task, err := NewAnalysisTaskFactory(r, pipeline, timeout, setupTestLogger()).CreateTask(acq.Snapshot)
	require.NoError(t, err)
	return task
}

func TestNewAnalysisTask_Validation(t *testing.T) {
	logger := setupTestLogger()
	r := newTestRegistry()
	p := &mockPipeline{}
	snap := Snapshot{ID: uuid.New(), Key: "k", Entity: "K"}

	_, err := NewAnalysisTask(snap, nil, p, 0, logger)
	assert.ErrorIs(t, err, ErrNilRecorder)

	_, err = NewAnalysisTask(snap, r, nil, 0, logger)
	assert.ErrorIs(t, err, ErrNilPipeline)

	_, err = NewAnalysisTask(snap, r, p, 0, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	_, err = NewAnalysisTask(Snapshot{}, r, p, 0, logger)
	assert.ErrorIs(t, err, ErrEmptyTaskID)

	task, err := NewAnalysisTask(snap, r, p, 0, logger)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, task.ID())
	assert.Equal(t, TaskTypeEntityAnalysis, task.Type())
}

func TestAnalysisTask_Execute_Success(t *testing.T) {
	t.Parallel()

	emitter := &recordingEmitter{}
	r := newTestRegistry(WithEmitter(emitter))

	p, err := NewPipeline(fixedFetcher(rawItems(3)), labelAnalyzer(), nil, &MockSynthesizer{},
		PipelineConfig{}, setupTestLogger())
	require.NoError(t, err)

	task := acquireTask(t, r, p, 0)
	require.NoError(t, task.Execute(context.Background()))

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
	require.NotNil(t, snap.Result)
	assert.Nil(t, snap.Error)
	assert.Len(t, snap.Result.Items, 3)
	assert.True(t, snap.Result.HasAudio())
	assert.False(t, snap.FinishedAt.IsZero())

	assert.Equal(t, []string{">pending", "pending>running", "running>completed"}, emitter.transitions())
}

func TestAnalysisTask_Execute_SynthesisFailureStillCompletes(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	synth := &MockSynthesizer{SynthesizeFn: func(ctx context.Context, text string) (domain.Speech, error) {
		return domain.Speech{}, errors.New("voice service down")
	}}
	p, err := NewPipeline(fixedFetcher(rawItems(2)), labelAnalyzer(), nil, synth, PipelineConfig{}, setupTestLogger())
	require.NoError(t, err)

	task := acquireTask(t, r, p, 0)
	require.NoError(t, task.Execute(context.Background()))

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
	assert.Nil(t, snap.Result.Speech)
	assert.NotEmpty(t, snap.Result.Warnings)
}

func TestAnalysisTask_Execute_FetchFailure(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	fetcher := &MockFetcher{FetchItemsFn: func(ctx context.Context, entity string) ([]domain.RawItem, error) {
		return nil, errors.New("no news articles found")
	}}
	p, err := NewPipeline(fetcher, &MockAnalyzer{}, nil, nil, PipelineConfig{}, setupTestLogger())
	require.NoError(t, err)

	task := acquireTask(t, r, p, 0)
	err = task.Execute(context.Background())
	require.Error(t, err)

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Result)
	require.NotNil(t, snap.Error)
	assert.Equal(t, KindFetch, snap.Error.Kind)
	assert.Equal(t, StageFetch, snap.Error.Stage)
	assert.Equal(t, "no news articles found", snap.Error.Message)
}

func TestAnalysisTask_Execute_Timeout(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	p := &mockPipeline{RunFn: func(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
		report(Progress{Stage: StageFetch})
		<-ctx.Done()
		return nil, NewStageError(KindFetch, StageFetch, ctx.Err())
	}}

	task := acquireTask(t, r, p, 20*time.Millisecond)
	err := task.Execute(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, KindFetch, snap.Error.Kind)
	assert.Contains(t, snap.Error.Message, "deadline exceeded")
}

func TestAnalysisTask_Execute_CancelledContextStillRecordsFailure(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	p := &mockPipeline{RunFn: func(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
		return nil, NewStageError(KindFetch, StageFetch, ctx.Err())
	}}

	task := acquireTask(t, r, p, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, task.Execute(ctx))

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
}

func TestAnalysisTask_Execute_Panic(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	p := &mockPipeline{RunFn: func(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
		panic("nil map write")
	}}

	task := acquireTask(t, r, p, 0)
	require.Error(t, task.Execute(context.Background()))

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, KindInternal, snap.Error.Kind)
	assert.Contains(t, snap.Error.Message, "nil map write")
}

func TestAnalysisTask_Execute_NilResult(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	p := &mockPipeline{RunFn: func(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
		return nil, nil
	}}

	task := acquireTask(t, r, p, 0)
	require.Error(t, task.Execute(context.Background()))

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, KindInternal, snap.Error.Kind)
}

func TestAnalysisTask_Execute_Twice(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	p := &mockPipeline{RunFn: func(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
		return testResult(entity), nil
	}}

	task := acquireTask(t, r, p, 0)
	require.NoError(t, task.Execute(context.Background()))

	err := task.Execute(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition, "a finished task cannot run again")

	snap, err := r.Get(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snap.State)
}
