package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTaskQueue implements TaskQueueReader for testing
type mockTaskQueue struct {
	ch chan Task
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{
		ch: make(chan Task, 10),
	}
}

func (m *mockTaskQueue) GetChannel() <-chan Task {
	return m.ch
}

func TestNewWorkerPool(t *testing.T) {
	logger := setupTestLogger()
	taskQueue := newMockTaskQueue()

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 5}, logger)

	assert.NotNil(t, pool)
	assert.Equal(t, 5, pool.workerCount)
	assert.Equal(t, taskQueue, pool.taskQueue)
	assert.NotNil(t, pool.ctx)
	assert.Nil(t, pool.errorHandler)

	// Test with invalid worker count (should default to 1)
	pool = NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 0}, logger)
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: -5}, logger)
	assert.Equal(t, 1, pool.workerCount)
}

func TestWorkerPool_ProcessTask_Success(t *testing.T) {
	taskQueue := newMockTaskQueue()
	completed := make(chan struct{})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(completed)
		return nil
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()
	defer pool.Stop()

	taskQueue.ch <- task

	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for task to complete")
	}
}

func TestWorkerPool_ProcessTask_Error(t *testing.T) {
	taskQueue := newMockTaskQueue()
	errorHandled := make(chan error, 1)

	expectedErr := errors.New("test error")
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		return expectedErr
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(task Task, err error) {
		errorHandled <- err
	})
	pool.Start()
	defer pool.Stop()

	taskQueue.ch <- task

	select {
	case err := <-errorHandled:
		assert.Equal(t, expectedErr, err)
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for error handler")
	}
}

func TestWorkerPool_ProcessTask_Panic(t *testing.T) {
	taskQueue := newMockTaskQueue()
	errorHandled := make(chan error, 2)

	panicking := newMockTask()
	panicking.execFn = func(ctx context.Context) error {
		panic("test panic")
	}
	after := newMockTask()
	after.execFn = func(ctx context.Context) error {
		return errors.New("second task ran")
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(task Task, err error) {
		errorHandled <- err
	})
	pool.Start()
	defer pool.Stop()

	taskQueue.ch <- panicking
	taskQueue.ch <- after

	for _, want := range []string{"task panicked: test panic", "second task ran"} {
		select {
		case err := <-errorHandled:
			assert.EqualError(t, err, want)
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for error handler")
		}
	}
}

func TestWorkerPool_StopDrainsWithCancelledContext(t *testing.T) {
	taskQueue := newMockTaskQueue()
	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())

	var cancelled atomic.Int32
	for i := 0; i < 3; i++ {
		task := newMockTask()
		task.execFn = func(ctx context.Context) error {
			if ctx.Err() != nil {
				cancelled.Add(1)
			}
			return nil
		}
		taskQueue.ch <- task
	}

	// Stop before Start so every buffered task is drained after cancellation.
	pool.cancel()
	pool.Start()
	pool.Stop()

	require.Empty(t, taskQueue.ch)
	assert.Equal(t, int32(3), cancelled.Load())
}
