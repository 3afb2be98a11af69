package task

import (
	"log/slog"
	"time"
)

// AnalysisTaskFactory creates AnalysisTask instances that share one pipeline
// and one recorder.
type AnalysisTaskFactory struct {
	recorder TaskRecorder
	pipeline AnalysisPipeline
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAnalysisTaskFactory creates a new factory for AnalysisTasks
func NewAnalysisTaskFactory(
	recorder TaskRecorder,
	pipeline AnalysisPipeline,
	timeout time.Duration,
	logger *slog.Logger,
) *AnalysisTaskFactory {
	return &AnalysisTaskFactory{
		recorder: recorder,
		pipeline: pipeline,
		timeout:  timeout,
		logger:   logger,
	}
}

// CreateTask creates a new AnalysisTask for a pending record
func (f *AnalysisTaskFactory) CreateTask(snap Snapshot) (*AnalysisTask, error) {
	return NewAnalysisTask(snap, f.recorder, f.pipeline, f.timeout, f.logger)
}
