package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
	"github.com/phrazzld/newslens/internal/task"
)

// Response status values. A running task is reported as processing.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusSuccess    = "success"
)

// AnalyzeRequest defines the payload for starting an analysis.
type AnalyzeRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
}

// AnalyzeResponse is returned by POST /api/analyses. Data is set only when a
// completed result was served from cache.
type AnalyzeResponse struct {
	Status  string                 `json:"status"`
	TaskID  uuid.UUID              `json:"task_id"`
	Message string                 `json:"message"`
	Data    *domain.AnalysisResult `json:"data,omitempty"`
}

// ProgressResponse mirrors task.Progress.
type ProgressResponse struct {
	Stage    string  `json:"stage"`
	Fraction float64 `json:"fraction"`
}

// TaskErrorResponse describes why a task failed.
type TaskErrorResponse struct {
	Kind    string `json:"kind"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message"`
}

// TaskStatusResponse is returned by GET /api/analyses/{taskID}.
type TaskStatusResponse struct {
	Status     string                 `json:"status"`
	TaskID     uuid.UUID              `json:"task_id"`
	Entity     string                 `json:"entity"`
	Completed  bool                   `json:"completed"`
	Progress   ProgressResponse       `json:"progress"`
	Data       *domain.AnalysisResult `json:"data,omitempty"`
	Error      *TaskErrorResponse     `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	StartedAt  *time.Time             `json:"started_at,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// EntitiesResponse is returned by GET /api/entities.
type EntitiesResponse struct {
	Companies []string `json:"companies"`
}

func statusOf(s task.State) string {
	switch s {
	case task.StatePending:
		return StatusPending
	case task.StateRunning:
		return StatusProcessing
	case task.StateCompleted:
		return StatusCompleted
	default:
		return StatusFailed
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func snapshotToResponse(snap task.Snapshot) TaskStatusResponse {
	resp := TaskStatusResponse{
		Status:     statusOf(snap.State),
		TaskID:     snap.ID,
		Entity:     snap.Entity,
		Completed:  snap.State.IsTerminal(),
		Progress:   ProgressResponse{Stage: snap.Progress.Stage, Fraction: snap.Progress.Fraction},
		CreatedAt:  snap.CreatedAt,
		StartedAt:  optionalTime(snap.StartedAt),
		FinishedAt: optionalTime(snap.FinishedAt),
	}
	if snap.State == task.StateCompleted {
		resp.Data = snap.Result
	}
	if snap.Error != nil {
		resp.Error = &TaskErrorResponse{
			Kind:    string(snap.Error.Kind),
			Stage:   snap.Error.Stage,
			Message: snap.Error.Message,
		}
	}
	return resp
}
