package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/api/shared"
	"github.com/phrazzld/newslens/internal/service"
	"github.com/phrazzld/newslens/internal/task"
)

// TaskIDParam is the chi URL parameter holding the task ID.
const TaskIDParam = "taskID"

// AnalysisHandler serves the analysis endpoints.
type AnalysisHandler struct {
	service service.AnalysisService
	logger  *slog.Logger
}

// NewAnalysisHandler creates an AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service: analysisService,
		logger:  logger.With("component", "analysis_handler"),
	}
}

// Routes mounts the handler on r.
func (h *AnalysisHandler) Routes(r chi.Router) {
	r.Post("/analyses", h.RequestAnalysis)
	r.Get("/analyses/{"+TaskIDParam+"}", h.GetTaskStatus)
	r.Get("/analyses/{"+TaskIDParam+"}/audio", h.GetTaskAudio)
	r.Get("/entities", h.ListEntities)
}

// RequestAnalysis handles POST /analyses. A cached result is returned with
// 200, anything still being worked on with 202.
func (h *AnalysisHandler) RequestAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, h.logger, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, h.logger, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	handle, err := h.service.RequestAnalysis(r.Context(), req.CompanyName)
	if err != nil {
		HandleAPIError(w, r, h.logger, err, "")
		return
	}

	if handle.Outcome == task.OutcomeCompleted {
		shared.RespondWithJSON(w, r, http.StatusOK, AnalyzeResponse{
			Status:  StatusSuccess,
			TaskID:  handle.TaskID,
			Message: "Analysis retrieved from cache",
			Data:    handle.Result,
		})
		return
	}

	message := "Analysis started"
	if handle.Outcome == task.OutcomeInFlight {
		message = "Analysis already in progress"
	}
	w.Header().Set("Location", fmt.Sprintf("/api/analyses/%s", handle.TaskID))
	shared.RespondWithJSON(w, r, http.StatusAccepted, AnalyzeResponse{
		Status:  StatusProcessing,
		TaskID:  handle.TaskID,
		Message: message,
	})
}

// GetTaskStatus handles GET /analyses/{taskID}.
func (h *AnalysisHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.lookup(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snap))
}

// GetTaskAudio handles GET /analyses/{taskID}/audio and streams the
// synthesized summary. Tasks without audio answer 404.
func (h *AnalysisHandler) GetTaskAudio(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if snap.State != task.StateCompleted || !snap.Result.HasAudio() {
		shared.RespondWithError(w, r, http.StatusNotFound, "No audio available for this task")
		return
	}

	speech := snap.Result.Speech
	mimeType := speech.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(speech.Audio)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(speech.Audio); err != nil {
		h.logger.DebugContext(r.Context(), "failed to write audio", "error", err)
	}
}

// ListEntities handles GET /entities.
func (h *AnalysisHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, EntitiesResponse{
		Companies: h.service.ListKnownEntities(r.Context()),
	})
}

func (h *AnalysisHandler) lookup(w http.ResponseWriter, r *http.Request) (task.Snapshot, bool) {
	id, err := uuid.Parse(chi.URLParam(r, TaskIDParam))
	if err != nil {
		HandleAPIError(w, r, h.logger, fmt.Errorf("%w: %w", errInvalidTaskID, err), "")
		return task.Snapshot{}, false
	}

	snap, err := h.service.PollStatus(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, h.logger, err, "")
		return task.Snapshot{}, false
	}
	return snap, true
}
