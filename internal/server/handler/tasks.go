package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/results"
)

type resultResponse struct {
	TaskID  string             `json:"task_id"`
	Status  string             `json:"status"`
	Results *core.ReviewResult `json:"results,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// TasksHandler serves status and result polling.
type TasksHandler struct {
	results *results.Service
	logger  *slog.Logger
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(svc *results.Service, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{results: svc, logger: logger}
}

// Status serves GET /status/{task_id}.
func (h *TasksHandler) Status(w http.ResponseWriter, r *http.Request) {
	task, err := h.results.Status(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{TaskID: task.ID, Status: string(task.Status)})
}

// Result serves GET /results/{task_id}. Unfinished tasks answer 200 with
// their current status and no results.
func (h *TasksHandler) Result(w http.ResponseWriter, r *http.Request) {
	task, err := h.results.Result(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil && !errors.Is(err, core.ErrNotReady) {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resultResponse{
		TaskID:  task.ID,
		Status:  results.PublicStatus(task.Status),
		Results: task.Result,
		Error:   task.Error,
	})
}
