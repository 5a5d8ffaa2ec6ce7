package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sevigo/review-broker/internal/core"
)

const maxRequestBytes = 1 << 20

type analyzeRequest struct {
	RepoURL     string `json:"repo_url"`
	PRNumber    int    `json:"pr_number"`
	Revision    string `json:"revision,omitempty"`
	GitHubToken string `json:"github_token,omitempty"`
}

type taskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// AnalyzeHandler accepts review requests from API clients.
type AnalyzeHandler struct {
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(dispatcher core.JobDispatcher, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{dispatcher: dispatcher, logger: logger}
}

// Handle serves POST /analyze-pr.
func (h *AnalyzeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeStrict(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.dispatcher.Submit(r.Context(), core.SubmitRequest{
		RepoRef:     req.RepoURL,
		PRNumber:    req.PRNumber,
		Revision:    req.Revision,
		Credentials: core.Credentials{Token: req.GitHubToken},
		Source:      "api",
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, taskResponse{TaskID: res.TaskID, Status: string(res.Status)})
}

// decodeStrict decodes a single JSON object and rejects unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %w", core.ErrInvalidInput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain a single JSON object", core.ErrInvalidInput)
	}
	return nil
}
