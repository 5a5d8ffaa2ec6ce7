// Package results answers status and result queries for review tasks.
package results

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/review-broker/internal/core"
)

// Service reads tasks for the polling API. It never mutates them.
type Service struct {
	tasks  core.TaskStore
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(tasks core.TaskStore, logger *slog.Logger) *Service {
	return &Service{tasks: tasks, logger: logger}
}

// Status returns the task with its current status.
func (s *Service) Status(ctx context.Context, taskID string) (*core.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id is required", core.ErrNotFound)
	}
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	return task, nil
}

// Result returns a terminal task. Tasks that are still PENDING or PROCESSING
// yield core.ErrNotReady; a FAILURE task is returned with its error.
func (s *Service) Result(ctx context.Context, taskID string) (*core.Task, error) {
	task, err := s.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Status.IsTerminal() {
		s.logger.Debug("result requested before completion", "task_id", taskID, "status", task.Status)
		return task, fmt.Errorf("task %s is %s: %w", taskID, task.Status, core.ErrNotReady)
	}
	return task, nil
}

// PublicStatus maps terminal statuses to the names polling clients expect:
// COMPLETED for SUCCESS and FAILED for FAILURE.
func PublicStatus(s core.TaskStatus) string {
	switch s {
	case core.StatusSuccess:
		return "COMPLETED"
	case core.StatusFailure:
		return "FAILED"
	default:
		return string(s)
	}
}
