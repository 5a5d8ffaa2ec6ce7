// Package jobs turns review requests into tasks and runs them on a worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/gitutil"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// dispatcher implements core.JobDispatcher. It answers from the result cache
// when it can and otherwise creates a PENDING task and queues it for a worker.
type dispatcher struct {
	tasks  core.TaskStore
	cache  core.CacheStore
	queue  core.WorkQueue
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewDispatcher creates the submission entry point shared by the HTTP API,
// the webhook receiver and the CLI.
func NewDispatcher(tasks core.TaskStore, cache core.CacheStore, queue core.WorkQueue, logger *slog.Logger) core.JobDispatcher {
	return &dispatcher{
		tasks:  tasks,
		cache:  cache,
		queue:  queue,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Submit validates the request, then either records a cached SUCCESS task or
// creates and enqueues a PENDING one. Store and queue failures surface as
// core.ErrBusy so the caller can retry.
func (d *dispatcher) Submit(ctx context.Context, req core.SubmitRequest) (*core.SubmitResult, error) {
	repo, err := gitutil.ParseRepository(req.RepoRef)
	if err != nil {
		telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "rejected").Inc()
		return nil, err
	}
	if req.PRNumber <= 0 {
		telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "rejected").Inc()
		return nil, fmt.Errorf("%w: pull request number must be positive, got %d", core.ErrInvalidInput, req.PRNumber)
	}

	repoName := repo.FullName()
	revision := strings.TrimSpace(req.Revision)
	logger := d.logger.With("repo", repoName, "pr", req.PRNumber, "revision", revision, "source", sourceOf(req))

	if revision != "" {
		entry, err := d.cache.Get(ctx, core.CacheKey{Repository: repoName, Revision: revision})
		switch {
		case err == nil:
			telemetry.CacheLookups.WithLabelValues("dispatcher", "hit").Inc()
			return d.submitCached(ctx, logger, req, repoName, revision, entry)
		case errors.Is(err, core.ErrNotFound):
			telemetry.CacheLookups.WithLabelValues("dispatcher", "miss").Inc()
		default:
			telemetry.CacheLookups.WithLabelValues("dispatcher", "error").Inc()
			logger.Error("cache lookup failed", "error", err)
			return nil, fmt.Errorf("%w: cache lookup failed: %w", core.ErrBusy, err)
		}
	}

	task := &core.Task{
		ID:         d.newID(),
		Repository: repoName,
		PRNumber:   req.PRNumber,
		Revision:   revision,
		Status:     core.StatusPending,
	}
	if err := d.tasks.Create(ctx, task); err != nil {
		var active *core.ActiveTaskError
		if errors.As(err, &active) {
			return d.joinActive(ctx, logger, req, active)
		}
		logger.Error("failed to create task", "error", err)
		return nil, fmt.Errorf("%w: failed to create task: %w", core.ErrBusy, err)
	}

	// The previous owner of the revision may have cached its result between the
	// lookup above and Create. Later arrivals are caught by the worker's recheck.
	if revision != "" {
		res, err := d.settleFromCache(ctx, logger, req, task)
		if err != nil || res != nil {
			return res, err
		}
	}

	item := &core.WorkItem{
		TaskID:      task.ID,
		Repository:  repoName,
		PRNumber:    req.PRNumber,
		Revision:    revision,
		Credentials: req.Credentials,
		EnqueuedAt:  d.now().UTC(),
	}
	if err := d.queue.Enqueue(ctx, item); err != nil {
		logger.Warn("failed to queue review job", "task_id", task.ID, "error", err)
		d.abandon(ctx, logger, task.ID, err)
		telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "rejected").Inc()
		return nil, fmt.Errorf("%w: failed to enqueue task %s: %w", core.ErrBusy, task.ID, err)
	}

	logger.Info("queued review job", "task_id", task.ID)
	telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "queued").Inc()
	return &core.SubmitResult{TaskID: task.ID, Status: core.StatusPending}, nil
}

// submitCached records a task that is born SUCCESS and points at the cache
// entry. No work is queued.
func (d *dispatcher) submitCached(ctx context.Context, logger *slog.Logger, req core.SubmitRequest, repoName, revision string, entry *core.CacheEntry) (*core.SubmitResult, error) {
	task := &core.Task{
		ID:           d.newID(),
		Repository:   repoName,
		PRNumber:     req.PRNumber,
		Revision:     revision,
		Status:       core.StatusSuccess,
		Result:       entry.Result,
		SourceTaskID: entry.TaskID,
	}
	if err := d.tasks.Create(ctx, task); err != nil {
		logger.Error("failed to record cached task", "error", err)
		return nil, fmt.Errorf("%w: failed to create task: %w", core.ErrBusy, err)
	}

	logger.Info("answered review from cache", "task_id", task.ID, "source_task_id", entry.TaskID)
	telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "cached").Inc()
	return &core.SubmitResult{TaskID: task.ID, Status: core.StatusSuccess}, nil
}

// settleFromCache completes a freshly created PENDING task from the cache
// without queueing it. A nil result with a nil error means there is nothing
// cached, or the task could not be claimed, and it should be queued as usual.
func (d *dispatcher) settleFromCache(ctx context.Context, logger *slog.Logger, req core.SubmitRequest, task *core.Task) (*core.SubmitResult, error) {
	entry, err := d.cache.Get(ctx, core.CacheKey{Repository: task.Repository, Revision: task.Revision})
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			logger.Warn("cache recheck failed, queueing task", "task_id", task.ID, "error", err)
		}
		return nil, nil
	}
	telemetry.CacheLookups.WithLabelValues("dispatcher", "hit").Inc()

	if _, err := d.tasks.Transition(ctx, task.ID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{}); err != nil {
		logger.Warn("failed to settle task from cache, queueing it", "task_id", task.ID, "error", err)
		return nil, nil
	}

	ctx = context.WithoutCancel(ctx)
	update := core.TaskUpdate{Revision: task.Revision, Result: entry.Result, SourceTaskID: entry.TaskID}
	if _, err := d.tasks.Transition(ctx, task.ID, core.StatusProcessing, core.StatusSuccess, update); err != nil {
		logger.Error("failed to settle task from cache", "task_id", task.ID, "error", err)
		// No worker will ever see this task; release its revision claim.
		failure := core.TaskUpdate{Error: fmt.Sprintf("failed to record cached result: %v", err)}
		if _, ferr := d.tasks.Transition(ctx, task.ID, core.StatusProcessing, core.StatusFailure, failure); ferr != nil {
			logger.Error("failed to release task", "task_id", task.ID, "error", ferr)
		}
		return nil, fmt.Errorf("%w: failed to record cached result for task %s: %w", core.ErrBusy, task.ID, err)
	}

	logger.Info("answered review from cache", "task_id", task.ID, "source_task_id", entry.TaskID)
	telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "cached").Inc()
	return &core.SubmitResult{TaskID: task.ID, Status: core.StatusSuccess}, nil
}

// joinActive answers with the task that is already reviewing the revision.
func (d *dispatcher) joinActive(ctx context.Context, logger *slog.Logger, req core.SubmitRequest, active *core.ActiveTaskError) (*core.SubmitResult, error) {
	existing, err := d.tasks.Get(ctx, active.TaskID)
	if err != nil {
		logger.Error("failed to load active task", "task_id", active.TaskID, "error", err)
		return nil, fmt.Errorf("%w: failed to load active task: %w", core.ErrBusy, err)
	}

	logger.Info("joined active review", "task_id", existing.ID, "status", existing.Status)
	telemetry.TasksSubmitted.WithLabelValues(sourceOf(req), "deduplicated").Inc()
	return &core.SubmitResult{TaskID: existing.ID, Status: existing.Status, Deduplicated: true}, nil
}

// abandon fails a task that never reached the queue so it does not sit in
// PENDING and keep its revision claim.
func (d *dispatcher) abandon(ctx context.Context, logger *slog.Logger, taskID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := d.tasks.Transition(ctx, taskID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{}); err != nil {
		logger.Error("failed to abandon unqueued task", "task_id", taskID, "error", err)
		return
	}
	update := core.TaskUpdate{Error: fmt.Sprintf("task was not queued: %v", cause)}
	if _, err := d.tasks.Transition(ctx, taskID, core.StatusProcessing, core.StatusFailure, update); err != nil {
		logger.Error("failed to abandon unqueued task", "task_id", taskID, "error", err)
	}
}

func sourceOf(req core.SubmitRequest) string {
	if req.Source == "" {
		return "api"
	}
	return req.Source
}
