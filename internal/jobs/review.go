package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/gitutil"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// ErrNoDiffContent marks a pull request without any reviewable patch.
var ErrNoDiffContent = errors.New("no diff content found")

// ReviewJobConfig tunes a ReviewJob.
type ReviewJobConfig struct {
	Retry RetryPolicy
}

// ReviewJob is the analysis worker body: it drives one task from PENDING to a
// terminal status.
type ReviewJob struct {
	tasks    core.TaskStore
	cache    core.CacheStore
	fetchers core.DiffFetcherFactory
	analyzer core.ReviewAnalyzer
	cfg      ReviewJobConfig
	logger   *slog.Logger
}

// NewReviewJob creates a new ReviewJob.
func NewReviewJob(tasks core.TaskStore, cache core.CacheStore, fetchers core.DiffFetcherFactory, analyzer core.ReviewAnalyzer, cfg ReviewJobConfig, logger *slog.Logger) *ReviewJob {
	if tasks == nil || cache == nil {
		panic("stores cannot be nil")
	}
	if fetchers == nil || analyzer == nil {
		panic("collaborators cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{
		tasks:    tasks,
		cache:    cache,
		fetchers: fetchers,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
	}
}

// outcome is the terminal status a run decided on.
type outcome struct {
	status core.TaskStatus
	update core.TaskUpdate
}

func succeeded(revision string, result *core.ReviewResult, sourceTaskID string) outcome {
	return outcome{status: core.StatusSuccess, update: core.TaskUpdate{Revision: revision, Result: result, SourceTaskID: sourceTaskID}}
}

func failed(revision, format string, args ...any) outcome {
	return outcome{status: core.StatusFailure, update: core.TaskUpdate{Revision: revision, Error: fmt.Sprintf(format, args...)}}
}

// Run claims the task and drives it to SUCCESS or FAILURE. A lost claim is
// not an error: another actor already owns the task. A panic after the claim
// still records FAILURE.
func (j *ReviewJob) Run(ctx context.Context, item *core.WorkItem) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "review.run", trace.WithAttributes(
		attribute.String("task.id", item.TaskID),
		attribute.String("repo", item.Repository),
		attribute.Int("pr", item.PRNumber),
	))
	defer span.End()

	logger := j.logger.With("task_id", item.TaskID, "repo", item.Repository, "pr", item.PRNumber)

	if err := j.claim(ctx, item.TaskID); err != nil {
		if errors.Is(err, core.ErrStaleTransition) || errors.Is(err, core.ErrNotFound) {
			logger.Warn("Skipping work item, task is owned elsewhere", "error", err)
			span.AddEvent("claim lost")
			return nil
		}
		logger.Error("Failed to claim task", "error", err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to claim task %s: %w", item.TaskID, err)
	}

	telemetry.TasksInFlight.Inc()
	defer telemetry.TasksInFlight.Dec()
	start := time.Now()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("Review job panicked", "panic", r)
		span.SetStatus(codes.Error, fmt.Sprint(r))
		telemetry.TasksFinished.WithLabelValues(string(core.StatusFailure)).Inc()
		if ferr := j.finalize(ctx, item.TaskID, failed(item.Revision, "review job panicked: %v", r)); ferr != nil {
			logger.Error("Failed to record task outcome", "status", core.StatusFailure, "error", ferr)
		}
		err = fmt.Errorf("review job for task %s panicked: %v", item.TaskID, r)
	}()

	logger.Info("Starting review job", "revision", item.Revision)
	result := j.review(ctx, logger, item)

	if err := j.finalize(ctx, item.TaskID, result); err != nil {
		logger.Error("Failed to record task outcome", "status", result.status, "error", err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to finalize task %s: %w", item.TaskID, err)
	}

	telemetry.TasksFinished.WithLabelValues(string(result.status)).Inc()
	telemetry.TaskDurationSeconds.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("task.status", string(result.status)))

	if result.status == core.StatusFailure {
		logger.Warn("Review job failed", "error", result.update.Error)
		span.SetStatus(codes.Error, result.update.Error)
		return nil
	}
	logger.Info("Review job completed successfully",
		"revision", result.update.Revision,
		"source_task_id", result.update.SourceTaskID,
		"duration", time.Since(start),
	)
	return nil
}

// claim moves the task to PROCESSING. Only store outages are retried; a stale
// or missing task aborts at once.
func (j *ReviewJob) claim(ctx context.Context, taskID string) error {
	return backoff.Retry(func() error {
		_, err := j.tasks.Transition(ctx, taskID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
		if err == nil {
			return nil
		}
		if isSettled(err) {
			return backoff.Permanent(err)
		}
		return err
	}, j.cfg.Retry.backOff(ctx))
}

// review runs the fetch, cache and analysis steps and reports the terminal
// status to record. It never touches the task record.
func (j *ReviewJob) review(ctx context.Context, logger *slog.Logger, item *core.WorkItem) outcome {
	repo, err := gitutil.ParseRepository(item.Repository)
	if err != nil {
		return failed(item.Revision, "invalid repository: %v", err)
	}

	fetcher, err := j.fetchers.NewDiffFetcher(ctx, item.Credentials)
	if err != nil {
		return failed(item.Revision, "failed to create diff fetcher: %v", err)
	}

	revision := item.Revision
	if revision == "" {
		revision, err = retryCall(ctx, j.cfg.Retry, logger, "resolve_revision", func(ctx context.Context) (string, error) {
			return fetcher.ResolveRevision(ctx, repo, item.PRNumber)
		})
		if err != nil {
			return failed("", "failed to resolve revision: %v", err)
		}
		logger = logger.With("revision", revision)
		logger.Info("Resolved pull request head", "revision", revision)
	}

	key := core.CacheKey{Repository: item.Repository, Revision: revision}
	entry, err := j.cache.Get(ctx, key)
	switch {
	case err == nil:
		telemetry.CacheLookups.WithLabelValues("worker", "hit").Inc()
		logger.Info("Reusing cached review", "source_task_id", entry.TaskID)
		return succeeded(revision, entry.Result, entry.TaskID)
	case errors.Is(err, core.ErrNotFound):
		telemetry.CacheLookups.WithLabelValues("worker", "miss").Inc()
	default:
		telemetry.CacheLookups.WithLabelValues("worker", "error").Inc()
		return failed(revision, "cache store unavailable: %v", err)
	}

	files, err := retryCall(ctx, j.cfg.Retry, logger, "fetch_diff", func(ctx context.Context) ([]core.ChangedFile, error) {
		return fetcher.FetchDiff(ctx, repo, item.PRNumber, revision)
	})
	if err != nil {
		return failed(revision, "failed to fetch diff: %v", err)
	}
	files = reviewableFiles(files)
	if len(files) == 0 {
		return failed(revision, "%v", ErrNoDiffContent)
	}

	review, err := retryCall(ctx, j.cfg.Retry, logger, "analyze", func(ctx context.Context) (*core.ReviewResult, error) {
		return j.analyzer.Analyze(ctx, files)
	})
	if err != nil {
		return failed(revision, "%v", err)
	}
	if review == nil {
		return failed(revision, "%v", &core.AnalysisError{Kind: core.AnalysisParse, Err: errors.New("analyzer returned no review")})
	}
	review = ValidateReviewAgainstDiff(logger, review, gitutil.ValidLinesByFile(files, logger))

	created, err := j.cache.PutIfAbsent(ctx, key, &core.CacheEntry{Result: review, TaskID: item.TaskID})
	if err != nil {
		return failed(revision, "failed to store review result: %v", err)
	}
	if created {
		return succeeded(revision, review, "")
	}

	// Another worker cached this revision first; its entry is canonical.
	telemetry.CacheRacesLost.Inc()
	winner, err := j.cache.Get(ctx, key)
	if err != nil {
		return failed(revision, "failed to load cached review: %v", err)
	}
	logger.Info("Discarding duplicate analysis, revision already cached", "source_task_id", winner.TaskID)
	return succeeded(revision, winner.Result, winner.TaskID)
}

// finalize writes the terminal status. It outlives cancellation of ctx and
// retries store failures without a deadline; only a stale, missing or illegal
// transition ends it early.
func (j *ReviewJob) finalize(ctx context.Context, taskID string, o outcome) error {
	ctx = context.WithoutCancel(ctx)
	b := j.cfg.Retry.exponential()

	return backoff.RetryNotify(func() error {
		_, err := j.tasks.Transition(ctx, taskID, core.StatusProcessing, o.status, o.update)
		if err == nil {
			return nil
		}
		if isSettled(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		telemetry.RetriesTotal.WithLabelValues("finalize").Inc()
		j.logger.Warn("Retrying terminal status write", "task_id", taskID, "wait", wait, "error", err)
	})
}

// isSettled reports errors that no retry can change.
func isSettled(err error) bool {
	return errors.Is(err, core.ErrStaleTransition) ||
		errors.Is(err, core.ErrNotFound) ||
		errors.Is(err, core.ErrIllegalTransition)
}

func reviewableFiles(files []core.ChangedFile) []core.ChangedFile {
	out := make([]core.ChangedFile, 0, len(files))
	for _, f := range files {
		if strings.TrimSpace(f.Patch) != "" {
			out = append(out, f)
		}
	}
	return out
}
