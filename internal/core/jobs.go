// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
	"time"
)

// SubmitRequest asks for a pull request to be reviewed.
type SubmitRequest struct {
	// RepoRef is the repository as supplied by the caller: "owner/name" or a
	// GitHub URL.
	RepoRef     string
	PRNumber    int
	Revision    string
	Credentials Credentials
	// Source names the entry point ("api", "webhook", "cli") for logs and metrics.
	Source string
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	TaskID string
	Status TaskStatus
	// Deduplicated is set when the submission joined a task that was already
	// reviewing the same revision.
	Deduplicated bool
}

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// event source (e.g., a webhook handler) from the job execution mechanism.
//
//go:generate mockgen -destination=../../mocks/mock_job_dispatcher.go -package=mocks . JobDispatcher
type JobDispatcher interface {
	// Submit performs the cache-or-create decision and queues the work.
	// It returns ErrInvalidInput for malformed references and ErrBusy when the
	// request could not be queued, providing a mechanism for backpressure.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

// Job represents a single, executable unit of work that can be processed by the
// application's worker pool.
type Job interface {
	// Run executes the job's logic for one work item. A returned error is
	// informational only; the task record carries the outcome.
	Run(ctx context.Context, item *WorkItem) error
}

// TaskStore persists tasks. Every mutation is a single-key create or
// compare-and-swap.
//
//go:generate mockgen -destination=../../mocks/mock_stores.go -package=mocks . TaskStore,CacheStore,DeliveryStore
type TaskStore interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Transition(ctx context.Context, id string, from, to TaskStatus, update TaskUpdate) (*Task, error)
}

// CacheStore persists the canonical review of each revision.
type CacheStore interface {
	Get(ctx context.Context, key CacheKey) (*CacheEntry, error)
	// PutIfAbsent stores entry unless one exists. It returns true iff this
	// call created the entry.
	PutIfAbsent(ctx context.Context, key CacheKey, entry *CacheEntry) (bool, error)
}

// DeliveryStore remembers webhook deliveries for replay protection.
type DeliveryStore interface {
	// RecordIfAbsent returns true iff the delivery id was not seen before.
	RecordIfAbsent(ctx context.Context, deliveryID string, receivedAt time.Time) (bool, error)
	// Forget removes a record so a redelivery is processed again.
	Forget(ctx context.Context, deliveryID string) error
	// Purge removes records received before cutoff and returns how many were removed.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Delivery is a work item claimed by one consumer.
type Delivery struct {
	Item    *WorkItem
	Receipt string
}

// WorkQueue hands work items to exactly one consumer at a time.
type WorkQueue interface {
	// Enqueue adds an item or fails with ErrQueueFull without blocking.
	Enqueue(ctx context.Context, item *WorkItem) error
	// Dequeue blocks until an item is available. It returns ErrQueueClosed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) (*Delivery, error)
	// Ack marks a delivery as processed.
	Ack(ctx context.Context, d *Delivery) error
	Close() error
}

// QueueDepth is implemented by queues that can report how many items wait
// to be dequeued.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
}

// DiffFetcher reads pull request data from the source-control host.
//
//go:generate mockgen -destination=../../mocks/mock_diff_fetcher.go -package=mocks . DiffFetcher,DiffFetcherFactory
type DiffFetcher interface {
	ResolveRevision(ctx context.Context, repo Repository, prNumber int) (string, error)
	FetchDiff(ctx context.Context, repo Repository, prNumber int, revision string) ([]ChangedFile, error)
}

// DiffFetcherFactory creates fetchers authenticated with the given credentials.
type DiffFetcherFactory interface {
	NewDiffFetcher(ctx context.Context, creds Credentials) (DiffFetcher, error)
}

// ReviewAnalyzer turns a diff into a structured review.
//
//go:generate mockgen -destination=../../mocks/mock_review_analyzer.go -package=mocks . ReviewAnalyzer
type ReviewAnalyzer interface {
	Analyze(ctx context.Context, files []ChangedFile) (*ReviewResult, error)
}
