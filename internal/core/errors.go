package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrStaleTransition   = errors.New("stale status transition")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrNotReady          = errors.New("result not ready")
	ErrBusy              = errors.New("service busy, retry later")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrSignatureInvalid  = errors.New("invalid webhook signature")
	ErrQueueFull         = errors.New("work queue is full")
	ErrQueueClosed       = errors.New("work queue is closed")
)

// StaleTransitionError is returned by a TaskStore when the stored status of a
// task does not match the status the caller expected to move it from.
type StaleTransitionError struct {
	TaskID   string
	Expected TaskStatus
	Actual   TaskStatus
}

func (e *StaleTransitionError) Error() string {
	return fmt.Sprintf("task %s: expected status %s, found %s", e.TaskID, e.Expected, e.Actual)
}

func (e *StaleTransitionError) Unwrap() error { return ErrStaleTransition }

// ActiveTaskError is returned when another non-terminal task already owns the
// same repository revision.
type ActiveTaskError struct {
	TaskID string
	Key    CacheKey
}

func (e *ActiveTaskError) Error() string {
	return fmt.Sprintf("task %s is already reviewing %s", e.TaskID, e.Key)
}

func (e *ActiveTaskError) Unwrap() error { return ErrConflict }

// FetchErrorKind classifies failures of the diff fetcher.
type FetchErrorKind string

const (
	FetchNotFound      FetchErrorKind = "not_found"
	FetchAuth          FetchErrorKind = "auth"
	FetchRateLimited   FetchErrorKind = "rate_limited"
	FetchTransient     FetchErrorKind = "transient"
	FetchStaleRevision FetchErrorKind = "stale_revision"
)

// FetchError wraps a failure talking to the source-control host.
type FetchError struct {
	Kind FetchErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchRateLimited || e.Kind == FetchTransient
}

// AnalysisErrorKind classifies failures of the review analyzer.
type AnalysisErrorKind string

const (
	AnalysisTimeout  AnalysisErrorKind = "timeout"
	AnalysisModel    AnalysisErrorKind = "model"
	AnalysisParse    AnalysisErrorKind = "parse"
	AnalysisTooLarge AnalysisErrorKind = "too_large"
)

// AnalysisError wraps a failure of the language-model backend.
type AnalysisError struct {
	Kind AnalysisErrorKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed (%s): %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Output that cannot be
// parsed into a review and diffs that do not fit the prompt are never retried.
func (e *AnalysisError) Retryable() bool {
	return e.Kind != AnalysisParse && e.Kind != AnalysisTooLarge
}

// IsRetryable reports whether err is a transient collaborator failure.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
