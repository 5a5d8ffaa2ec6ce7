package core

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a review task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusProcessing TaskStatus = "PROCESSING"
	StatusSuccess    TaskStatus = "SUCCESS"
	StatusFailure    TaskStatus = "FAILURE"
)

// IsTerminal returns true if no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailure:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from one status to another is legal.
// The only edges are PENDING -> PROCESSING -> {SUCCESS, FAILURE}.
func CanTransition(from, to TaskStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusSuccess || to == StatusFailure
	default:
		return false
	}
}

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// FullName returns the canonical lowercase "owner/name" form.
func (r Repository) FullName() string {
	return strings.ToLower(r.Owner + "/" + r.Name)
}

func (r Repository) String() string { return r.FullName() }

// Task is a single review request and its outcome.
type Task struct {
	ID           string        `json:"task_id"`
	Repository   string        `json:"repo"`
	PRNumber     int           `json:"pr_number"`
	Revision     string        `json:"revision,omitempty"`
	Status       TaskStatus    `json:"status"`
	Result       *ReviewResult `json:"results,omitempty"`
	SourceTaskID string        `json:"source_task_id,omitempty"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ActiveKey returns the revision claim held by the task while it is not
// terminal, or the zero key when the revision was unknown at creation.
func (t *Task) ActiveKey() (CacheKey, bool) {
	if t.Revision == "" || t.Status.IsTerminal() {
		return CacheKey{}, false
	}
	return CacheKey{Repository: t.Repository, Revision: t.Revision}, true
}

// TaskUpdate carries the fields a status transition may set.
type TaskUpdate struct {
	Revision     string
	Result       *ReviewResult
	SourceTaskID string
	Error        string
}

// Apply copies the update onto t and moves it to status.
func (u TaskUpdate) Apply(t *Task, status TaskStatus, now time.Time) {
	if u.Revision != "" {
		t.Revision = u.Revision
	}
	switch status {
	case StatusSuccess:
		t.Result = u.Result
		t.SourceTaskID = u.SourceTaskID
		t.Error = ""
	case StatusFailure:
		t.Result = nil
		t.Error = u.Error
	}
	t.Status = status
	t.UpdatedAt = now
}

// CacheKey identifies a reviewed revision.
type CacheKey struct {
	Repository string
	Revision   string
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s@%s", k.Repository, k.Revision)
}

// CacheEntry is the canonical review of one revision.
type CacheEntry struct {
	Key       CacheKey      `json:"-"`
	Result    *ReviewResult `json:"result"`
	TaskID    string        `json:"task_id"`
	CreatedAt time.Time     `json:"created_at"`
}

// Credentials selects how the diff fetcher authenticates against GitHub.
type Credentials struct {
	Token          string `json:"token,omitempty"`
	InstallationID int64  `json:"installation_id,omitempty"`
}

// WorkItem is one unit of work handed from the dispatcher to a worker.
type WorkItem struct {
	TaskID      string      `json:"task_id"`
	Repository  string      `json:"repo"`
	PRNumber    int         `json:"pr_number"`
	Revision    string      `json:"revision,omitempty"`
	Credentials Credentials `json:"credentials"`
	EnqueuedAt  time.Time   `json:"enqueued_at"`
}

// ChangedFile is a single file of a pull request with its unified diff patch.
type ChangedFile struct {
	Path  string
	Patch string
}
