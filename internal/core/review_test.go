package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []TaskStatus{StatusPending, StatusProcessing, StatusSuccess, StatusFailure}
	legal := map[[2]TaskStatus]bool{
		{StatusPending, StatusProcessing}: true,
		{StatusProcessing, StatusSuccess}: true,
		{StatusProcessing, StatusFailure}: true,
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				assert.Equal(t, legal[[2]TaskStatus{from, to}], CanTransition(from, to))
			})
		}
	}
}

func TestTaskUpdateApply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	result := &ReviewResult{Files: []FileReview{}}

	task := &Task{ID: "t1", Status: StatusProcessing}
	TaskUpdate{Revision: "abc", Result: result, SourceTaskID: "t0"}.Apply(task, StatusSuccess, now)

	assert.Equal(t, StatusSuccess, task.Status)
	assert.Equal(t, "abc", task.Revision)
	assert.Same(t, result, task.Result)
	assert.Equal(t, "t0", task.SourceTaskID)
	assert.Equal(t, now, task.UpdatedAt)

	failed := &Task{ID: "t2", Status: StatusProcessing, Revision: "keep"}
	TaskUpdate{Error: "boom"}.Apply(failed, StatusFailure, now)
	assert.Equal(t, "keep", failed.Revision)
	assert.Nil(t, failed.Result)
	assert.Equal(t, "boom", failed.Error)
}

func TestTaskActiveKey(t *testing.T) {
	task := &Task{Repository: "org/repo", Revision: "abc", Status: StatusPending}
	key, ok := task.ActiveKey()
	require.True(t, ok)
	assert.Equal(t, CacheKey{Repository: "org/repo", Revision: "abc"}, key)

	task.Status = StatusSuccess
	_, ok = task.ActiveKey()
	assert.False(t, ok)

	_, ok = (&Task{Repository: "org/repo", Status: StatusPending}).ActiveKey()
	assert.False(t, ok)
}

func TestReviewResultNormalize(t *testing.T) {
	r := &ReviewResult{
		Files: []FileReview{
			{FilePath: "main.go", Issues: []Issue{
				{Type: IssueBug, Line: 1, Description: "nil deref"},
				{Type: IssueStyle, Line: 2, Description: "naming"},
			}},
			{FilePath: "auth.go", Issues: []Issue{
				{Type: IssueSecurity, Line: 9, Description: "hardcoded secret"},
			}},
			{FilePath: "README.md"},
		},
		Summary: Summary{TotalIssuesFound: 99, CriticalIssues: 42, Overview: "ok"},
	}

	r.Normalize()

	assert.Equal(t, 3, r.Summary.TotalFilesReviewed)
	assert.Equal(t, 3, r.Summary.TotalIssuesFound)
	assert.Equal(t, 2, r.Summary.CriticalIssues)
	assert.Equal(t, "ok", r.Summary.Overview)
	assert.NotNil(t, r.Files[2].Issues)

	empty := &ReviewResult{}
	empty.Normalize()
	assert.NotNil(t, empty.Files)
	assert.Zero(t, empty.Summary.TotalIssuesFound)
}

func TestReviewResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		review  *ReviewResult
		wantErr bool
	}{
		{name: "nil review", review: nil, wantErr: true},
		{name: "empty review", review: &ReviewResult{}},
		{
			name: "valid",
			review: &ReviewResult{Files: []FileReview{{FilePath: "a.go", Issues: []Issue{
				{Type: IssuePerformance, Line: 3, Description: "loop"},
			}}}},
		},
		{
			name:    "missing path",
			review:  &ReviewResult{Files: []FileReview{{}}},
			wantErr: true,
		},
		{
			name: "unknown type",
			review: &ReviewResult{Files: []FileReview{{FilePath: "a.go", Issues: []Issue{
				{Type: "nitpick", Line: 3, Description: "x"},
			}}}},
			wantErr: true,
		},
		{
			name: "negative line",
			review: &ReviewResult{Files: []FileReview{{FilePath: "a.go", Issues: []Issue{
				{Type: IssueBug, Line: -1, Description: "x"},
			}}}},
			wantErr: true,
		},
		{
			name: "missing description",
			review: &ReviewResult{Files: []FileReview{{FilePath: "a.go", Issues: []Issue{
				{Type: IssueBug, Line: 1},
			}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.review.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&FetchError{Kind: FetchTransient, Err: errors.New("eof")}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &FetchError{Kind: FetchRateLimited})))
	assert.False(t, IsRetryable(&FetchError{Kind: FetchNotFound}))
	assert.False(t, IsRetryable(&FetchError{Kind: FetchAuth}))
	assert.False(t, IsRetryable(&FetchError{Kind: FetchStaleRevision}))
	assert.True(t, IsRetryable(&AnalysisError{Kind: AnalysisTimeout}))
	assert.True(t, IsRetryable(&AnalysisError{Kind: AnalysisModel}))
	assert.False(t, IsRetryable(&AnalysisError{Kind: AnalysisParse}))
	assert.False(t, IsRetryable(&AnalysisError{Kind: AnalysisTooLarge}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestStaleTransitionErrorIs(t *testing.T) {
	err := fmt.Errorf("transition: %w", &StaleTransitionError{TaskID: "t", Expected: StatusPending, Actual: StatusSuccess})
	assert.ErrorIs(t, err, ErrStaleTransition)

	active := &ActiveTaskError{TaskID: "t"}
	assert.ErrorIs(t, active, ErrConflict)
}

func TestEventFromPullRequest(t *testing.T) {
	event := &github.PullRequestEvent{
		Action: github.Ptr("synchronize"),
		Number: github.Ptr(42),
		PullRequest: &github.PullRequest{
			Number: github.Ptr(42),
			Head:   &github.PullRequestBranch{SHA: github.Ptr("deadbeef")},
		},
		Repo:         &github.Repository{FullName: github.Ptr("org/repo")},
		Installation: &github.Installation{ID: github.Ptr(int64(7))},
	}

	got, err := EventFromPullRequest("delivery-1", event)
	require.NoError(t, err)
	assert.Equal(t, "delivery-1", got.DeliveryID)
	assert.Equal(t, "org/repo", got.RepoFullName)
	assert.Equal(t, 42, got.PRNumber)
	assert.Equal(t, "deadbeef", got.HeadSHA)
	assert.Equal(t, int64(7), got.InstallationID)
	assert.True(t, got.Actionable())

	got.Action = "closed"
	assert.False(t, got.Actionable())

	_, err = EventFromPullRequest("d", &github.PullRequestEvent{Number: github.Ptr(1)})
	assert.Error(t, err)

	_, err = EventFromPullRequest("d", &github.PullRequestEvent{Repo: &github.Repository{FullName: github.Ptr("org/repo")}})
	assert.Error(t, err)
}
