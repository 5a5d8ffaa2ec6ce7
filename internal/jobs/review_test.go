package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/storage"
	"github.com/sevigo/review-broker/mocks"
)

const testPatch = "@@ -1,2 +1,3 @@\n package main\n+\n+var x = 1"

var testRepo = core.Repository{Owner: "org", Name: "repo"}

type reviewFixture struct {
	job      *ReviewJob
	tasks    core.TaskStore
	cache    core.CacheStore
	factory  *mocks.MockDiffFetcherFactory
	fetcher  *mocks.MockDiffFetcher
	analyzer *mocks.MockReviewAnalyzer
}

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &reviewFixture{
		tasks:    storage.NewMemoryTaskStore(),
		cache:    storage.NewMemoryCacheStore(),
		factory:  mocks.NewMockDiffFetcherFactory(ctrl),
		fetcher:  mocks.NewMockDiffFetcher(ctrl),
		analyzer: mocks.NewMockReviewAnalyzer(ctrl),
	}
	f.factory.EXPECT().NewDiffFetcher(gomock.Any(), gomock.Any()).Return(f.fetcher, nil).AnyTimes()
	f.job = NewReviewJob(f.tasks, f.cache, f.factory, f.analyzer, ReviewJobConfig{
		Retry: testRetryPolicy(),
	}, discardLogger())
	return f
}

func (f *reviewFixture) seed(t *testing.T, id, revision string) *core.WorkItem {
	t.Helper()
	require.NoError(t, f.tasks.Create(context.Background(), &core.Task{
		ID: id, Repository: "org/repo", PRNumber: 42, Revision: revision, Status: core.StatusPending,
	}))
	return &core.WorkItem{TaskID: id, Repository: "org/repo", PRNumber: 42, Revision: revision}
}

func (f *reviewFixture) task(t *testing.T, id string) *core.Task {
	t.Helper()
	task, err := f.tasks.Get(context.Background(), id)
	require.NoError(t, err)
	return task
}

func sampleReview() *core.ReviewResult {
	return &core.ReviewResult{
		Files: []core.FileReview{{
			FilePath: "main.go",
			Issues: []core.Issue{
				{Type: core.IssueBug, Line: 3, Description: "shadowed variable"},
				{Type: core.IssueStyle, Line: 2, Description: "blank line"},
			},
		}},
		Summary: core.Summary{Overview: "two findings"},
	}
}

func changedFiles() []core.ChangedFile {
	return []core.ChangedFile{{Path: "main.go", Patch: testPatch}}
}

func TestReviewJob_Run_ResolvesAnalyzesAndCaches(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t1", "")

	f.fetcher.EXPECT().ResolveRevision(gomock.Any(), testRepo, 42).Return("abc", nil)
	f.fetcher.EXPECT().FetchDiff(gomock.Any(), testRepo, 42, "abc").Return(changedFiles(), nil)
	f.analyzer.EXPECT().Analyze(gomock.Any(), changedFiles()).Return(sampleReview(), nil)

	require.NoError(t, f.job.Run(context.Background(), item))

	task := f.task(t, "t1")
	assert.Equal(t, core.StatusSuccess, task.Status)
	assert.Equal(t, "abc", task.Revision)
	assert.Empty(t, task.SourceTaskID)
	require.NotNil(t, task.Result)
	assert.Equal(t, 2, task.Result.Summary.TotalIssuesFound)
	assert.Equal(t, 1, task.Result.Summary.CriticalIssues)
	assert.Equal(t, 1, task.Result.Summary.TotalFilesReviewed)

	entry, err := f.cache.Get(context.Background(), core.CacheKey{Repository: "org/repo", Revision: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "t1", entry.TaskID)
	assert.Equal(t, task.Result, entry.Result)
}

func TestReviewJob_Run_CacheHitSkipsAnalysis(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t2", "")

	_, err := f.cache.PutIfAbsent(context.Background(), core.CacheKey{Repository: "org/repo", Revision: "abc"},
		&core.CacheEntry{Result: sampleReview(), TaskID: "t1"})
	require.NoError(t, err)

	f.fetcher.EXPECT().ResolveRevision(gomock.Any(), testRepo, 42).Return("abc", nil)
	f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, f.job.Run(context.Background(), item))

	task := f.task(t, "t2")
	assert.Equal(t, core.StatusSuccess, task.Status)
	assert.Equal(t, "t1", task.SourceTaskID)
	assert.Equal(t, "two findings", task.Result.Summary.Overview)
}

func TestReviewJob_Run_LostCacheRaceAdoptsWinner(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t2", "abc")
	key := core.CacheKey{Repository: "org/repo", Revision: "abc"}
	winner := &core.ReviewResult{Files: []core.FileReview{}, Summary: core.Summary{Overview: "winner"}}

	f.fetcher.EXPECT().FetchDiff(gomock.Any(), testRepo, 42, "abc").Return(changedFiles(), nil)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ []core.ChangedFile) (*core.ReviewResult, error) {
			// Another worker finishes the same revision while this one analyzes.
			_, err := f.cache.PutIfAbsent(ctx, key, &core.CacheEntry{Result: winner, TaskID: "t1"})
			require.NoError(t, err)
			return sampleReview(), nil
		})

	require.NoError(t, f.job.Run(context.Background(), item))

	task := f.task(t, "t2")
	assert.Equal(t, core.StatusSuccess, task.Status)
	assert.Equal(t, "t1", task.SourceTaskID)
	assert.Equal(t, "winner", task.Result.Summary.Overview)

	entry, err := f.cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "t1", entry.TaskID)
}

func TestReviewJob_Run_Failures(t *testing.T) {
	transient := &core.FetchError{Kind: core.FetchTransient, Op: "list files", Err: errors.New("connection reset")}

	tests := []struct {
		name      string
		setup     func(f *reviewFixture)
		wantError string
	}{
		{
			name: "parse error is not retried",
			setup: func(f *reviewFixture) {
				f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
				f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).
					Return(nil, &core.AnalysisError{Kind: core.AnalysisParse, Err: errors.New("unexpected token")}).Times(1)
			},
			wantError: "parse",
		},
		{
			name: "transient fetch errors exhaust retries",
			setup: func(f *reviewFixture) {
				f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, transient).Times(3)
			},
			wantError: "connection reset",
		},
		{
			name: "not found is not retried",
			setup: func(f *reviewFixture) {
				f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, &core.FetchError{Kind: core.FetchNotFound, Op: "get pull request", Err: errors.New("404")}).Times(1)
			},
			wantError: "not_found",
		},
		{
			name: "model timeouts exhaust retries",
			setup: func(f *reviewFixture) {
				f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
				f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).
					Return(nil, &core.AnalysisError{Kind: core.AnalysisTimeout, Err: context.DeadlineExceeded}).Times(3)
			},
			wantError: "timeout",
		},
		{
			name: "diff over the prompt budget is not retried",
			setup: func(f *reviewFixture) {
				f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
				f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).
					Return(nil, &core.AnalysisError{Kind: core.AnalysisTooLarge, Err: errors.New("no changed file fits")}).Times(1)
			},
			wantError: "too_large",
		},
		{
			name: "empty diff",
			setup: func(f *reviewFixture) {
				f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]core.ChangedFile{{Path: "logo.png"}, {Path: "a.go", Patch: "  \n"}}, nil)
				f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0)
			},
			wantError: "no diff content found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReviewFixture(t)
			item := f.seed(t, "t1", "abc")
			tt.setup(f)

			require.NoError(t, f.job.Run(context.Background(), item))

			task := f.task(t, "t1")
			assert.Equal(t, core.StatusFailure, task.Status)
			assert.Contains(t, task.Error, tt.wantError)
			assert.Nil(t, task.Result)

			_, err := f.cache.Get(context.Background(), core.CacheKey{Repository: "org/repo", Revision: "abc"})
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestReviewJob_Run_RetriesTransientThenSucceeds(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t1", "abc")
	transient := &core.FetchError{Kind: core.FetchRateLimited, Op: "list files", Err: errors.New("secondary rate limit")}

	gomock.InOrder(
		f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, transient),
		f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil),
	)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(sampleReview(), nil)

	require.NoError(t, f.job.Run(context.Background(), item))
	assert.Equal(t, core.StatusSuccess, f.task(t, "t1").Status)
}

func TestReviewJob_Run_AbortsWhenClaimIsLost(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t1", "abc")
	_, err := f.tasks.Transition(context.Background(), "t1", core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
	require.NoError(t, err)

	f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, f.job.Run(context.Background(), item))
	assert.Equal(t, core.StatusProcessing, f.task(t, "t1").Status)

	// Unknown tasks are skipped the same way.
	require.NoError(t, f.job.Run(context.Background(), &core.WorkItem{TaskID: "ghost", Repository: "org/repo", PRNumber: 1}))
}

// flakyTaskStore fails terminal writes until failures runs out.
type flakyTaskStore struct {
	core.TaskStore
	failures atomic.Int32
}

func (s *flakyTaskStore) Transition(ctx context.Context, id string, from, to core.TaskStatus, update core.TaskUpdate) (*core.Task, error) {
	if to.IsTerminal() && s.failures.Add(-1) >= 0 {
		return nil, errors.New("store unavailable")
	}
	return s.TaskStore.Transition(ctx, id, from, to, update)
}

func TestReviewJob_Run_FinalWriteSurvivesOutagesAndCancellation(t *testing.T) {
	f := newReviewFixture(t)
	flaky := &flakyTaskStore{TaskStore: f.tasks}
	flaky.failures.Store(4)
	f.job.tasks = flaky
	item := f.seed(t, "t1", "abc")

	ctx, cancel := context.WithCancel(context.Background())
	f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []core.ChangedFile) (*core.ReviewResult, error) {
			cancel()
			return sampleReview(), nil
		})

	require.NoError(t, f.job.Run(ctx, item))
	assert.Equal(t, core.StatusSuccess, f.task(t, "t1").Status)
	assert.Less(t, flaky.failures.Load(), int32(0))
}

func TestReviewJob_Run_FinalWriteRetriesUntilStoreRecovers(t *testing.T) {
	f := newReviewFixture(t)
	flaky := &flakyTaskStore{TaskStore: f.tasks}
	flaky.failures.Store(60)
	f.job.tasks = flaky
	item := f.seed(t, "t1", "abc")

	f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(sampleReview(), nil)

	// Far more failures than the work retry budget allows.
	require.NoError(t, f.job.Run(context.Background(), item))
	assert.Equal(t, core.StatusSuccess, f.task(t, "t1").Status)
	assert.Less(t, flaky.failures.Load(), int32(0))
}

func TestReviewJob_Run_FinalWriteStopsOnStaleTransition(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t1", "abc")

	f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ []core.ChangedFile) (*core.ReviewResult, error) {
			// Someone else settles the task while the analysis runs.
			_, err := f.tasks.Transition(ctx, "t1", core.StatusProcessing, core.StatusFailure, core.TaskUpdate{Error: "cancelled"})
			require.NoError(t, err)
			return sampleReview(), nil
		})

	err := f.job.Run(context.Background(), item)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStaleTransition)
	assert.Equal(t, core.StatusFailure, f.task(t, "t1").Status)
}

func TestReviewJob_Run_AnalyzerMisbehaviour(t *testing.T) {
	tests := []struct {
		name      string
		analyze   func(context.Context, []core.ChangedFile) (*core.ReviewResult, error)
		wantErr   bool
		wantError string
	}{
		{
			name: "no review and no error",
			analyze: func(context.Context, []core.ChangedFile) (*core.ReviewResult, error) {
				return nil, nil
			},
			wantError: "analyzer returned no review",
		},
		{
			name: "panic after the claim",
			analyze: func(context.Context, []core.ChangedFile) (*core.ReviewResult, error) {
				panic("model client blew up")
			},
			wantErr:   true,
			wantError: "review job panicked: model client blew up",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReviewFixture(t)
			item := f.seed(t, "t1", "abc")

			f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
			f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(tt.analyze).Times(1)

			err := f.job.Run(context.Background(), item)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			task := f.task(t, "t1")
			assert.Equal(t, core.StatusFailure, task.Status)
			assert.Contains(t, task.Error, tt.wantError)
			assert.Nil(t, task.Result)

			_, err = f.cache.Get(context.Background(), core.CacheKey{Repository: "org/repo", Revision: "abc"})
			assert.ErrorIs(t, err, core.ErrNotFound)
		})
	}
}

func TestReviewJob_Run_DropsIssuesOutsideDiff(t *testing.T) {
	f := newReviewFixture(t)
	item := f.seed(t, "t1", "abc")

	review := sampleReview()
	review.Files = append(review.Files, core.FileReview{
		FilePath: "vendor/other.go",
		Issues:   []core.Issue{{Type: core.IssueSecurity, Line: 1, Description: "not in this PR"}},
	})
	review.Files[0].Issues = append(review.Files[0].Issues, core.Issue{Type: core.IssueOther, Line: 99, Description: "far away"})

	f.fetcher.EXPECT().FetchDiff(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(changedFiles(), nil)
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).Return(review, nil)

	require.NoError(t, f.job.Run(context.Background(), item))

	task := f.task(t, "t1")
	require.Len(t, task.Result.Files, 1)
	assert.Equal(t, "main.go", task.Result.Files[0].FilePath)
	assert.Equal(t, 0, task.Result.Files[0].Issues[2].Line)
	assert.Equal(t, 3, task.Result.Summary.TotalIssuesFound)
	assert.Equal(t, 1, task.Result.Summary.CriticalIssues)
}

func TestReviewJob_ConcurrentSameRevisionHasOneCanonicalResult(t *testing.T) {
	f := newReviewFixture(t)
	const n = 4

	f.fetcher.EXPECT().ResolveRevision(gomock.Any(), testRepo, 42).Return("abc", nil).AnyTimes()
	f.fetcher.EXPECT().FetchDiff(gomock.Any(), testRepo, 42, "abc").Return(changedFiles(), nil).AnyTimes()
	f.analyzer.EXPECT().Analyze(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, []core.ChangedFile) (*core.ReviewResult, error) {
			time.Sleep(5 * time.Millisecond)
			return sampleReview(), nil
		}).MinTimes(1).MaxTimes(n)

	items := make([]*core.WorkItem, n)
	for i := range n {
		items[i] = f.seed(t, string(rune('a'+i)), "")
	}

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.job.Run(context.Background(), item))
		}()
	}
	wg.Wait()

	entry, err := f.cache.Get(context.Background(), core.CacheKey{Repository: "org/repo", Revision: "abc"})
	require.NoError(t, err)

	for _, item := range items {
		task := f.task(t, item.TaskID)
		assert.Equal(t, core.StatusSuccess, task.Status)
		assert.Equal(t, entry.Result.Summary, task.Result.Summary, "task %s must carry the canonical result", item.TaskID)
		if task.ID != entry.TaskID {
			assert.Equal(t, entry.TaskID, task.SourceTaskID)
		}
	}
}
