package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-broker/internal/core"
)

// The contract suites run against every backend: memory in unit tests,
// Postgres and Redis in integration tests.

func sampleResult(desc string) *core.ReviewResult {
	r := &core.ReviewResult{Files: []core.FileReview{{
		FilePath: "main.go",
		Issues:   []core.Issue{{Type: core.IssueBug, Line: 3, Description: desc}},
	}}}
	r.Normalize()
	return r
}

func newPendingTask(repo, revision string) *core.Task {
	return &core.Task{
		ID:         uuid.NewString(),
		Repository: repo,
		PRNumber:   42,
		Revision:   revision,
		Status:     core.StatusPending,
	}
}

func testTaskStoreContract(t *testing.T, newStore func(t *testing.T) core.TaskStore) {
	t.Run("create get and complete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		task := newPendingTask("org/repo", "")
		require.NoError(t, store.Create(ctx, task))
		assert.False(t, task.CreatedAt.IsZero())

		got, err := store.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusPending, got.Status)
		assert.Equal(t, "org/repo", got.Repository)

		_, err = store.Transition(ctx, task.ID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
		require.NoError(t, err)

		done, err := store.Transition(ctx, task.ID, core.StatusProcessing, core.StatusSuccess, core.TaskUpdate{
			Revision: "abc123",
			Result:   sampleResult("nil deref"),
		})
		require.NoError(t, err)
		assert.Equal(t, core.StatusSuccess, done.Status)
		assert.Equal(t, "abc123", done.Revision)
		require.NotNil(t, done.Result)
		assert.Equal(t, 1, done.Result.Summary.TotalIssuesFound)

		got, err = store.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusSuccess, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, "nil deref", got.Result.Files[0].Issues[0].Description)
	})

	t.Run("failure carries error", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		task := newPendingTask("org/repo", "")
		require.NoError(t, store.Create(ctx, task))
		_, err := store.Transition(ctx, task.ID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
		require.NoError(t, err)
		failed, err := store.Transition(ctx, task.ID, core.StatusProcessing, core.StatusFailure, core.TaskUpdate{Error: "no diff content found"})
		require.NoError(t, err)
		assert.Equal(t, "no diff content found", failed.Error)
		assert.Nil(t, failed.Result)
	})

	t.Run("unknown task", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)

		_, err = store.Transition(context.Background(), "missing", core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("duplicate id", func(t *testing.T) {
		store := newStore(t)
		task := newPendingTask("org/repo", "")
		require.NoError(t, store.Create(context.Background(), task))

		dup := *task
		err := store.Create(context.Background(), &dup)
		assert.ErrorIs(t, err, core.ErrConflict)
	})

	t.Run("illegal and stale transitions", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		task := newPendingTask("org/repo", "")
		require.NoError(t, store.Create(ctx, task))

		_, err := store.Transition(ctx, task.ID, core.StatusPending, core.StatusSuccess, core.TaskUpdate{})
		assert.ErrorIs(t, err, core.ErrIllegalTransition)

		_, err = store.Transition(ctx, task.ID, core.StatusProcessing, core.StatusFailure, core.TaskUpdate{})
		var stale *core.StaleTransitionError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, core.StatusPending, stale.Actual)

		got, err := store.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusPending, got.Status)
	})

	t.Run("concurrent transitions have one winner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		task := newPendingTask("org/repo", "")
		require.NoError(t, store.Create(ctx, task))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Transition(ctx, task.ID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
				if err == nil {
					wins.Add(1)
					return
				}
				assert.ErrorIs(t, err, core.ErrStaleTransition)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("one active task per revision", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first := newPendingTask("org/repo", "abc")
		require.NoError(t, store.Create(ctx, first))

		second := newPendingTask("org/repo", "abc")
		err := store.Create(ctx, second)
		var active *core.ActiveTaskError
		require.ErrorAs(t, err, &active)
		assert.Equal(t, first.ID, active.TaskID)

		// A different revision is independent.
		require.NoError(t, store.Create(ctx, newPendingTask("org/repo", "def")))

		_, err = store.Transition(ctx, first.ID, core.StatusPending, core.StatusProcessing, core.TaskUpdate{})
		require.NoError(t, err)
		_, err = store.Transition(ctx, first.ID, core.StatusProcessing, core.StatusSuccess, core.TaskUpdate{Result: sampleResult("x")})
		require.NoError(t, err)

		// The claim is released once the owner is terminal.
		require.NoError(t, store.Create(ctx, second))
	})
}

func testCacheStoreContract(t *testing.T, newStore func(t *testing.T) core.CacheStore) {
	t.Run("miss then hit", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		key := core.CacheKey{Repository: "org/repo", Revision: "abc"}

		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, core.ErrNotFound)

		created, err := store.PutIfAbsent(ctx, key, &core.CacheEntry{Result: sampleResult("first"), TaskID: "t1"})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = store.PutIfAbsent(ctx, key, &core.CacheEntry{Result: sampleResult("second"), TaskID: "t2"})
		require.NoError(t, err)
		assert.False(t, created)

		entry, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "t1", entry.TaskID)
		assert.Equal(t, key, entry.Key)
		assert.Equal(t, "first", entry.Result.Files[0].Issues[0].Description)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("rejects incomplete entries", func(t *testing.T) {
		store := newStore(t)
		_, err := store.PutIfAbsent(context.Background(), core.CacheKey{Repository: "org/repo"}, &core.CacheEntry{Result: sampleResult("x")})
		assert.ErrorIs(t, err, core.ErrInvalidInput)

		_, err = store.PutIfAbsent(context.Background(), core.CacheKey{Repository: "org/repo", Revision: "a"}, &core.CacheEntry{})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("concurrent writers have one winner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		key := core.CacheKey{Repository: "org/repo", Revision: "race"}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				created, err := store.PutIfAbsent(ctx, key, &core.CacheEntry{Result: sampleResult("x"), TaskID: uuid.NewString()})
				assert.NoError(t, err)
				if created {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}

func testDeliveryStoreContract(t *testing.T, newStore func(t *testing.T) core.DeliveryStore, purges bool) {
	t.Run("record forget and record again", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		first, err := store.RecordIfAbsent(ctx, "d-1", now)
		require.NoError(t, err)
		assert.True(t, first)

		again, err := store.RecordIfAbsent(ctx, "d-1", now)
		require.NoError(t, err)
		assert.False(t, again)

		require.NoError(t, store.Forget(ctx, "d-1"))

		afterForget, err := store.RecordIfAbsent(ctx, "d-1", now)
		require.NoError(t, err)
		assert.True(t, afterForget)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := newStore(t).RecordIfAbsent(context.Background(), "", time.Now())
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	if !purges {
		return
	}
	t.Run("purge removes old records", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		now := time.Now()

		_, err := store.RecordIfAbsent(ctx, "old", now.Add(-96*time.Hour))
		require.NoError(t, err)
		_, err = store.RecordIfAbsent(ctx, "new", now)
		require.NoError(t, err)

		removed, err := store.Purge(ctx, now.Add(-72*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		recorded, err := store.RecordIfAbsent(ctx, "old", now)
		require.NoError(t, err)
		assert.True(t, recorded)

		recorded, err = store.RecordIfAbsent(ctx, "new", now)
		require.NoError(t, err)
		assert.False(t, recorded)
	})
}
