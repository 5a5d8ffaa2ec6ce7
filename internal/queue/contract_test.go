package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-broker/internal/core"
)

func testQueueContract(t *testing.T, newQueue func(t *testing.T, capacity int) core.WorkQueue) {
	t.Run("fifo round trip", func(t *testing.T) {
		q := newQueue(t, 10)
		ctx := context.Background()

		item := &core.WorkItem{
			TaskID:      "t1",
			Repository:  "org/repo",
			PRNumber:    42,
			Revision:    "abc",
			Credentials: core.Credentials{InstallationID: 7},
			EnqueuedAt:  time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, q.Enqueue(ctx, item))
		require.NoError(t, q.Enqueue(ctx, &core.WorkItem{TaskID: "t2"}))

		first, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "t1", first.Item.TaskID)
		assert.Equal(t, "org/repo", first.Item.Repository)
		assert.Equal(t, int64(7), first.Item.Credentials.InstallationID)
		assert.True(t, item.EnqueuedAt.Equal(first.Item.EnqueuedAt))
		require.NoError(t, q.Ack(ctx, first))

		second, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, "t2", second.Item.TaskID)
		require.NoError(t, q.Ack(ctx, second))
	})

	t.Run("full queue rejects without blocking", func(t *testing.T) {
		q := newQueue(t, 2)
		ctx := context.Background()

		require.NoError(t, q.Enqueue(ctx, &core.WorkItem{TaskID: "a"}))
		require.NoError(t, q.Enqueue(ctx, &core.WorkItem{TaskID: "b"}))
		assert.ErrorIs(t, q.Enqueue(ctx, &core.WorkItem{TaskID: "c"}), core.ErrQueueFull)
	})

	t.Run("each item reaches one consumer", func(t *testing.T) {
		const n = 20
		q := newQueue(t, n)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for i := range n {
			require.NoError(t, q.Enqueue(ctx, &core.WorkItem{TaskID: fmt.Sprintf("t%d", i)}))
		}

		var mu sync.Mutex
		seen := make(map[string]int)
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					mu.Lock()
					total := 0
					for _, c := range seen {
						total += c
					}
					mu.Unlock()
					if total >= n {
						return
					}

					dctx, dcancel := context.WithTimeout(ctx, 200*time.Millisecond)
					d, err := q.Dequeue(dctx)
					dcancel()
					if err != nil {
						continue
					}
					mu.Lock()
					seen[d.Item.TaskID]++
					mu.Unlock()
					_ = q.Ack(ctx, d)
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, n)
		for id, count := range seen {
			assert.Equal(t, 1, count, "item %s delivered more than once", id)
		}
	})
}
