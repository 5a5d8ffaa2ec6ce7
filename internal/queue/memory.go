// Package queue provides the work queues that carry review items from the
// dispatcher to the worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/sevigo/review-broker/internal/core"
)

type memoryQueue struct {
	mu     sync.RWMutex
	items  chan *core.WorkItem
	closed bool
}

// NewMemoryQueue returns a bounded in-process queue. Items still buffered when
// the queue is closed are handed out before Dequeue reports ErrQueueClosed.
func NewMemoryQueue(capacity int) core.WorkQueue {
	return &memoryQueue{items: make(chan *core.WorkItem, capacity)}
}

func (q *memoryQueue) Enqueue(_ context.Context, item *core.WorkItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return core.ErrQueueClosed
	}
	select {
	case q.items <- item:
		return nil
	default:
		return core.ErrQueueFull
	}
}

func (q *memoryQueue) Dequeue(ctx context.Context) (*core.Delivery, error) {
	select {
	case item, ok := <-q.items:
		if !ok {
			return nil, core.ErrQueueClosed
		}
		return &core.Delivery{Item: item, Receipt: item.TaskID}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered items.
func (q *memoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.items)), nil
}

func (q *memoryQueue) Ack(context.Context, *core.Delivery) error {
	return nil
}

func (q *memoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
	}
	return nil
}
