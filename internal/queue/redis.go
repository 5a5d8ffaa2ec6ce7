package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevigo/review-broker/internal/core"
)

// enqueueScript pushes ARGV[1] unless the pending list already holds ARGV[2] items.
var enqueueScript = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('LPUSH', KEYS[1], ARGV[1])
return 1
`)

// RedisQueue is a reliable queue on Redis lists. All consumers share one
// pending list; each consumer has its own processing list. Dequeue atomically
// moves an item from the pending list to the consumer's processing list and Ack
// removes it, so a restarted consumer can put back what it claimed before it
// crashed with RequeueInflight.
type RedisQueue struct {
	client      redis.UniversalClient
	key         string
	consumer    string
	capacity    int
	pollTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// NewRedisQueue creates a queue whose lists live under key. consumer names
// this process's processing list and must stay the same across restarts.
func NewRedisQueue(client redis.UniversalClient, key, consumer string, capacity int) *RedisQueue {
	return &RedisQueue{
		client:      client,
		key:         key,
		consumer:    consumer,
		capacity:    capacity,
		pollTimeout: time.Second,
		done:        make(chan struct{}),
	}
}

func (q *RedisQueue) pendingKey() string    { return q.key + ":pending" }
func (q *RedisQueue) processingKey() string { return q.key + ":processing:" + q.consumer }

func (q *RedisQueue) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, item *core.WorkItem) error {
	if q.isClosed() {
		return core.ErrQueueClosed
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode work item %s: %w", item.TaskID, err)
	}

	pushed, err := enqueueScript.Run(ctx, q.client, []string{q.pendingKey()}, payload, q.capacity).Int()
	if err != nil {
		return fmt.Errorf("redis enqueue %s: %w", item.TaskID, err)
	}
	if pushed == 0 {
		return core.ErrQueueFull
	}
	return nil
}

// Dequeue polls with a bounded BLMOVE so a closed queue is noticed within one
// poll interval. Pending items stay in Redis after Close.
func (q *RedisQueue) Dequeue(ctx context.Context) (*core.Delivery, error) {
	for {
		if q.isClosed() {
			return nil, core.ErrQueueClosed
		}

		raw, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redis dequeue: %w", err)
		}

		var item core.WorkItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			// Drop undecodable payloads so they do not block the list.
			_ = q.client.LRem(ctx, q.processingKey(), 1, raw).Err()
			return nil, fmt.Errorf("failed to decode work item: %w", err)
		}
		return &core.Delivery{Item: &item, Receipt: raw}, nil
	}
}

func (q *RedisQueue) Ack(ctx context.Context, d *core.Delivery) error {
	if err := q.client.LRem(ctx, q.processingKey(), 1, d.Receipt).Err(); err != nil {
		return fmt.Errorf("redis ack %s: %w", d.Item.TaskID, err)
	}
	return nil
}

// RequeueInflight moves every item left in this consumer's processing list
// back to the pending list and returns how many were moved. Items held by
// other consumers are not touched.
func (q *RedisQueue) RequeueInflight(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processingKey(), q.pendingKey(), "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("redis requeue in-flight items: %w", err)
		}
		moved++
	}
}

// Len returns the number of pending items. It implements core.QueueDepth.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey()).Result()
}

func (q *RedisQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
