package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// Pool runs a fixed number of workers that pull items from a WorkQueue and
// hand them to a Job.
type Pool struct {
	queue      core.WorkQueue
	job        core.Job
	maxWorkers int
	wg         sync.WaitGroup // Tracks active workers for graceful shutdown.
	logger     *slog.Logger
	errBackoff time.Duration
}

// NewPool initializes a worker pool. If maxWorkers is 0 or negative, it
// defaults to 1.
func NewPool(queue core.WorkQueue, job core.Job, maxWorkers int, logger *slog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Pool{
		queue:      queue,
		job:        job,
		maxWorkers: maxWorkers,
		logger:     logger,
		errBackoff: time.Second,
	}
}

// Start launches the workers. They run until the queue is closed and drained
// or ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := range p.maxWorkers {
		p.wg.Add(1)
		go p.startWorker(ctx, i)
	}
}

func (p *Pool) startWorker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	p.logger.Info("starting review worker", "id", workerID)

	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, core.ErrQueueClosed) || ctx.Err() != nil {
				break
			}
			p.logger.Error("failed to dequeue work item", "worker_id", workerID, "error", err)
			select {
			case <-time.After(p.errBackoff):
			case <-ctx.Done():
			}
			continue
		}
		p.sampleDepth(ctx)
		p.process(ctx, workerID, d)
	}

	p.logger.Info("shutting down review worker", "id", workerID)
}

func (p *Pool) sampleDepth(ctx context.Context) {
	q, ok := p.queue.(core.QueueDepth)
	if !ok {
		return
	}
	n, err := q.Len(ctx)
	if err != nil {
		p.logger.Debug("failed to read queue depth", "error", err)
		return
	}
	telemetry.QueueDepth.Set(float64(n))
}

// process runs one item and acknowledges it whatever the outcome: the task
// record, not the queue, carries the result.
func (p *Pool) process(ctx context.Context, workerID int, d *core.Delivery) {
	p.logger.Info("worker processing job",
		"worker_id", workerID,
		"task_id", d.Item.TaskID,
		"repo", d.Item.Repository,
	)

	if err := p.run(ctx, d.Item); err != nil {
		p.logger.Error("code review job failed",
			"task_id", d.Item.TaskID,
			"repo", d.Item.Repository,
			"pr", d.Item.PRNumber,
			"error", err,
		)
	}

	if err := p.queue.Ack(context.WithoutCancel(ctx), d); err != nil {
		p.logger.Error("failed to acknowledge work item", "task_id", d.Item.TaskID, "error", err)
	}
}

func (p *Pool) run(ctx context.Context, item *core.WorkItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("review job panicked: %v", r)
		}
	}()
	return p.job.Run(ctx, item)
}

// Stop closes the queue and waits for in-flight items to finish.
func (p *Pool) Stop() {
	p.logger.Info("stopping worker pool and waiting for jobs to finish")
	if err := p.queue.Close(); err != nil {
		p.logger.Error("failed to close work queue", "error", err)
	}
	p.wg.Wait()
	p.logger.Info("all review jobs have finished")
}
