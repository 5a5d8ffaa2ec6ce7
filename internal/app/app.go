// Package app orchestrates the long-running components of the review broker:
// the HTTP server, the worker pool and the delivery janitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/jobs"
	"github.com/sevigo/review-broker/internal/server"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// inflightRecoverer is implemented by durable queues that can hand back work
// this instance claimed in a previous run but never acknowledged.
type inflightRecoverer interface {
	RequeueInflight(ctx context.Context) (int, error)
}

// App holds the main application components.
type App struct {
	cfg     *config.Config
	server  *server.Server
	pool    *jobs.Pool
	janitor *jobs.DeliveryJanitor
	queue   core.WorkQueue
	logger  *slog.Logger

	flushTraces func()
}

// NewApp sets up the application with all its dependencies.
func NewApp(
	cfg *config.Config,
	srv *server.Server,
	pool *jobs.Pool,
	janitor *jobs.DeliveryJanitor,
	queue core.WorkQueue,
	logger *slog.Logger,
) *App {
	return &App{
		cfg:     cfg,
		server:  srv,
		pool:    pool,
		janitor: janitor,
		queue:   queue,
		logger:  logger,
	}
}

// Start installs tracing, recovers unacknowledged work, starts the workers and
// the janitor and then serves HTTP until the server is stopped.
func (a *App) Start(ctx context.Context) error {
	flush, err := telemetry.InitTracer(ctx, a.cfg.Telemetry.ServiceName, a.cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.flushTraces = flush

	if r, ok := a.queue.(inflightRecoverer); ok {
		n, err := r.RequeueInflight(ctx)
		if err != nil {
			return fmt.Errorf("failed to requeue in-flight work: %w", err)
		}
		if n > 0 {
			a.logger.Warn("requeued work left over from a previous run", "items", n, "instance", a.cfg.Worker.InstanceID)
		}
	}

	a.pool.Start(ctx)

	if err := a.janitor.Start(a.cfg.Webhook.PurgeSchedule); err != nil {
		return fmt.Errorf("failed to start delivery janitor: %w", err)
	}

	a.logger.Info("review broker started",
		"port", a.cfg.Server.Port,
		"workers", a.cfg.Worker.MaxWorkers,
		"queue_backend", a.cfg.Worker.QueueBackend,
		"task_backend", a.cfg.Store.TaskBackend,
	)
	return a.server.Start()
}

// Stop shuts the server down first so no new work arrives, then drains the
// workers and halts the janitor.
func (a *App) Stop() error {
	a.logger.Info("shutting down review broker")

	var errs []error
	if err := a.server.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	a.pool.Stop()
	a.janitor.Stop()
	if a.flushTraces != nil {
		a.flushTraces()
	}

	return errors.Join(errs...)
}
