package app

import (
	"log/slog"

	"github.com/sevigo/review-broker/internal/config"
	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/jobs"
	"github.com/sevigo/review-broker/internal/results"
)

// Toolkit is the subset of the application the command-line tools work with.
// It shares stores with a running server but never starts workers.
type Toolkit struct {
	Config     *config.Config
	Logger     *slog.Logger
	Results    *results.Service
	Dispatcher core.JobDispatcher
	Janitor    *jobs.DeliveryJanitor
}

// NewToolkit creates a new Toolkit.
func NewToolkit(
	cfg *config.Config,
	resultsSvc *results.Service,
	dispatcher core.JobDispatcher,
	janitor *jobs.DeliveryJanitor,
	logger *slog.Logger,
) *Toolkit {
	return &Toolkit{
		Config:     cfg,
		Logger:     logger,
		Results:    resultsSvc,
		Dispatcher: dispatcher,
		Janitor:    janitor,
	}
}

// SharedState reports whether submissions made from this process can reach
// the workers of a separate server process.
func (t *Toolkit) SharedState() bool {
	return t.Config.Worker.QueueBackend == config.BackendRedis &&
		t.Config.Store.TaskBackend == config.BackendPostgres
}
