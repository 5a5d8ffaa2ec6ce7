package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// DeliveryJanitor removes webhook delivery records older than the retention
// window on a cron schedule.
type DeliveryJanitor struct {
	store     core.DeliveryStore
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
}

// NewDeliveryJanitor creates a janitor; call Start to schedule it.
func NewDeliveryJanitor(store core.DeliveryStore, retention time.Duration, logger *slog.Logger) *DeliveryJanitor {
	return &DeliveryJanitor{
		store:     store,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules the purge. schedule accepts standard cron expressions and
// descriptors such as "@every 10m".
func (j *DeliveryJanitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := j.PurgeExpired(ctx); err != nil {
			j.logger.Error("failed to purge webhook deliveries", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	j.cron.Start()
	j.logger.Info("delivery janitor started", "schedule", schedule, "retention", j.retention)
	return nil
}

// PurgeExpired removes records received before now minus the retention window.
func (j *DeliveryJanitor) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	removed, err := j.store.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	telemetry.DeliveriesPurged.Add(float64(removed))
	if removed > 0 {
		j.logger.Info("purged expired webhook deliveries", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// Stop halts the schedule and waits for a running purge.
func (j *DeliveryJanitor) Stop() {
	<-j.cron.Stop().Done()
}
