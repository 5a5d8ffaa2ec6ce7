// Package webhook turns verified GitHub deliveries into review submissions.
// Every delivery id is processed at most once.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// AckStatus describes what the receiver did with a delivery.
type AckStatus string

const (
	AckQueued    AckStatus = "queued"
	AckCached    AckStatus = "cached"
	AckIgnored   AckStatus = "ignored"
	AckDuplicate AckStatus = "duplicate"
)

// Ack is the answer returned to the webhook sender.
type Ack struct {
	Status AckStatus `json:"status"`
	TaskID string    `json:"task_id,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Receiver records deliveries and forwards actionable pull request events to
// the dispatcher.
type Receiver struct {
	deliveries core.DeliveryStore
	dispatcher core.JobDispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewReceiver creates a new Receiver.
func NewReceiver(deliveries core.DeliveryStore, dispatcher core.JobDispatcher, logger *slog.Logger) *Receiver {
	return &Receiver{
		deliveries: deliveries,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle processes one delivery whose signature has already been verified.
// A delivery id that was seen before is acknowledged without side effects.
// When the submission fails the record is released again so the sender's
// redelivery is processed.
func (r *Receiver) Handle(ctx context.Context, event *core.WebhookEvent) (*Ack, error) {
	if event.DeliveryID == "" {
		telemetry.WebhookDeliveries.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: missing delivery id", core.ErrInvalidInput)
	}
	logger := r.logger.With("delivery_id", event.DeliveryID, "event", event.EventType, "action", event.Action)

	fresh, err := r.deliveries.RecordIfAbsent(ctx, event.DeliveryID, r.now().UTC())
	if err != nil {
		logger.Error("failed to record webhook delivery", "error", err)
		telemetry.WebhookDeliveries.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: failed to record delivery: %w", core.ErrBusy, err)
	}
	if !fresh {
		logger.Info("ignoring replayed webhook delivery")
		telemetry.WebhookDeliveries.WithLabelValues(string(AckDuplicate)).Inc()
		return &Ack{Status: AckDuplicate}, nil
	}

	if !event.Actionable() {
		logger.Debug("ignoring webhook event")
		telemetry.WebhookDeliveries.WithLabelValues(string(AckIgnored)).Inc()
		return &Ack{Status: AckIgnored, Reason: fmt.Sprintf("event %s/%s does not trigger a review", event.EventType, event.Action)}, nil
	}

	res, err := r.dispatcher.Submit(ctx, core.SubmitRequest{
		RepoRef:     event.RepoFullName,
		PRNumber:    event.PRNumber,
		Revision:    event.HeadSHA,
		Credentials: core.Credentials{InstallationID: event.InstallationID},
		Source:      "webhook",
	})
	if err != nil {
		if ferr := r.deliveries.Forget(context.WithoutCancel(ctx), event.DeliveryID); ferr != nil {
			logger.Error("failed to release webhook delivery", "error", ferr)
		}
		logger.Error("failed to submit review from webhook", "repo", event.RepoFullName, "pr", event.PRNumber, "error", err)
		telemetry.WebhookDeliveries.WithLabelValues("error").Inc()
		return nil, err
	}

	status := AckQueued
	if res.Status == core.StatusSuccess {
		status = AckCached
	}
	logger.Info("webhook delivery accepted",
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"task_id", res.TaskID,
		"status", status,
		"deduplicated", res.Deduplicated,
	)
	telemetry.WebhookDeliveries.WithLabelValues(string(status)).Inc()
	return &Ack{Status: status, TaskID: res.TaskID}, nil
}
