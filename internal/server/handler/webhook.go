package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/webhook"
)

// WebhookHandler processes incoming webhooks from GitHub.
type WebhookHandler struct {
	secret   []byte
	receiver *webhook.Receiver
	logger   *slog.Logger
}

// NewWebhookHandler creates a new webhook handler verifying signatures with secret.
func NewWebhookHandler(secret string, receiver *webhook.Receiver, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:   []byte(secret),
		receiver: receiver,
		logger:   logger,
	}
}

// Handle serves POST /webhook/github. The signature is checked before the
// delivery is recorded.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("invalid webhook payload signature", "error", err)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: core.ErrSignatureInvalid.Error()})
		return
	}

	eventType := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)

	raw, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Warn("could not parse webhook", "type", eventType, "delivery_id", deliveryID, "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not parse webhook"})
		return
	}

	event := &core.WebhookEvent{DeliveryID: deliveryID, EventType: eventType}
	if pr, ok := raw.(*github.PullRequestEvent); ok {
		event, err = core.EventFromPullRequest(deliveryID, pr)
		if err != nil {
			h.logger.Warn("malformed pull request event", "delivery_id", deliveryID, "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	ack, err := h.receiver.Handle(r.Context(), event)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
