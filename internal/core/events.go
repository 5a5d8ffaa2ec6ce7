// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"fmt"

	"github.com/google/go-github/v73/github"
)

const (
	EventPullRequest = "pull_request"

	ActionOpened      = "opened"
	ActionSynchronize = "synchronize"
)

// WebhookEvent represents a simplified, internal view of a GitHub webhook delivery.
type WebhookEvent struct {
	DeliveryID string
	EventType  string
	Action     string

	RepoFullName   string
	PRNumber       int
	HeadSHA        string
	InstallationID int64
}

// Actionable reports whether the event should trigger a review.
func (e *WebhookEvent) Actionable() bool {
	if e.EventType != EventPullRequest {
		return false
	}
	return e.Action == ActionOpened || e.Action == ActionSynchronize
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the application's
// internal WebhookEvent representation. It acts as an anti-corruption layer, ensuring
// that the incoming webhook payload contains all data a review needs.
func EventFromPullRequest(deliveryID string, event *github.PullRequestEvent) (*WebhookEvent, error) {
	repo := event.GetRepo()
	if repo == nil || repo.GetFullName() == "" {
		return nil, fmt.Errorf("repository information is missing from the event")
	}

	prNumber := event.GetNumber()
	if prNumber <= 0 {
		prNumber = event.GetPullRequest().GetNumber()
	}
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", prNumber)
	}

	return &WebhookEvent{
		DeliveryID:     deliveryID,
		EventType:      EventPullRequest,
		Action:         event.GetAction(),
		RepoFullName:   repo.GetFullName(),
		PRNumber:       prNumber,
		HeadSHA:        event.GetPullRequest().GetHead().GetSHA(),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}
