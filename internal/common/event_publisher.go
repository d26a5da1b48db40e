package common

import (
	"context"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

// EventPublisher delivers domain events to an external sink
type EventPublisher interface {
	// Publish sends payload as JSON. key groups related events (a user id, for ordering).
	Publish(ctx context.Context, eventType string, key string, payload interface{}) error

	// Sink names the backend for logs and metrics
	Sink() string

	Close() error
}

// NoopPublisher drops every event. Used when EVENT_SINK=none.
type NoopPublisher struct{}

var _ EventPublisher = NoopPublisher{}

func (NoopPublisher) Publish(ctx context.Context, eventType string, key string, payload interface{}) error {
	logging.Debug("Event dropped, no sink configured", "event_type", eventType, "key", key)
	return nil
}

func (NoopPublisher) Sink() string { return "none" }

func (NoopPublisher) Close() error { return nil }
