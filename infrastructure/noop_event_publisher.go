package infrastructure

import (
	"context"

	"leveler/events"
)

// NoopEventPublisher drops every event. Used when NATS_SERVERS is empty.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(ctx context.Context, event events.Event) error {
	return nil
}
