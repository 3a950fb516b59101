package infrastructure

import (
	"context"
	"time"

	"leveler/events"

	log "github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// EventPublisher sends events out of the process
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ForwardEvents subscribes publisher to the given event types on bus.
// Publish failures are logged and the event is dropped.
func ForwardEvents(bus *events.Bus, publisher EventPublisher, eventTypes ...events.EventType) {
	for _, eventType := range eventTypes {
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) {
			ctx, cancel := context.WithTimeout(ctx, publishTimeout)
			defer cancel()

			if err := publisher.Publish(ctx, event); err != nil {
				log.WithFields(log.Fields{
					"eventType": event.Type(),
					"error":     err,
				}).Warn("Failed to forward event")
			}
		})
	}
}
