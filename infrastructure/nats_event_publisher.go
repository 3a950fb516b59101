package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leveler/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SourceService identifies this process in event envelopes
const SourceService = "leveler"

// EventEnvelope wraps every published event
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	GuildID       int64           `json:"guild_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// MessagePublisher is the transport the event publisher writes to
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// PublishRecorder counts published messages
type PublishRecorder interface {
	RecordNATSMessagePublished(eventType string)
}

// NATSEventPublisher forwards committed events to NATS
type NATSEventPublisher struct {
	client        MessagePublisher
	subjectMapper *EventSubjectMapper
	metrics       PublishRecorder
	now           func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher. metrics may be nil.
func NewNATSEventPublisher(client MessagePublisher, subjectMapper *EventSubjectMapper, metrics PublishRecorder) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Publish serializes the event into an envelope and publishes it
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	envelope, err := p.envelope(event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := p.subjectMapper.MapEventToSubject(event)
	if err := p.client.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordNATSMessagePublished(string(event.Type()))
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")
	return nil
}

func (p *NATSEventPublisher) envelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     p.now().UTC(),
		SourceService: SourceService,
		Payload:       payload,
	}
	if ge, ok := event.(events.GuildEvent); ok {
		envelope.GuildID = ge.Guild()
	}
	return envelope, nil
}

// EnsureLevelingStream ensures the stream for every mapped subject exists
func EnsureLevelingStream(client *NATSClient, mapper *EventSubjectMapper) error {
	return client.EnsureStream(LevelingStreamName, "Leveling events: xp changes, level-ups and leader changes", mapper.GetAllSubjects())
}
