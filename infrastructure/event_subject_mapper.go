package infrastructure

import (
	"fmt"

	"leveler/events"
)

// LevelingStreamName is the JetStream stream carrying outbound leveling events
const LevelingStreamName = "leveling_events"

// EventSubjectMapper maps leveling events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeXPChanged:
		return "xp.changed"
	case events.EventTypeLevelUp:
		return "xp.levelup"
	case events.EventTypeLeaderChanged:
		return "xp.leader_changed"
	default:
		return fmt.Sprintf("xp.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns every subject the stream must cover
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"xp.changed",
		"xp.levelup",
		"xp.leader_changed",
		"xp.unknown.>",
	}
}
