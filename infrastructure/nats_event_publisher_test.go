package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"leveler/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakeMessagePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (f *fakeMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, published{subject: subject, data: data})
	return nil
}

func (f *fakeMessagePublisher) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordNATSMessagePublished(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[eventType]++
}

func TestEventSubjectMapper(t *testing.T) {
	mapper := NewEventSubjectMapper()

	assert.Equal(t, "xp.changed", mapper.MapEventToSubject(events.XPChangedEvent{}))
	assert.Equal(t, "xp.levelup", mapper.MapEventToSubject(events.LevelUpEvent{}))
	assert.Equal(t, "xp.leader_changed", mapper.MapEventToSubject(events.LeaderChangedEvent{}))
}

func TestNATSEventPublisher_PublishesEnvelope(t *testing.T) {
	client := &fakeMessagePublisher{}
	recorder := &countingRecorder{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), recorder)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return fixed }

	event := events.LevelUpEvent{UserID: 42, GuildID: 7, ChannelID: 9, OldLevel: 2, NewLevel: 3, Reason: events.XPChangeReasonMessage}
	require.NoError(t, publisher.Publish(context.Background(), event))

	messages := client.all()
	require.Len(t, messages, 1)
	assert.Equal(t, "xp.levelup", messages[0].subject)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(messages[0].data, &envelope))
	assert.Equal(t, "level_up", envelope.EventType)
	assert.Equal(t, int64(7), envelope.GuildID)
	assert.Equal(t, SourceService, envelope.SourceService)
	assert.True(t, fixed.Equal(envelope.Timestamp))
	_, err := uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var payload events.LevelUpEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)

	assert.Equal(t, 1, recorder.counts["level_up"])
}

func TestNATSEventPublisher_TransportError(t *testing.T) {
	client := &fakeMessagePublisher{err: errors.New("no responders")}
	recorder := &countingRecorder{}
	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), recorder)

	err := publisher.Publish(context.Background(), events.LeaderChangedEvent{GuildID: 1, NewUserID: 2})

	assert.ErrorContains(t, err, "failed to publish event to NATS")
	assert.Empty(t, recorder.counts)
}

func TestForwardEvents_OnlySubscribedTypes(t *testing.T) {
	bus := events.NewBus()
	client := &fakeMessagePublisher{}
	ForwardEvents(bus, NewNATSEventPublisher(client, NewEventSubjectMapper(), nil),
		events.EventTypeLevelUp, events.EventTypeLeaderChanged)

	ctx := context.Background()
	bus.Emit(ctx, events.XPChangedEvent{UserID: 1, GuildID: 1})
	bus.Emit(ctx, events.LevelUpEvent{UserID: 1, GuildID: 1, NewLevel: 2})
	bus.Emit(ctx, events.LeaderChangedEvent{GuildID: 1, NewUserID: 1})

	assert.Eventually(t, func() bool {
		return len(client.all()) == 2
	}, time.Second, 5*time.Millisecond)

	// Give a stray xp_changed forward a chance to show up
	time.Sleep(20 * time.Millisecond)
	subjects := map[string]bool{}
	for _, m := range client.all() {
		subjects[m.subject] = true
	}
	assert.Equal(t, map[string]bool{"xp.levelup": true, "xp.leader_changed": true}, subjects)
}

func TestNoopEventPublisher(t *testing.T) {
	assert.NoError(t, NewNoopEventPublisher().Publish(context.Background(), events.LevelUpEvent{}))
}
