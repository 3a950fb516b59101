package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeXPChanged     EventType = "xp_changed"
	EventTypeLevelUp       EventType = "level_up"
	EventTypeLeaderChanged EventType = "leader_changed"
)

// XPChangeReason records what caused an XP change
type XPChangeReason string

const (
	XPChangeReasonMessage  XPChangeReason = "message"
	XPChangeReasonReaction XPChangeReason = "reaction"
	XPChangeReasonAdminAdd XPChangeReason = "admin_add"
	XPChangeReasonRemove   XPChangeReason = "admin_remove"
	XPChangeReasonReset    XPChangeReason = "admin_reset"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// GuildEvent is an event scoped to a single guild
type GuildEvent interface {
	Event
	Guild() int64
}

// XPChangedEvent is emitted after any committed change to a user's progress
type XPChangedEvent struct {
	UserID   int64          `json:"user_id"`
	GuildID  int64          `json:"guild_id"`
	Reason   XPChangeReason `json:"reason"`
	Amount   int64          `json:"amount"`
	OldXP    int64          `json:"old_xp"`
	NewXP    int64          `json:"new_xp"`
	OldLevel int64          `json:"old_level"`
	NewLevel int64          `json:"new_level"`
}

func (e XPChangedEvent) Type() EventType { return EventTypeXPChanged }
func (e XPChangedEvent) Guild() int64    { return e.GuildID }

// LevelUpEvent is emitted when a grant moves a user up one or more levels
type LevelUpEvent struct {
	UserID    int64          `json:"user_id"`
	GuildID   int64          `json:"guild_id"`
	ChannelID int64          `json:"channel_id,omitempty"`
	OldLevel  int64          `json:"old_level"`
	NewLevel  int64          `json:"new_level"`
	Reason    XPChangeReason `json:"reason"`
}

func (e LevelUpEvent) Type() EventType { return EventTypeLevelUp }
func (e LevelUpEvent) Guild() int64    { return e.GuildID }

// LeaderChangedEvent is emitted when the top-ranked user of a guild changes
type LeaderChangedEvent struct {
	GuildID        int64  `json:"guild_id"`
	PreviousUserID int64  `json:"previous_user_id,omitempty"`
	NewUserID      int64  `json:"new_user_id"`
	RewardRoleID   *int64 `json:"reward_role_id,omitempty"`
}

func (e LeaderChangedEvent) Type() EventType { return EventTypeLeaderChanged }
func (e LeaderChangedEvent) Guild() int64    { return e.GuildID }

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run in their
// own goroutines and Emit never waits for them.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits pending events to the real bus; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the transaction, so they must not inherit its context
	eventCtx := context.WithoutCancel(ctx)

	if b.real != nil {
		for _, ev := range b.pending {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
