package models

// ActivityKind names an activity variant for logs and metrics
type ActivityKind string

const (
	ActivityKindMessage  ActivityKind = "message"
	ActivityKindReaction ActivityKind = "reaction_add"
)

// Activity is an inbound XP-eligible event. The set of implementations is
// closed: MessageActivity and ReactionActivity.
type Activity interface {
	Kind() ActivityKind
	Guild() int64
	Channel() int64
	sealed()
}

// MessageActivity is a guild message sent by a human member
type MessageActivity struct {
	GuildID   int64
	ChannelID int64
	AuthorID  int64
	MessageID int64
}

func (a MessageActivity) Kind() ActivityKind { return ActivityKindMessage }
func (a MessageActivity) Guild() int64       { return a.GuildID }
func (a MessageActivity) Channel() int64     { return a.ChannelID }
func (MessageActivity) sealed()              {}

// ReactionActivity is a reaction added by a human member to a guild message.
// AuthorID is zero when the message author is a bot or could not be resolved.
type ReactionActivity struct {
	GuildID   int64
	ChannelID int64
	ReactorID int64
	AuthorID  int64
	MessageID int64
}

func (a ReactionActivity) Kind() ActivityKind { return ActivityKindReaction }
func (a ReactionActivity) Guild() int64       { return a.GuildID }
func (a ReactionActivity) Channel() int64     { return a.ChannelID }
func (ReactionActivity) sealed()              {}
