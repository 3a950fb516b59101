package bot

import (
	"leveler/bot/common"
	"leveler/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// messageActivity converts a gateway message into an activity. Bot, webhook
// and direct messages are not eligible.
func messageActivity(m *discordgo.MessageCreate) (models.MessageActivity, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return models.MessageActivity{}, false
	}
	if m.Author.Bot || m.WebhookID != "" || m.GuildID == "" {
		return models.MessageActivity{}, false
	}

	guildID, err1 := common.ParseDiscordID(m.GuildID)
	channelID, err2 := common.ParseDiscordID(m.ChannelID)
	authorID, err3 := common.ParseDiscordID(m.Author.ID)
	messageID, err4 := common.ParseDiscordID(m.ID)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		log.WithField("messageID", m.ID).Warn("Dropping message with malformed ids")
		return models.MessageActivity{}, false
	}

	return models.MessageActivity{
		GuildID:   guildID,
		ChannelID: channelID,
		AuthorID:  authorID,
		MessageID: messageID,
	}, true
}

// reactionActivity converts a reaction into an activity. author is the
// reacted message's author, nil when it could not be resolved.
func reactionActivity(r *discordgo.MessageReactionAdd, author *discordgo.User) (models.ReactionActivity, bool) {
	if r == nil || r.MessageReaction == nil || r.GuildID == "" {
		return models.ReactionActivity{}, false
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return models.ReactionActivity{}, false
	}

	guildID, err1 := common.ParseDiscordID(r.GuildID)
	channelID, err2 := common.ParseDiscordID(r.ChannelID)
	reactorID, err3 := common.ParseDiscordID(r.UserID)
	messageID, err4 := common.ParseDiscordID(r.MessageID)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		log.WithField("messageID", r.MessageID).Warn("Dropping reaction with malformed ids")
		return models.ReactionActivity{}, false
	}

	activity := models.ReactionActivity{
		GuildID:   guildID,
		ChannelID: channelID,
		ReactorID: reactorID,
		MessageID: messageID,
	}

	if author != nil && !author.Bot {
		if authorID, err := common.ParseDiscordID(author.ID); err == nil {
			activity.AuthorID = authorID
		}
	}

	return activity, true
}

// resolveMessageAuthor looks the reacted message up in the state cache first
// and falls back to a REST fetch
func resolveMessageAuthor(s *discordgo.Session, channelID, messageID string) *discordgo.User {
	if s.State != nil {
		if msg, err := s.State.Message(channelID, messageID); err == nil && msg.Author != nil {
			return msg.Author
		}
	}

	msg, err := s.ChannelMessage(channelID, messageID)
	if err != nil {
		log.WithFields(log.Fields{
			"channelID": channelID,
			"messageID": messageID,
			"error":     err,
		}).Debug("Could not resolve reacted message author")
		return nil
	}
	return msg.Author
}
