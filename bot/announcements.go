package bot

import (
	"context"
	"fmt"

	"leveler/bot/common"
	"leveler/models"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// announcement is a message queued for a single channel
type announcement struct {
	channelID int64
	content   string
	embed     *discordgo.MessageEmbed
	userID    int64
}

// levelUpEmbed is posted when a member levels up from chatting
func levelUpEmbed(userID, level int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Level Up!",
		Description: fmt.Sprintf("%s just reached **Level %d** 🎉", common.GetUserMention(userID), level),
		Color:       common.ColorSuccess,
	}
}

func reactionLevelUpContent(userID, level int64) string {
	return fmt.Sprintf("⭐ %s leveled up to **Level %d** via reactions!", common.GetUserMention(userID), level)
}

// planAnnouncements decides which level-ups are announced and where.
// Message level-ups go to the guild's level-up channel when one is bound,
// otherwise to the message channel. A reactor's level-up is noted in the
// reaction channel; the reacted author levels up silently.
func planAnnouncements(activity models.Activity, grants []service.GrantResult, settings *models.GuildSettings) []announcement {
	var planned []announcement

	for _, grant := range grants {
		if !grant.LeveledUp {
			continue
		}

		switch a := activity.(type) {
		case models.MessageActivity:
			channelID := a.ChannelID
			if settings.HasLevelUpChannel() {
				channelID = *settings.LevelUpChannelID
			}
			planned = append(planned, announcement{
				channelID: channelID,
				embed:     levelUpEmbed(grant.UserID, grant.Progress.Level),
				userID:    grant.UserID,
			})
		case models.ReactionActivity:
			if grant.UserID != a.ReactorID {
				continue
			}
			planned = append(planned, announcement{
				channelID: a.ChannelID,
				content:   reactionLevelUpContent(grant.UserID, grant.Progress.Level),
				userID:    grant.UserID,
			})
		}
	}

	return planned
}

// announceGrants posts level-up messages for the committed grants of one activity
func (b *Bot) announceGrants(ctx context.Context, activity models.Activity, grants []service.GrantResult) {
	hasLevelUp := false
	for _, grant := range grants {
		if grant.LeveledUp {
			hasLevelUp = true
			break
		}
	}
	if !hasLevelUp {
		return
	}

	var settings *models.GuildSettings
	if _, ok := activity.(models.MessageActivity); ok {
		var err error
		settings, err = b.settingsService.GetSettings(ctx, activity.Guild())
		if err != nil {
			// Fall back to the message channel
			log.WithFields(log.Fields{
				"guildID": activity.Guild(),
				"error":   err,
			}).Warn("Failed to load guild settings for level-up announcement")
		}
	}

	for _, a := range planAnnouncements(activity, grants, settings) {
		msg := &discordgo.MessageSend{
			Content: a.content,
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Users: []string{common.FormatDiscordID(a.userID)},
			},
		}
		if a.embed != nil {
			msg.Embeds = []*discordgo.MessageEmbed{a.embed}
		}

		if _, err := b.session.ChannelMessageSendComplex(common.FormatDiscordID(a.channelID), msg, discordgo.WithContext(ctx)); err != nil {
			log.WithFields(log.Fields{
				"guildID":   activity.Guild(),
				"channelID": a.channelID,
				"userID":    a.userID,
				"error":     err,
			}).Warn("Failed to send level-up announcement")
		}
	}
}

// welcomeEmbed is posted once when the bot joins a guild
func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("👋 Thanks for adding %s!", common.BotName),
		Description: "Members earn XP by chatting and reacting to messages. " +
			"Use `/rank` to see your level and `/leaderboard` to see who is on top.\n\n" +
			"Admins can bind a reward role for the #1 member with `/setrewardrole` " +
			"and pick a level-up channel with `/setlevelchannel`.",
		Color: common.ColorPrimary,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Type /help for the full command list",
		},
	}
}

// welcomeChannel picks the system channel, else the first text channel the bot may post in
func welcomeChannel(s *discordgo.Session, guild *discordgo.Guild) string {
	if guild.SystemChannelID != "" {
		return guild.SystemChannelID
	}
	if s.State == nil || s.State.User == nil {
		return ""
	}

	for _, channel := range guild.Channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		perms, err := s.State.UserChannelPermissions(s.State.User.ID, channel.ID)
		if err != nil {
			continue
		}
		if perms&discordgo.PermissionSendMessages != 0 && perms&discordgo.PermissionViewChannel != 0 {
			return channel.ID
		}
	}
	return ""
}

func (b *Bot) sendWelcome(s *discordgo.Session, guild *discordgo.Guild) {
	channelID := welcomeChannel(s, guild)
	if channelID == "" {
		log.WithField("guildID", guild.ID).Info("No channel available for welcome message")
		return
	}

	if _, err := s.ChannelMessageSendEmbed(channelID, welcomeEmbed()); err != nil {
		log.WithFields(log.Fields{
			"guildID":   guild.ID,
			"channelID": channelID,
			"error":     err,
		}).Warn("Failed to send welcome message")
		return
	}
	log.WithField("guildID", guild.ID).Info("Sent welcome message")
}
