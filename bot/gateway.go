package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"leveler/bot/common"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Gateway adapts a discordgo session to service.GuildGateway
type Gateway struct {
	session *discordgo.Session
}

var _ service.GuildGateway = (*Gateway)(nil)

// NewGateway creates a gateway backed by the given session
func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

// GuildIDs lists the guilds present in the session state
func (g *Gateway) GuildIDs() []int64 {
	state := g.session.State
	if state == nil {
		return nil
	}

	state.RLock()
	defer state.RUnlock()

	ids := make([]int64, 0, len(state.Guilds))
	for _, guild := range state.Guilds {
		id, err := common.ParseDiscordID(guild.ID)
		if err != nil {
			log.Warnf("Skipping guild with malformed id %q", guild.ID)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (g *Gateway) AddRole(ctx context.Context, guildID, userID, roleID int64) error {
	err := g.session.GuildMemberRoleAdd(
		common.FormatDiscordID(guildID),
		common.FormatDiscordID(userID),
		common.FormatDiscordID(roleID),
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to add role %d to user %d: %w", roleID, userID, mapDiscordError(err))
	}
	return nil
}

func (g *Gateway) RemoveRole(ctx context.Context, guildID, userID, roleID int64) error {
	err := g.session.GuildMemberRoleRemove(
		common.FormatDiscordID(guildID),
		common.FormatDiscordID(userID),
		common.FormatDiscordID(roleID),
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to remove role %d from user %d: %w", roleID, userID, mapDiscordError(err))
	}
	return nil
}

// AnnounceNewLeader posts to the guild's system channel. Guilds without one are skipped.
func (g *Gateway) AnnounceNewLeader(ctx context.Context, guildID, userID, roleID int64) error {
	guild, err := g.session.State.Guild(common.FormatDiscordID(guildID))
	if err != nil {
		return fmt.Errorf("guild %d not in state: %w", guildID, err)
	}
	if guild.SystemChannelID == "" {
		log.WithField("guildID", guildID).Debug("No system channel, skipping leader announcement")
		return nil
	}

	_, err = g.session.ChannelMessageSendComplex(guild.SystemChannelID, &discordgo.MessageSend{
		Content: FormatLeaderAnnouncement(guild.Name, userID, roleID),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{common.FormatDiscordID(userID)},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to announce leader in guild %d: %w", guildID, mapDiscordError(err))
	}
	return nil
}

// FormatLeaderAnnouncement builds the "new #1" message
func FormatLeaderAnnouncement(guildName string, userID, roleID int64) string {
	return fmt.Sprintf("Congrats %s, you're now #1 in %s! You got %s.",
		common.GetUserMention(userID), guildName, common.GetRoleMention(roleID))
}

// mapDiscordError translates REST failures into the service sentinel errors
// while keeping the original error in the chain
func mapDiscordError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeMissingPermissions:
			return errors.Join(service.ErrPermissionDenied, err)
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownRole:
			return errors.Join(service.ErrMemberNotFound, err)
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return errors.Join(service.ErrPermissionDenied, err)
		case http.StatusNotFound:
			return errors.Join(service.ErrMemberNotFound, err)
		}
	}

	return err
}
