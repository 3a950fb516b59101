package common

import (
	"strconv"

	"leveler/config"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// GetDisplayName returns the server-specific display name for a user
// Falls back to username if nickname is not set or if there's an error
func GetDisplayName(s *discordgo.Session, guildID, userID string) string {
	if member, err := s.State.Member(guildID, userID); err == nil && member != nil {
		if name := memberName(member); name != "" {
			return name
		}
	}

	member, err := s.GuildMember(guildID, userID)
	if err == nil && member != nil {
		if name := memberName(member); name != "" {
			return name
		}
	}

	user, err := s.User(userID)
	if err == nil && user != nil {
		return user.Username
	}

	return "Unknown"
}

func memberName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		if member.User.GlobalName != "" {
			return member.User.GlobalName
		}
		return member.User.Username
	}
	return ""
}

// GetDisplayNameInt64 is a convenience wrapper that accepts int64 user IDs
func GetDisplayNameInt64(s *discordgo.Session, guildID string, userID int64) string {
	return GetDisplayName(s, guildID, FormatDiscordID(userID))
}

// ParseDiscordID converts a Discord snowflake string to int64
func ParseDiscordID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

// FormatDiscordID converts an int64 snowflake to its string form
func FormatDiscordID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetUserMention returns a Discord mention string for a user
func GetUserMention(userID int64) string {
	return "<@" + FormatDiscordID(userID) + ">"
}

// GetRoleMention returns a Discord mention string for a role
func GetRoleMention(roleID int64) string {
	return "<@&" + FormatDiscordID(roleID) + ">"
}

// GetChannelMention returns a Discord mention string for a channel
func GetChannelMention(channelID int64) string {
	return "<#" + FormatDiscordID(channelID) + ">"
}

// InvokerID returns the id of the user who triggered the interaction
func InvokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// IsUserAdmin reports whether the invoking member may run admin commands: a
// configured admin id or a member holding the Administrator permission
func IsUserAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	userID := InvokerID(i)
	if id, err := ParseDiscordID(userID); err == nil && config.Get().IsAdmin(id) {
		return true
	}
	if i.Member == nil {
		return false
	}

	// Interactions carry the member's resolved permissions in the channel
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	for _, roleID := range i.Member.Roles {
		role, err := s.State.Role(i.GuildID, roleID)
		if err != nil {
			continue
		}
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"guildID": i.GuildID,
	}).Debug("User is not an admin")
	return false
}
