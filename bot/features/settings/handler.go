package settings

import (
	"fmt"

	"leveler/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleSetRewardRole handles the /setrewardrole command
func (f *Feature) handleSetRewardRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	guildID, err := common.ParseDiscordID(i.GuildID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to parse guild id"), false)
		return
	}

	opt := common.FindOption(i.ApplicationCommandData().Options, "role")
	if opt == nil {
		common.HandleError(s, i, common.NewUserError("Please choose a role.", "setrewardrole without role"), false)
		return
	}
	role := opt.RoleValue(s, i.GuildID)
	if role == nil || role.ID == "" {
		common.HandleError(s, i, common.NewUserError("Invalid role selected.", "setrewardrole unresolved role"), false)
		return
	}

	roleID, err := common.ParseDiscordID(role.ID)
	if err != nil {
		common.HandleError(s, i, common.NewUserError("Invalid role selected.", "setrewardrole malformed role id"), false)
		return
	}

	if err := f.guildSettingsService.SetRewardRole(ctx, guildID, roleID); err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to update reward role"), false)
		return
	}

	log.WithFields(log.Fields{
		"guildID": guildID,
		"roleID":  roleID,
		"by":      common.InvokerID(i),
	}).Info("Reward role updated")

	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("Reward role set to %s.", common.GetRoleMention(roleID)), false); err != nil {
		log.Errorf("Failed to respond to interaction: %v", err)
	}
}

// handleSetLevelChannel handles the /setlevelchannel command
func (f *Feature) handleSetLevelChannel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	guildID, err := common.ParseDiscordID(i.GuildID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to parse guild id"), false)
		return
	}

	opt := common.FindOption(i.ApplicationCommandData().Options, "channel")
	if opt == nil {
		common.HandleError(s, i, common.NewUserError("Please choose a channel.", "setlevelchannel without channel"), false)
		return
	}

	rawID, _ := opt.Value.(string)
	channelID, err := common.ParseDiscordID(rawID)
	if err != nil {
		common.HandleError(s, i, common.NewUserError("Invalid channel selected.", "setlevelchannel malformed channel id"), false)
		return
	}

	if err := f.guildSettingsService.SetAnnouncementChannel(ctx, guildID, channelID); err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to update level-up channel"), false)
		return
	}

	log.WithFields(log.Fields{
		"guildID":   guildID,
		"channelID": channelID,
		"by":        common.InvokerID(i),
	}).Info("Level-up channel updated")

	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("Level-up messages will be posted in %s.", common.GetChannelMention(channelID)), false); err != nil {
		log.Errorf("Failed to respond to interaction: %v", err)
	}
}
