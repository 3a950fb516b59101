package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"leveler/service"
)

var (
	adminPermission int64 = discordgo.PermissionAdministrator
	minAmount             = float64(0)
	maxAmount             = float64(service.MaxXPAdjustment)
)

// applicationCommands lists the slash commands registered with Discord
func applicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "rank",
			Description: "Check your level and XP",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to check (defaults to you)",
					Required:    false,
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "Show the server's top members",
		},
		{
			Name:                     "setrewardrole",
			Description:              "Set the role given to the #1 member (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "The role to give the top member",
					Required:    true,
				},
			},
		},
		{
			Name:                     "setlevelchannel",
			Description:              "Set the channel for level-up messages (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "Channel for level-up messages",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{
			Name:                     "addxp",
			Description:              "Give XP to a member (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options:                  memberAmountOptions("Amount of XP to add"),
		},
		{
			Name:                     "removexp",
			Description:              "Take XP from a member (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options:                  memberAmountOptions("Amount of XP to remove"),
		},
		{
			Name:                     "resetxp",
			Description:              "Reset a member's XP and level (admin only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "Member to reset",
					Required:    true,
				},
			},
		},
		{
			Name:        "help",
			Description: "Show the bot's commands",
		},
	}
}

func memberAmountOptions(amountDescription string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "member",
			Description: "Target member",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: amountDescription,
			Required:    true,
			MinValue:    &minAmount,
			MaxValue:    maxAmount,
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	commands := applicationCommands()
	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commands)
	if err != nil {
		return fmt.Errorf("cannot register commands: %w", err)
	}
	log.Infof("Registered %d slash commands", len(registered))
	return nil
}

// handleCommands routes slash commands to their features
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" || i.Member == nil {
		respondGuildOnly(s, i)
		return
	}

	name := i.ApplicationCommandData().Name
	log.WithFields(log.Fields{
		"command": name,
		"guildID": i.GuildID,
		"userID":  i.Member.User.ID,
	}).Debug("Handling command")

	switch name {
	case "rank", "leaderboard":
		b.rankFeature.HandleCommand(s, i)
	case "setrewardrole", "setlevelchannel":
		b.settingsFeature.HandleCommand(s, i)
	case "addxp", "removexp", "resetxp":
		b.xpAdminFeature.HandleCommand(s, i)
	case "help":
		handleHelp(s, i)
	}
}

func respondGuildOnly(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "❌ This command only works in a server.",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error responding to direct message command: %v", err)
	}
}
