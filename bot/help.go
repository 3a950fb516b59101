package bot

import (
	"fmt"

	"leveler/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func helpEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📖 %s Help", common.BotName),
		Description: "Earn XP by chatting and reacting. The #1 member gets the server's reward role.",
		Color:       common.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Leveling",
				Value: "`/rank [member]` - Show level and XP\n`/leaderboard` - Show the top 10 members",
			},
			{
				Name: "XP Management (Admins)",
				Value: "`/addxp member amount` - Give XP\n" +
					"`/removexp member amount` - Take XP\n" +
					"`/resetxp member` - Reset XP and level\n" +
					"`/setrewardrole role` - Role for the #1 member\n" +
					"`/setlevelchannel channel` - Channel for level-up messages",
			},
			{
				Name:  "Other",
				Value: "`/help` - Show this message",
			},
		},
	}
}

func handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := common.RespondWithEmbed(s, i, helpEmbed(), true); err != nil {
		log.Errorf("Error responding to help command: %v", err)
	}
}
