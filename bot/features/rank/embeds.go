package rank

import (
	"fmt"
	"strings"

	"leveler/bot/common"
	"leveler/models"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
)

func buildRankEmbed(displayName, avatarURL string, info *service.RankInfo) *discordgo.MessageEmbed {
	progress := info.Progress

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🏅 %s's Rank", displayName),
		Color: common.ColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Level",
				Value:  common.FormatNumber(progress.Level),
				Inline: true,
			},
			{
				Name:   "XP",
				Value:  fmt.Sprintf("%s/%s", common.FormatNumber(progress.XP), common.FormatNumber(info.NextLevelXP)),
				Inline: true,
			},
			{
				Name:  "Progress",
				Value: common.FormatProgressBar(progress.XP, info.NextLevelXP, common.ProgressBarWidth),
			},
		},
	}

	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}

	return embed
}

func buildLeaderboardEmbed(guildName string, entries []models.LeaderboardEntry, names map[int64]string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🏆 %s Leaderboard", guildName),
		Color: common.ColorGold,
	}

	if len(entries) == 0 {
		embed.Description = "No XP data found."
		return embed
	}

	var sb strings.Builder
	for _, entry := range entries {
		name, ok := names[entry.DiscordID]
		if !ok {
			name = common.GetUserMention(entry.DiscordID)
		}
		fmt.Fprintf(&sb, "%s %s, Level %d (%s XP)\n",
			common.FormatRankPrefix(entry.Rank), name, entry.Level, common.FormatNumber(entry.XP))
	}
	embed.Description = strings.TrimSuffix(sb.String(), "\n")

	return embed
}
