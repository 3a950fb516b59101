package rank

import (
	"leveler/bot/common"
	"leveler/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (f *Feature) handleRank(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	guildID, err := common.ParseDiscordID(i.GuildID)
	if err != nil {
		common.HandleError(s, i, common.NewUserError("This command only works in a server.", "rank outside guild"), false)
		return
	}

	target := i.Member.User
	if opt := common.FindOption(i.ApplicationCommandData().Options, "member"); opt != nil {
		if user := opt.UserValue(s); user != nil {
			target = user
		}
	}
	if target.Bot {
		common.HandleError(s, i, common.NewUserError("Bots don't earn XP.", "rank requested for bot"), false)
		return
	}

	targetID, err := common.ParseDiscordID(target.ID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to parse member id"), false)
		return
	}

	info, err := f.levelingService.GetRank(ctx, guildID, targetID)
	if err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to load rank"), false)
		return
	}

	displayName := common.GetDisplayName(s, i.GuildID, target.ID)
	if err := common.RespondWithEmbed(s, i, buildRankEmbed(displayName, target.AvatarURL(""), info), false); err != nil {
		log.Errorf("Error responding to rank command: %v", err)
	}
}

func (f *Feature) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := common.CommandContext()
	defer cancel()

	guildID, err := common.ParseDiscordID(i.GuildID)
	if err != nil {
		common.HandleError(s, i, common.NewUserError("This command only works in a server.", "leaderboard outside guild"), false)
		return
	}

	// Display names may need REST lookups
	if err := common.DeferResponse(s, i, false); err != nil {
		log.Errorf("Error deferring leaderboard response: %v", err)
		return
	}

	entries, err := f.levelingService.GetLeaderboard(ctx, guildID, service.DefaultLeaderboardSize)
	if err != nil {
		common.HandleError(s, i, common.FromServiceError(err, "failed to load leaderboard"), true)
		return
	}

	guildName := "Server"
	if guild, err := s.State.Guild(i.GuildID); err == nil && guild.Name != "" {
		guildName = guild.Name
	}

	names := make(map[int64]string, len(entries))
	for _, entry := range entries {
		names[entry.DiscordID] = common.GetDisplayNameInt64(s, i.GuildID, entry.DiscordID)
	}

	if _, err := common.FollowUpWithEmbed(s, i, buildLeaderboardEmbed(guildName, entries, names), false); err != nil {
		log.Errorf("Error sending leaderboard: %v", err)
	}
}
