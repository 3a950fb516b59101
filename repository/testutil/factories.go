package testutil

import (
	"time"

	"leveler/models"
)

// CreateTestProgress creates a progress record with the given state
func CreateTestProgress(discordID, guildID, xp, level int64) *models.UserProgress {
	now := time.Now()
	return &models.UserProgress{
		DiscordID: discordID,
		GuildID:   guildID,
		XP:        xp,
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestGuildSettings creates guild settings with both bindings set
func CreateTestGuildSettings(guildID, rewardRoleID, channelID int64) *models.GuildSettings {
	return &models.GuildSettings{
		GuildID:          guildID,
		RewardRoleID:     &rewardRoleID,
		LevelUpChannelID: &channelID,
	}
}
