package models

import (
	"time"
)

// UserProgress holds a user's XP state within a single guild
type UserProgress struct {
	DiscordID int64     `db:"discord_id"`
	GuildID   int64     `db:"guild_id"`
	XP        int64     `db:"xp"`    // XP accumulated within the current level
	Level     int64     `db:"level"` // Starts at 1
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DefaultLevel is the level of a freshly created progress record
const DefaultLevel int64 = 1

// NewUserProgress returns the default progress for a user that has never earned XP
func NewUserProgress(discordID, guildID int64) UserProgress {
	return UserProgress{
		DiscordID: discordID,
		GuildID:   guildID,
		XP:        0,
		Level:     DefaultLevel,
	}
}

// LeaderboardEntry is a ranked row of a guild leaderboard
type LeaderboardEntry struct {
	Rank      int
	DiscordID int64
	XP        int64
	Level     int64
}
