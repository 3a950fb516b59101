package models

// GuildSettings represents per-guild leveling configuration
type GuildSettings struct {
	GuildID          int64  `db:"guild_id"`
	RewardRoleID     *int64 `db:"reward_role_id"`     // Nullable - role held by the top user (NULL = disabled)
	LevelUpChannelID *int64 `db:"levelup_channel_id"` // Nullable - level-up announcements (NULL = event channel)
}

// HasRewardRole reports whether a reward role is bound for the guild
func (s *GuildSettings) HasRewardRole() bool {
	return s != nil && s.RewardRoleID != nil
}

// HasLevelUpChannel reports whether an announcement channel is bound for the guild
func (s *GuildSettings) HasLevelUpChannel() bool {
	return s != nil && s.LevelUpChannelID != nil
}
