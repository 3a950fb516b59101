package service

import (
	"context"

	"leveler/events"
	"leveler/models"
)

// ProgressRepository defines the interface for user progress data access.
// Implementations are scoped to a single guild.
type ProgressRepository interface {
	// GetByDiscordID retrieves a user's progress, returning nil if none exists
	GetByDiscordID(ctx context.Context, discordID int64) (*models.UserProgress, error)

	// GetOrCreate retrieves a user's progress, creating the default record if missing
	GetOrCreate(ctx context.Context, discordID int64) (*models.UserProgress, error)

	// Save writes the progress record, inserting it if needed
	Save(ctx context.Context, progress *models.UserProgress) error

	// Delete removes the progress record and reports whether one existed
	Delete(ctx context.Context, discordID int64) (bool, error)

	// GetLeaderboard returns up to limit users ordered by level, xp, then user id
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	// GetTopUser returns the first leaderboard row, or nil if the guild has no progress
	GetTopUser(ctx context.Context) (*models.UserProgress, error)
}

// GuildSettingsRepository defines the interface for guild settings data access
type GuildSettingsRepository interface {
	// GetGuildSettings retrieves guild settings, returning nil if none exist
	GetGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// GetOrCreateGuildSettings retrieves guild settings or creates default ones if not found
	GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// UpdateGuildSettings updates guild settings
	UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error
}

// EventPublisher queues domain events raised inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases queued events
	Commit() error

	// Rollback rolls back the transaction and drops queued events
	Rollback() error

	// Repository getters
	ProgressRepository() ProgressRepository
	GuildSettingsRepository() GuildSettingsRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// CreateForGuild creates a new UnitOfWork instance scoped to a specific guild
	CreateForGuild(guildID int64) UnitOfWork
}

// RankInfo is a user's progress together with the XP needed for the next level
type RankInfo struct {
	Progress    models.UserProgress
	NextLevelXP int64
}

// GrantResult describes a single committed XP grant
type GrantResult struct {
	UserID    int64
	GuildID   int64
	Amount    int64
	Progress  models.UserProgress
	LeveledUp bool
	Reason    events.XPChangeReason
}

// LevelingService defines the XP operations exposed to commands and activity handlers
type LevelingService interface {
	// GetRank returns a user's progress, creating the default record on first read
	GetRank(ctx context.Context, guildID, discordID int64) (*RankInfo, error)

	// GetLeaderboard returns the guild's top users; limit <= 0 uses the default size
	GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]models.LeaderboardEntry, error)

	// AddXP grants XP, possibly across several levels
	AddXP(ctx context.Context, guildID, discordID, amount int64) (*GrantResult, error)

	// RemoveXP takes XP away without changing the level
	RemoveXP(ctx context.Context, guildID, discordID, amount int64) (*models.UserProgress, error)

	// ResetXP deletes the user's progress record and reports whether one existed
	ResetXP(ctx context.Context, guildID, discordID int64) (bool, error)

	// HandleActivity converts an inbound activity into cooldown-gated grants
	HandleActivity(ctx context.Context, activity models.Activity) ([]GrantResult, error)
}

// GuildSettingsService defines the interface for guild settings operations
type GuildSettingsService interface {
	// GetSettings retrieves guild settings; unconfigured guilds get empty settings
	GetSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error)

	// SetRewardRole binds the role held by the guild's top user
	SetRewardRole(ctx context.Context, guildID, roleID int64) error

	// SetAnnouncementChannel binds the channel used for level-up announcements
	SetAnnouncementChannel(ctx context.Context, guildID, channelID int64) error
}

// GuildGateway is the platform surface the top-rank tracker needs.
// Implementations map platform failures to ErrPermissionDenied and ErrMemberNotFound.
type GuildGateway interface {
	// GuildIDs lists the guilds the bot is currently in
	GuildIDs() []int64

	AddRole(ctx context.Context, guildID, userID, roleID int64) error
	RemoveRole(ctx context.Context, guildID, userID, roleID int64) error

	// AnnounceNewLeader posts the "new #1" message to the guild's system channel
	AnnounceNewLeader(ctx context.Context, guildID, userID, roleID int64) error
}

// Metrics is the instrumentation the services record. *observability.MetricsProvider
// satisfies it; a nil Metrics disables recording.
type Metrics interface {
	RecordActivity(kind string)
	RecordXPGrant(reason string, amount int64)
	RecordLevelUp(reason string)
	RecordLeaderChange()
	RecordRoleFailure(operation, errorType string)
	RecordCheckDropped()
}

type noopMetrics struct{}

func (noopMetrics) RecordActivity(string)            {}
func (noopMetrics) RecordXPGrant(string, int64)      {}
func (noopMetrics) RecordLevelUp(string)             {}
func (noopMetrics) RecordLeaderChange()              {}
func (noopMetrics) RecordRoleFailure(string, string) {}
func (noopMetrics) RecordCheckDropped()              {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
