package repository

import (
	"context"
	"errors"
	"fmt"

	"leveler/database"
	"leveler/models"

	"github.com/jackc/pgx/v5"
)

// GuildSettingsRepository implements the GuildSettingsRepository interface
type GuildSettingsRepository struct {
	q Queryable
}

// NewGuildSettingsRepository creates a new guild settings repository
func NewGuildSettingsRepository(db *database.DB) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: db.Pool}
}

// newGuildSettingsRepositoryWithTx creates a new guild settings repository with a transaction
func newGuildSettingsRepositoryWithTx(tx Queryable) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: tx}
}

// GetGuildSettings retrieves guild settings, returning nil when the guild has none
func (r *GuildSettingsRepository) GetGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	query := `
		SELECT guild_id, reward_role_id, levelup_channel_id
		FROM guild_settings
		WHERE guild_id = $1
	`

	var settings models.GuildSettings
	err := r.q.QueryRow(ctx, query, guildID).Scan(
		&settings.GuildID,
		&settings.RewardRoleID,
		&settings.LevelUpChannelID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings for guild %d: %w", guildID, err)
	}

	return &settings, nil
}

// GetOrCreateGuildSettings retrieves guild settings or creates default ones if not found
func (r *GuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	settings, err := r.GetGuildSettings(ctx, guildID)
	if err != nil || settings != nil {
		return settings, err
	}

	// DO UPDATE on conflict so RETURNING yields the row even if another writer won the insert
	insertQuery := `
		INSERT INTO guild_settings (guild_id, reward_role_id, levelup_channel_id)
		VALUES ($1, NULL, NULL)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = EXCLUDED.guild_id
		RETURNING guild_id, reward_role_id, levelup_channel_id
	`

	settings = &models.GuildSettings{}
	err = r.q.QueryRow(ctx, insertQuery, guildID).Scan(
		&settings.GuildID,
		&settings.RewardRoleID,
		&settings.LevelUpChannelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guild settings for guild %d: %w", guildID, err)
	}

	return settings, nil
}

// UpdateGuildSettings updates guild settings
func (r *GuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	query := `
		UPDATE guild_settings
		SET reward_role_id = $2,
		    levelup_channel_id = $3,
		    updated_at = NOW()
		WHERE guild_id = $1
	`

	result, err := r.q.Exec(ctx, query,
		settings.GuildID,
		settings.RewardRoleID,
		settings.LevelUpChannelID,
	)
	if err != nil {
		return fmt.Errorf("failed to update guild settings for guild %d: %w", settings.GuildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("guild settings for guild %d not found", settings.GuildID)
	}

	return nil
}
