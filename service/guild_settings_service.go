package service

import (
	"context"
	"fmt"

	"leveler/models"
)

// guildSettingsService implements the GuildSettingsService interface
type guildSettingsService struct {
	uowFactory UnitOfWorkFactory
	serializer *MutationSerializer
}

// NewGuildSettingsService creates a new guild settings service
func NewGuildSettingsService(uowFactory UnitOfWorkFactory, serializer *MutationSerializer) GuildSettingsService {
	return &guildSettingsService{
		uowFactory: uowFactory,
		serializer: serializer,
	}
}

// GetSettings returns the guild's bindings. A guild that never configured
// anything gets empty settings; no row is written.
func (s *guildSettingsService) GetSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	var settings *models.GuildSettings

	err := s.serializer.Read(ctx, func(ctx context.Context) error {
		uow := s.uowFactory.CreateForGuild(guildID)
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		settings, err = uow.GuildSettingsRepository().GetGuildSettings(ctx, guildID)
		if err != nil {
			return fmt.Errorf("failed to get guild settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settings == nil {
		settings = &models.GuildSettings{GuildID: guildID}
	}
	return settings, nil
}

// SetRewardRole binds the reward role for a guild
func (s *guildSettingsService) SetRewardRole(ctx context.Context, guildID, roleID int64) error {
	return s.update(ctx, guildID, func(settings *models.GuildSettings) {
		settings.RewardRoleID = &roleID
	})
}

// SetAnnouncementChannel binds the level-up announcement channel for a guild
func (s *guildSettingsService) SetAnnouncementChannel(ctx context.Context, guildID, channelID int64) error {
	return s.update(ctx, guildID, func(settings *models.GuildSettings) {
		settings.LevelUpChannelID = &channelID
	})
}

// update applies mutate to the guild's settings row, creating it first if needed
func (s *guildSettingsService) update(ctx context.Context, guildID int64, mutate func(*models.GuildSettings)) error {
	return s.serializer.Mutate(ctx, func(ctx context.Context) error {
		uow := s.uowFactory.CreateForGuild(guildID)
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback() // No-op if already committed

		settings, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, guildID)
		if err != nil {
			return fmt.Errorf("failed to get guild settings: %w", err)
		}

		mutate(settings)

		if err := uow.GuildSettingsRepository().UpdateGuildSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to update guild settings: %w", err)
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}
