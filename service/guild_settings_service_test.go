package service

import (
	"context"
	"errors"
	"testing"

	"leveler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGuildSettingsService_GetSettings_Unconfigured(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingsRepo := new(MockGuildSettingsRepository)
	mockUoW.SetRepositories(nil, mockSettingsRepo, nil)

	service := NewGuildSettingsService(mockFactory, NewMutationSerializer())

	mockFactory.On("CreateForGuild", testGuild).Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSettingsRepo.On("GetGuildSettings", ctx, testGuild).Return(nil, nil)

	settings, err := service.GetSettings(ctx, testGuild)

	require.NoError(t, err)
	assert.Equal(t, testGuild, settings.GuildID)
	assert.False(t, settings.HasRewardRole())
	assert.False(t, settings.HasLevelUpChannel())

	mockUoW.AssertNotCalled(t, "Commit")
	mockSettingsRepo.AssertNotCalled(t, "GetOrCreateGuildSettings", mock.Anything, mock.Anything)
	mockFactory.AssertExpectations(t)
	mockSettingsRepo.AssertExpectations(t)
}

func TestGuildSettingsService_SetRewardRole(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingsRepo := new(MockGuildSettingsRepository)
	mockUoW.SetRepositories(nil, mockSettingsRepo, nil)

	service := NewGuildSettingsService(mockFactory, NewMutationSerializer())

	channelID := int64(321)
	existing := &models.GuildSettings{GuildID: testGuild, LevelUpChannelID: &channelID}

	mockFactory.On("CreateForGuild", testGuild).Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSettingsRepo.On("GetOrCreateGuildSettings", ctx, testGuild).Return(existing, nil)
	mockSettingsRepo.On("UpdateGuildSettings", ctx, mock.MatchedBy(func(s *models.GuildSettings) bool {
		return s.RewardRoleID != nil && *s.RewardRoleID == testRole &&
			s.LevelUpChannelID != nil && *s.LevelUpChannelID == channelID
	})).Return(nil)

	err := service.SetRewardRole(ctx, testGuild, testRole)

	require.NoError(t, err)
	mockUoW.AssertExpectations(t)
	mockSettingsRepo.AssertExpectations(t)
}

func TestGuildSettingsService_SetAnnouncementChannel(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingsRepo := new(MockGuildSettingsRepository)
	mockUoW.SetRepositories(nil, mockSettingsRepo, nil)

	service := NewGuildSettingsService(mockFactory, NewMutationSerializer())

	mockFactory.On("CreateForGuild", testGuild).Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSettingsRepo.On("GetOrCreateGuildSettings", ctx, testGuild).Return(&models.GuildSettings{GuildID: testGuild}, nil)
	mockSettingsRepo.On("UpdateGuildSettings", ctx, mock.MatchedBy(func(s *models.GuildSettings) bool {
		return s.LevelUpChannelID != nil && *s.LevelUpChannelID == testChannel && s.RewardRoleID == nil
	})).Return(nil)

	err := service.SetAnnouncementChannel(ctx, testGuild, testChannel)

	require.NoError(t, err)
	mockUoW.AssertExpectations(t)
	mockSettingsRepo.AssertExpectations(t)
}

func TestGuildSettingsService_UpdateFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSettingsRepo := new(MockGuildSettingsRepository)
	mockUoW.SetRepositories(nil, mockSettingsRepo, nil)

	service := NewGuildSettingsService(mockFactory, NewMutationSerializer())

	mockFactory.On("CreateForGuild", testGuild).Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSettingsRepo.On("GetOrCreateGuildSettings", ctx, testGuild).Return(&models.GuildSettings{GuildID: testGuild}, nil)
	mockSettingsRepo.On("UpdateGuildSettings", ctx, mock.Anything).Return(errors.New("database error"))

	err := service.SetRewardRole(ctx, testGuild, testRole)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to update guild settings")
	mockUoW.AssertCalled(t, "Rollback")
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestGuildSettingsService_BeginFailure(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)

	service := NewGuildSettingsService(mockFactory, NewMutationSerializer())

	mockFactory.On("CreateForGuild", testGuild).Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(errors.New("pool closed"))

	_, err := service.GetSettings(ctx, testGuild)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	mockUoW.AssertNotCalled(t, "Rollback")
}
