package service

import (
	"context"

	"leveler/events"
	"leveler/models"

	"github.com/stretchr/testify/mock"
)

// MockProgressRepository is a mock implementation of ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.UserProgress, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProgress), args.Error(1)
}

func (m *MockProgressRepository) GetOrCreate(ctx context.Context, discordID int64) (*models.UserProgress, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProgress), args.Error(1)
}

func (m *MockProgressRepository) Save(ctx context.Context, progress *models.UserProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockProgressRepository) Delete(ctx context.Context, discordID int64) (bool, error) {
	args := m.Called(ctx, discordID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgressRepository) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

func (m *MockProgressRepository) GetTopUser(ctx context.Context) (*models.UserProgress, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProgress), args.Error(1)
}

// MockGuildSettingsRepository is a mock implementation of GuildSettingsRepository
type MockGuildSettingsRepository struct {
	mock.Mock
}

func (m *MockGuildSettingsRepository) GetGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories set with
// SetRepositories are returned directly; otherwise the getters are mocked calls.
type MockUnitOfWork struct {
	mock.Mock
	progressRepo      ProgressRepository
	guildSettingsRepo GuildSettingsRepository
	eventBus          EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(progressRepo ProgressRepository, guildSettingsRepo GuildSettingsRepository, eventBus EventPublisher) {
	m.progressRepo = progressRepo
	m.guildSettingsRepo = guildSettingsRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) ProgressRepository() ProgressRepository {
	if m.progressRepo != nil {
		return m.progressRepo
	}
	args := m.Called()
	return args.Get(0).(ProgressRepository)
}

func (m *MockUnitOfWork) GuildSettingsRepository() GuildSettingsRepository {
	if m.guildSettingsRepo != nil {
		return m.guildSettingsRepo
	}
	args := m.Called()
	return args.Get(0).(GuildSettingsRepository)
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus != nil {
		return m.eventBus
	}
	args := m.Called()
	return args.Get(0).(EventPublisher)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) CreateForGuild(guildID int64) UnitOfWork {
	args := m.Called(guildID)
	return args.Get(0).(UnitOfWork)
}

// MockGuildGateway is a mock implementation of GuildGateway
type MockGuildGateway struct {
	mock.Mock
}

func (m *MockGuildGateway) GuildIDs() []int64 {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]int64)
}

func (m *MockGuildGateway) AddRole(ctx context.Context, guildID, userID, roleID int64) error {
	args := m.Called(ctx, guildID, userID, roleID)
	return args.Error(0)
}

func (m *MockGuildGateway) RemoveRole(ctx context.Context, guildID, userID, roleID int64) error {
	args := m.Called(ctx, guildID, userID, roleID)
	return args.Error(0)
}

func (m *MockGuildGateway) AnnounceNewLeader(ctx context.Context, guildID, userID, roleID int64) error {
	args := m.Called(ctx, guildID, userID, roleID)
	return args.Error(0)
}
