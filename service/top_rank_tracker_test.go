package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"leveler/events"
	"leveler/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testRole int64 = 777

func newTrackerFixture(t *testing.T) (*TopRankTracker, *memoryStore, *MockGuildGateway, *countingMetrics) {
	t.Helper()
	store := newMemoryStore(events.NewBus())
	gateway := new(MockGuildGateway)
	metrics := &countingMetrics{}
	tracker := NewTopRankTracker(store, NewMutationSerializer(), gateway, nil, metrics, time.Second)
	return tracker, store, gateway, metrics
}

func bindRewardRole(store *memoryStore, guildID int64) {
	role := testRole
	store.putSettings(models.GuildSettings{GuildID: guildID, RewardRoleID: &role})
}

func TestTopRankTracker_EmptyGuild(t *testing.T) {
	tracker, _, gateway, _ := newTrackerFixture(t)

	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	require.NoError(t, err)
	assert.False(t, changed)
	_, known := tracker.Leader(testGuild)
	assert.False(t, known)
	gateway.AssertNotCalled(t, "AddRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTopRankTracker_FirstLeaderGetsRole(t *testing.T) {
	tracker, store, gateway, metrics := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})
	store.put(models.UserProgress{DiscordID: 2, GuildID: testGuild, XP: 90, Level: 2})

	gateway.On("AddRole", mock.Anything, testGuild, int64(1), testRole).Return(nil).Once()
	gateway.On("AnnounceNewLeader", mock.Anything, testGuild, int64(1), testRole).Return(nil).Once()

	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	require.NoError(t, err)
	assert.True(t, changed)
	leader, known := tracker.Leader(testGuild)
	assert.True(t, known)
	assert.Equal(t, int64(1), leader)
	assert.Equal(t, 1, metrics.leaderChanges)

	gateway.AssertExpectations(t)
	gateway.AssertNotCalled(t, "RemoveRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTopRankTracker_RepeatedChecksAreIdempotent(t *testing.T) {
	tracker, store, gateway, _ := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	gateway.On("AddRole", mock.Anything, testGuild, int64(1), testRole).Return(nil)
	gateway.On("AnnounceNewLeader", mock.Anything, testGuild, int64(1), testRole).Return(nil)

	for i := 0; i < 5; i++ {
		_, err := tracker.CheckAndUpdate(context.Background(), testGuild)
		require.NoError(t, err)
	}

	gateway.AssertNumberOfCalls(t, "AddRole", 1)
	gateway.AssertNumberOfCalls(t, "AnnounceNewLeader", 1)
}

func TestTopRankTracker_LeaderChangeMovesRole(t *testing.T) {
	tracker, store, gateway, _ := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	gateway.On("AddRole", mock.Anything, testGuild, mock.Anything, testRole).Return(nil)
	gateway.On("AnnounceNewLeader", mock.Anything, testGuild, mock.Anything, testRole).Return(nil)
	gateway.On("RemoveRole", mock.Anything, testGuild, int64(1), testRole).Return(nil).Once()

	_, err := tracker.CheckAndUpdate(context.Background(), testGuild)
	require.NoError(t, err)

	store.put(models.UserProgress{DiscordID: 2, GuildID: testGuild, XP: 0, Level: 5})
	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	require.NoError(t, err)
	assert.True(t, changed)
	gateway.AssertCalled(t, "RemoveRole", mock.Anything, testGuild, int64(1), testRole)
	gateway.AssertCalled(t, "AddRole", mock.Anything, testGuild, int64(2), testRole)
	gateway.AssertNumberOfCalls(t, "AddRole", 2)
}

func TestTopRankTracker_NoRewardRoleStillTracksLeader(t *testing.T) {
	tracker, store, gateway, _ := newTrackerFixture(t)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)
	require.NoError(t, err)
	assert.True(t, changed)

	leader, known := tracker.Leader(testGuild)
	assert.True(t, known)
	assert.Equal(t, int64(1), leader)

	// Binding a role later does not retroactively assign it to an unchanged leader
	bindRewardRole(store, testGuild)
	changed, err = tracker.CheckAndUpdate(context.Background(), testGuild)
	require.NoError(t, err)
	assert.False(t, changed)

	gateway.AssertNotCalled(t, "AddRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "RemoveRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTopRankTracker_PreviousLeaderLeftGuild(t *testing.T) {
	tracker, store, gateway, metrics := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	gateway.On("AddRole", mock.Anything, testGuild, mock.Anything, testRole).Return(nil)
	gateway.On("AnnounceNewLeader", mock.Anything, testGuild, mock.Anything, testRole).Return(nil)
	gateway.On("RemoveRole", mock.Anything, testGuild, int64(1), testRole).
		Return(fmt.Errorf("remove role: %w", ErrMemberNotFound))

	_, err := tracker.CheckAndUpdate(context.Background(), testGuild)
	require.NoError(t, err)

	store.put(models.UserProgress{DiscordID: 2, GuildID: testGuild, XP: 0, Level: 6})
	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	require.NoError(t, err)
	assert.True(t, changed)
	gateway.AssertCalled(t, "AddRole", mock.Anything, testGuild, int64(2), testRole)
	assert.Empty(t, metrics.roleFailures)
}

func TestTopRankTracker_PermissionDeniedIsLoggedNotReturned(t *testing.T) {
	tracker, store, gateway, metrics := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	gateway.On("AddRole", mock.Anything, testGuild, int64(1), testRole).
		Return(fmt.Errorf("add role: %w", ErrPermissionDenied)).Once()

	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"add:permission_denied"}, metrics.roleFailures)
	gateway.AssertNotCalled(t, "AnnounceNewLeader", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// The cache moved on; the next check does not retry
	changed, err = tracker.CheckAndUpdate(context.Background(), testGuild)
	require.NoError(t, err)
	assert.False(t, changed)
	gateway.AssertNumberOfCalls(t, "AddRole", 1)
}

func TestTopRankTracker_NewLeaderLeftGuild(t *testing.T) {
	tracker, store, gateway, metrics := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	gateway.On("AddRole", mock.Anything, testGuild, int64(1), testRole).Return(ErrMemberNotFound).Once()

	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, metrics.roleFailures)
	gateway.AssertNotCalled(t, "AnnounceNewLeader", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTopRankTracker_StoreErrorIsReturned(t *testing.T) {
	tracker, store, gateway, _ := newTrackerFixture(t)
	store.failBegin = errors.New("connection refused")

	changed, err := tracker.CheckAndUpdate(context.Background(), testGuild)

	assert.Error(t, err)
	assert.False(t, changed)
	_, known := tracker.Leader(testGuild)
	assert.False(t, known)
	gateway.AssertNotCalled(t, "AddRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTopRankTracker_EmitsLeaderChanged(t *testing.T) {
	bus := events.NewBus()
	collector := &eventCollector{}
	bus.Subscribe(events.EventTypeLeaderChanged, collector.handle)

	store := newMemoryStore(bus)
	gateway := new(MockGuildGateway)
	tracker := NewTopRankTracker(store, NewMutationSerializer(), gateway, bus, nil, time.Second)

	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})
	gateway.On("AddRole", mock.Anything, testGuild, int64(1), testRole).Return(nil)
	gateway.On("AnnounceNewLeader", mock.Anything, testGuild, int64(1), testRole).Return(errors.New("no channel"))

	_, err := tracker.CheckAndUpdate(context.Background(), testGuild)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(collector.ofType(events.EventTypeLeaderChanged)) == 1
	}, time.Second, 5*time.Millisecond)

	event := collector.ofType(events.EventTypeLeaderChanged)[0].(events.LeaderChangedEvent)
	assert.Equal(t, int64(1), event.NewUserID)
	assert.Equal(t, int64(0), event.PreviousUserID)
	require.NotNil(t, event.RewardRoleID)
	assert.Equal(t, testRole, *event.RewardRoleID)
}

func TestTopRankTracker_ChecksOfOneGuildDoNotOverlap(t *testing.T) {
	tracker, store, gateway, _ := newTrackerFixture(t)
	bindRewardRole(store, testGuild)
	store.put(models.UserProgress{DiscordID: 1, GuildID: testGuild, XP: 10, Level: 4})

	entered := make(chan struct{})
	release := make(chan struct{})
	gateway.On("AddRole", mock.Anything, testGuild, int64(1), testRole).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil).Once()
	gateway.On("AddRole", mock.Anything, testGuild, int64(2), testRole).Return(nil).Once()
	gateway.On("RemoveRole", mock.Anything, testGuild, int64(1), testRole).Return(nil).Once()
	gateway.On("AnnounceNewLeader", mock.Anything, testGuild, mock.Anything, testRole).Return(nil)

	first := make(chan error, 1)
	go func() {
		_, err := tracker.CheckAndUpdate(context.Background(), testGuild)
		first <- err
	}()
	<-entered

	// The top changes while the first role move is still in flight
	store.put(models.UserProgress{DiscordID: 2, GuildID: testGuild, XP: 0, Level: 9})
	second := make(chan error, 1)
	go func() {
		_, err := tracker.CheckAndUpdate(context.Background(), testGuild)
		second <- err
	}()

	time.Sleep(50 * time.Millisecond)
	gateway.AssertNotCalled(t, "RemoveRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	leader, _ := tracker.Leader(testGuild)
	assert.Equal(t, int64(2), leader)
	gateway.AssertExpectations(t)
}

func TestTopRankTracker_SweepChecksEveryGuild(t *testing.T) {
	tracker, store, gateway, _ := newTrackerFixture(t)

	guilds := []int64{1, 2, 3}
	for _, guildID := range guilds {
		bindRewardRole(store, guildID)
		store.put(models.UserProgress{DiscordID: guildID * 10, GuildID: guildID, XP: 1, Level: 2})
	}

	gateway.On("GuildIDs").Return(guilds)
	gateway.On("AddRole", mock.Anything, mock.Anything, mock.Anything, testRole).Return(nil)
	gateway.On("AnnounceNewLeader", mock.Anything, mock.Anything, mock.Anything, testRole).Return(nil)

	tracker.Sweep(context.Background())

	for _, guildID := range guilds {
		leader, known := tracker.Leader(guildID)
		assert.True(t, known)
		assert.Equal(t, guildID*10, leader)
		gateway.AssertCalled(t, "AddRole", mock.Anything, guildID, guildID*10, testRole)
	}
}

func TestTopRankTracker_PeriodicSweepStops(t *testing.T) {
	tracker, _, gateway, _ := newTrackerFixture(t)

	swept := make(chan struct{}, 1)
	gateway.On("GuildIDs").Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	}).Return([]int64{})

	stop := tracker.StartPeriodicSweep(context.Background(), 5*time.Millisecond)

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("periodic sweep never ran")
	}

	stop()
	stop()
}
