package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leveler/events"
	"leveler/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultExternalCallTimeout = 10 * time.Second
	defaultSweepConcurrency    = 4
)

// TopRankTracker keeps the guild reward role on the current #1 user
type TopRankTracker struct {
	uowFactory  UnitOfWorkFactory
	serializer  *MutationSerializer
	gateway     GuildGateway
	eventBus    *events.Bus
	metrics     Metrics
	callTimeout time.Duration

	mu         sync.Mutex
	leaders    map[int64]int64 // guild -> last known top user
	guildLocks map[int64]*sync.Mutex
}

// NewTopRankTracker creates a tracker with an empty leader cache
func NewTopRankTracker(
	uowFactory UnitOfWorkFactory,
	serializer *MutationSerializer,
	gateway GuildGateway,
	eventBus *events.Bus,
	metrics Metrics,
	callTimeout time.Duration,
) *TopRankTracker {
	if callTimeout <= 0 {
		callTimeout = defaultExternalCallTimeout
	}
	return &TopRankTracker{
		uowFactory:  uowFactory,
		serializer:  serializer,
		gateway:     gateway,
		eventBus:    eventBus,
		metrics:     metricsOrNoop(metrics),
		callTimeout: callTimeout,
		leaders:     make(map[int64]int64),
		guildLocks:  make(map[int64]*sync.Mutex),
	}
}

// guildLock serializes checks of one guild so role moves never interleave
func (t *TopRankTracker) guildLock(guildID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.guildLocks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		t.guildLocks[guildID] = lock
	}
	return lock
}

// Leader returns the cached top user for a guild
func (t *TopRankTracker) Leader(guildID int64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID, ok := t.leaders[guildID]
	return userID, ok
}

// CheckAndUpdate compares the guild's current top user with the cached one and,
// on a change, moves the reward role. It reports whether the leader changed.
// Only store failures are returned; platform failures are logged.
// Checks of the same guild run one at a time, whether queued or swept.
func (t *TopRankTracker) CheckAndUpdate(ctx context.Context, guildID int64) (bool, error) {
	lock := t.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	top, settings, err := t.readTop(ctx, guildID)
	if err != nil {
		return false, err
	}
	if top == nil {
		return false, nil
	}

	t.mu.Lock()
	previous, known := t.leaders[guildID]
	if known && previous == top.DiscordID {
		t.mu.Unlock()
		return false, nil
	}
	t.leaders[guildID] = top.DiscordID
	t.mu.Unlock()

	t.metrics.RecordLeaderChange()
	logger := log.WithFields(log.Fields{
		"guildID":  guildID,
		"previous": previous,
		"leader":   top.DiscordID,
		"level":    top.Level,
		"xp":       top.XP,
	})
	logger.Info("Top rank changed")

	event := events.LeaderChangedEvent{
		GuildID:        guildID,
		PreviousUserID: previous,
		NewUserID:      top.DiscordID,
	}

	if settings.HasRewardRole() {
		roleID := *settings.RewardRoleID
		event.RewardRoleID = &roleID
		t.transferRole(ctx, guildID, previous, top.DiscordID, roleID)
	}

	if t.eventBus != nil {
		t.eventBus.Emit(ctx, event)
	}

	return true, nil
}

// readTop loads the top user and the guild bindings under a read share
func (t *TopRankTracker) readTop(ctx context.Context, guildID int64) (*models.UserProgress, *models.GuildSettings, error) {
	var top *models.UserProgress
	var settings *models.GuildSettings

	err := t.serializer.Read(ctx, func(ctx context.Context) error {
		uow := t.uowFactory.CreateForGuild(guildID)
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		top, err = uow.ProgressRepository().GetTopUser(ctx)
		if err != nil {
			return err
		}
		if top == nil {
			return nil
		}

		settings, err = uow.GuildSettingsRepository().GetGuildSettings(ctx, guildID)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read top user for guild %d: %w", guildID, err)
	}

	return top, settings, nil
}

func (t *TopRankTracker) transferRole(ctx context.Context, guildID, previous, leader, roleID int64) {
	logger := log.WithFields(log.Fields{
		"guildID": guildID,
		"roleID":  roleID,
	})

	if previous != 0 {
		callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
		err := t.gateway.RemoveRole(callCtx, guildID, previous, roleID)
		cancel()
		if err != nil && !errors.Is(err, ErrMemberNotFound) {
			t.metrics.RecordRoleFailure("remove", errorType(err))
			logger.WithError(err).WithField("userID", previous).Warn("Failed to remove reward role from previous leader")
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
	err := t.gateway.AddRole(callCtx, guildID, leader, roleID)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, ErrMemberNotFound):
		logger.WithField("userID", leader).Debug("New leader is no longer a member, skipping reward role")
		return
	default:
		t.metrics.RecordRoleFailure("add", errorType(err))
		logger.WithError(err).WithField("userID", leader).Error("Failed to assign reward role to new leader")
		return
	}

	logger.WithField("userID", leader).Info("Assigned reward role to new leader")

	callCtx, cancel = context.WithTimeout(ctx, t.callTimeout)
	defer cancel()
	if err := t.gateway.AnnounceNewLeader(callCtx, guildID, leader, roleID); err != nil {
		logger.WithError(err).Debug("Failed to announce new leader")
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrMemberNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// Sweep checks every guild the bot is in. Failures are logged per guild and
// never stop the sweep.
func (t *TopRankTracker) Sweep(ctx context.Context) {
	guildIDs := t.gateway.GuildIDs()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultSweepConcurrency)

	for _, guildID := range guildIDs {
		g.Go(func() error {
			if _, err := t.CheckAndUpdate(gctx, guildID); err != nil {
				log.WithFields(log.Fields{
					"guildID": guildID,
					"error":   err,
				}).Error("Top-rank check failed during sweep")
			}
			return nil
		})
	}
	_ = g.Wait()

	log.WithField("guilds", len(guildIDs)).Debug("Top-rank sweep completed")
}

// StartPeriodicSweep runs Sweep every interval until ctx ends or the returned
// cleanup function is called
func (t *TopRankTracker) StartPeriodicSweep(ctx context.Context, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer close(done)
		log.WithField("interval", interval).Info("Top-rank sweep worker started")

		for {
			select {
			case <-ticker.C:
				t.Sweep(ctx)
			case <-ctx.Done():
				log.Info("Top-rank sweep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Top-rank sweep worker shutting down (stop requested)...")
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopChan)
			<-done
		})
	}
}
