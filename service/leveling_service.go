package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leveler/events"
	"leveler/models"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultLeaderboardSize is used when no limit is given
	DefaultLeaderboardSize = 10
	// MaxLeaderboardSize bounds a single leaderboard read
	MaxLeaderboardSize = 25
)

// LevelingSettings holds the activity reward rules
type LevelingSettings struct {
	MessageXP        XPRange
	ReactionXP       XPRange
	MessageCooldown  time.Duration
	ReactionCooldown time.Duration
}

// levelingService implements the LevelingService interface
type levelingService struct {
	uowFactory UnitOfWorkFactory
	serializer *MutationSerializer
	engine     *LevelingEngine
	cooldowns  *CooldownGate
	settings   LevelingSettings
	metrics    Metrics
	roll       XPRoller
	now        func() time.Time
}

// NewLevelingService creates a new leveling service
func NewLevelingService(
	uowFactory UnitOfWorkFactory,
	serializer *MutationSerializer,
	engine *LevelingEngine,
	cooldowns *CooldownGate,
	settings LevelingSettings,
	metrics Metrics,
) LevelingService {
	return &levelingService{
		uowFactory: uowFactory,
		serializer: serializer,
		engine:     engine,
		cooldowns:  cooldowns,
		settings:   settings,
		metrics:    metricsOrNoop(metrics),
		roll:       RandomXP,
		now:        time.Now,
	}
}

// GetRank returns a user's progress, creating the default record on first read
func (s *levelingService) GetRank(ctx context.Context, guildID, discordID int64) (*RankInfo, error) {
	var info *RankInfo

	err := s.withUnitOfWork(ctx, guildID, func(uow UnitOfWork) error {
		progress, err := uow.ProgressRepository().GetOrCreate(ctx, discordID)
		if err != nil {
			return err
		}
		info = &RankInfo{
			Progress:    *progress,
			NextLevelXP: s.engine.Threshold(progress.Level),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get rank for user %d: %w", discordID, err)
	}

	return info, nil
}

// GetLeaderboard returns the guild's top users ordered by level, then xp
func (s *levelingService) GetLeaderboard(ctx context.Context, guildID int64, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	var entries []models.LeaderboardEntry
	err := s.serializer.Read(ctx, func(ctx context.Context) error {
		uow := s.uowFactory.CreateForGuild(guildID)
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		var err error
		entries, err = uow.ProgressRepository().GetLeaderboard(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard for guild %d: %w", guildID, err)
	}

	return entries, nil
}

// MaxXPAdjustment caps a single admin add or remove
const MaxXPAdjustment int64 = 1_000_000_000

// AddXP grants amount XP to a user
func (s *levelingService) AddXP(ctx context.Context, guildID, discordID, amount int64) (*GrantResult, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if amount > MaxXPAdjustment {
		return nil, ErrAmountTooLarge
	}
	return s.grant(ctx, guildID, 0, discordID, amount, events.XPChangeReasonAdminAdd)
}

// RemoveXP takes up to amount XP from the user's current level
func (s *levelingService) RemoveXP(ctx context.Context, guildID, discordID, amount int64) (*models.UserProgress, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if amount > MaxXPAdjustment {
		return nil, ErrAmountTooLarge
	}

	var result models.UserProgress
	err := s.withUnitOfWork(ctx, guildID, func(uow UnitOfWork) error {
		progress, err := uow.ProgressRepository().GetOrCreate(ctx, discordID)
		if err != nil {
			return err
		}

		reduced, err := s.engine.Reduce(*progress, amount)
		if err != nil {
			return err
		}
		if err := uow.ProgressRepository().Save(ctx, &reduced); err != nil {
			return err
		}

		uow.EventBus().Publish(events.XPChangedEvent{
			UserID:   discordID,
			GuildID:  guildID,
			Reason:   events.XPChangeReasonRemove,
			Amount:   reduced.XP - progress.XP,
			OldXP:    progress.XP,
			NewXP:    reduced.XP,
			OldLevel: progress.Level,
			NewLevel: reduced.Level,
		})

		result = reduced
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove xp from user %d: %w", discordID, err)
	}

	return &result, nil
}

// ResetXP deletes the user's progress; the next read recreates it at level 1
func (s *levelingService) ResetXP(ctx context.Context, guildID, discordID int64) (bool, error) {
	var deleted bool

	err := s.withUnitOfWork(ctx, guildID, func(uow UnitOfWork) error {
		progress, err := uow.ProgressRepository().GetByDiscordID(ctx, discordID)
		if err != nil {
			return err
		}
		if progress == nil {
			return nil
		}

		deleted, err = uow.ProgressRepository().Delete(ctx, discordID)
		if err != nil {
			return err
		}

		uow.EventBus().Publish(events.XPChangedEvent{
			UserID:   discordID,
			GuildID:  guildID,
			Reason:   events.XPChangeReasonReset,
			Amount:   -progress.XP,
			OldXP:    progress.XP,
			NewXP:    0,
			OldLevel: progress.Level,
			NewLevel: models.DefaultLevel,
		})
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to reset xp for user %d: %w", discordID, err)
	}

	return deleted, nil
}

// grantTarget is one cooldown-gated recipient of an activity
type grantTarget struct {
	userID   int64
	subject  string
	cooldown time.Duration
	xp       XPRange
	reason   events.XPChangeReason
}

// HandleActivity grants XP for an inbound activity. Each recipient is gated
// by its own cooldown; a failed grant does not prevent the others.
func (s *levelingService) HandleActivity(ctx context.Context, activity models.Activity) ([]GrantResult, error) {
	var targets []grantTarget
	switch a := activity.(type) {
	case models.MessageActivity:
		targets = append(targets, grantTarget{
			userID:   a.AuthorID,
			subject:  MessageSubject(a.AuthorID),
			cooldown: s.settings.MessageCooldown,
			xp:       s.settings.MessageXP,
			reason:   events.XPChangeReasonMessage,
		})
	case models.ReactionActivity:
		targets = append(targets, grantTarget{
			userID:   a.ReactorID,
			subject:  ReactorSubject(a.ReactorID),
			cooldown: s.settings.ReactionCooldown,
			xp:       s.settings.ReactionXP,
			reason:   events.XPChangeReasonReaction,
		})
		if a.AuthorID != 0 && a.AuthorID != a.ReactorID {
			targets = append(targets, grantTarget{
				userID:   a.AuthorID,
				subject:  AuthorSubject(a.AuthorID),
				cooldown: s.settings.ReactionCooldown,
				xp:       s.settings.ReactionXP,
				reason:   events.XPChangeReasonReaction,
			})
		}
	default:
		return nil, fmt.Errorf("unsupported activity type %T", activity)
	}

	s.metrics.RecordActivity(string(activity.Kind()))
	guildID := activity.Guild()
	now := s.now()

	var results []GrantResult
	var errs []error
	for _, target := range targets {
		if target.userID == 0 {
			continue
		}
		// The cooldown stays consumed even if the write below fails
		if !s.cooldowns.TryAcquire(guildID, target.subject, now, target.cooldown) {
			log.WithFields(log.Fields{
				"guildID": guildID,
				"subject": target.subject,
			}).Debug("Activity on cooldown")
			continue
		}

		result, err := s.grant(ctx, guildID, activity.Channel(), target.userID, s.roll(target.xp), target.reason)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, *result)
	}

	return results, errors.Join(errs...)
}

// grant runs one read-compute-write cycle under the writer lock
func (s *levelingService) grant(ctx context.Context, guildID, channelID, discordID, amount int64, reason events.XPChangeReason) (*GrantResult, error) {
	var result *GrantResult

	err := s.withUnitOfWork(ctx, guildID, func(uow UnitOfWork) error {
		progress, err := uow.ProgressRepository().GetOrCreate(ctx, discordID)
		if err != nil {
			return err
		}

		updated, leveledUp, err := s.engine.Grant(*progress, amount)
		if err != nil {
			return err
		}
		if err := uow.ProgressRepository().Save(ctx, &updated); err != nil {
			return err
		}

		bus := uow.EventBus()
		bus.Publish(events.XPChangedEvent{
			UserID:   discordID,
			GuildID:  guildID,
			Reason:   reason,
			Amount:   amount,
			OldXP:    progress.XP,
			NewXP:    updated.XP,
			OldLevel: progress.Level,
			NewLevel: updated.Level,
		})
		if leveledUp {
			bus.Publish(events.LevelUpEvent{
				UserID:    discordID,
				GuildID:   guildID,
				ChannelID: channelID,
				OldLevel:  progress.Level,
				NewLevel:  updated.Level,
				Reason:    reason,
			})
		}

		result = &GrantResult{
			UserID:    discordID,
			GuildID:   guildID,
			Amount:    amount,
			Progress:  updated,
			LeveledUp: leveledUp,
			Reason:    reason,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to grant %d xp to user %d in guild %d: %w", amount, discordID, guildID, err)
	}

	s.metrics.RecordXPGrant(string(reason), amount)
	if result.LeveledUp {
		s.metrics.RecordLevelUp(string(reason))
		log.WithFields(log.Fields{
			"guildID": guildID,
			"userID":  discordID,
			"level":   result.Progress.Level,
			"reason":  reason,
		}).Info("User leveled up")
	}

	return result, nil
}

// withUnitOfWork runs fn in a guild-scoped transaction while holding the writer
// lock and commits when fn succeeds
func (s *levelingService) withUnitOfWork(ctx context.Context, guildID int64, fn func(uow UnitOfWork) error) error {
	return s.serializer.Mutate(ctx, func(ctx context.Context) error {
		uow := s.uowFactory.CreateForGuild(guildID)
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback() // No-op if already committed

		if err := fn(uow); err != nil {
			return err
		}
		return uow.Commit()
	})
}
