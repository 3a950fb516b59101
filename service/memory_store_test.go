package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"leveler/events"
	"leveler/models"
)

type progressKey struct {
	guildID   int64
	discordID int64
}

// memoryStore is an in-memory UnitOfWorkFactory. Writes are buffered per unit
// of work and applied on Commit, so a read-modify-write that is not serialized
// can lose updates just like it would against the database.
type memoryStore struct {
	mu       sync.Mutex
	progress map[progressKey]models.UserProgress
	settings map[int64]models.GuildSettings
	bus      *events.Bus

	failSave  error
	failBegin error
}

func newMemoryStore(bus *events.Bus) *memoryStore {
	return &memoryStore{
		progress: make(map[progressKey]models.UserProgress),
		settings: make(map[int64]models.GuildSettings),
		bus:      bus,
	}
}

func (s *memoryStore) CreateForGuild(guildID int64) UnitOfWork {
	return &memoryUnitOfWork{
		store:            s,
		guildID:          guildID,
		writes:           make(map[int64]*models.UserProgress),
		settingsWrites:   make(map[int64]models.GuildSettings),
		transactionalBus: events.NewTransactionalBus(s.bus),
	}
}

func (s *memoryStore) put(p models.UserProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[progressKey{p.GuildID, p.DiscordID}] = p
}

func (s *memoryStore) get(guildID, discordID int64) (models.UserProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[progressKey{guildID, discordID}]
	return p, ok
}

func (s *memoryStore) putSettings(settings models.GuildSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.GuildID] = settings
}

func (s *memoryStore) setFailSave(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = err
}

type memoryUnitOfWork struct {
	store            *memoryStore
	guildID          int64
	started          bool
	writes           map[int64]*models.UserProgress // nil marks a delete
	settingsWrites   map[int64]models.GuildSettings
	transactionalBus *events.TransactionalBus
}

func (u *memoryUnitOfWork) Begin(ctx context.Context) error {
	u.store.mu.Lock()
	err := u.store.failBegin
	u.store.mu.Unlock()
	if err != nil {
		return err
	}
	if u.started {
		return errors.New("transaction already started")
	}
	u.started = true
	return nil
}

func (u *memoryUnitOfWork) Commit() error {
	if !u.started {
		return errors.New("no transaction to commit")
	}

	u.store.mu.Lock()
	for id, p := range u.writes {
		key := progressKey{u.guildID, id}
		if p == nil {
			delete(u.store.progress, key)
		} else {
			u.store.progress[key] = *p
		}
	}
	for id, settings := range u.settingsWrites {
		u.store.settings[id] = settings
	}
	u.store.mu.Unlock()

	u.started = false
	u.transactionalBus.Flush(context.Background())
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	u.started = false
	u.writes = make(map[int64]*models.UserProgress)
	u.settingsWrites = make(map[int64]models.GuildSettings)
	u.transactionalBus.Discard()
	return nil
}

func (u *memoryUnitOfWork) ProgressRepository() ProgressRepository {
	return &memoryProgressRepository{uow: u}
}

func (u *memoryUnitOfWork) GuildSettingsRepository() GuildSettingsRepository {
	return &memoryGuildSettingsRepository{uow: u}
}

func (u *memoryUnitOfWork) EventBus() EventPublisher {
	return u.transactionalBus
}

type memoryProgressRepository struct {
	uow *memoryUnitOfWork
}

func (r *memoryProgressRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.UserProgress, error) {
	if p, ok := r.uow.writes[discordID]; ok {
		if p == nil {
			return nil, nil
		}
		cp := *p
		return &cp, nil
	}
	p, ok := r.uow.store.get(r.uow.guildID, discordID)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memoryProgressRepository) GetOrCreate(ctx context.Context, discordID int64) (*models.UserProgress, error) {
	p, err := r.GetByDiscordID(ctx, discordID)
	if err != nil || p != nil {
		return p, err
	}
	created := models.NewUserProgress(discordID, r.uow.guildID)
	r.uow.writes[discordID] = &created
	cp := created
	return &cp, nil
}

func (r *memoryProgressRepository) Save(ctx context.Context, progress *models.UserProgress) error {
	r.uow.store.mu.Lock()
	err := r.uow.store.failSave
	r.uow.store.mu.Unlock()
	if err != nil {
		return err
	}
	if progress.XP < 0 || progress.Level < 1 {
		return fmt.Errorf("invalid progress %+v", *progress)
	}
	cp := *progress
	cp.GuildID = r.uow.guildID
	r.uow.writes[progress.DiscordID] = &cp
	return nil
}

func (r *memoryProgressRepository) Delete(ctx context.Context, discordID int64) (bool, error) {
	p, err := r.GetByDiscordID(ctx, discordID)
	if err != nil {
		return false, err
	}
	r.uow.writes[discordID] = nil
	return p != nil, nil
}

func (r *memoryProgressRepository) ranked() []models.UserProgress {
	merged := make(map[int64]models.UserProgress)

	r.uow.store.mu.Lock()
	for key, p := range r.uow.store.progress {
		if key.guildID == r.uow.guildID {
			merged[key.discordID] = p
		}
	}
	r.uow.store.mu.Unlock()

	for id, p := range r.uow.writes {
		if p == nil {
			delete(merged, id)
		} else {
			merged[id] = *p
		}
	}

	rows := make([]models.UserProgress, 0, len(merged))
	for _, p := range merged {
		rows = append(rows, p)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Level != rows[j].Level {
			return rows[i].Level > rows[j].Level
		}
		if rows[i].XP != rows[j].XP {
			return rows[i].XP > rows[j].XP
		}
		return rows[i].DiscordID < rows[j].DiscordID
	})
	return rows
}

func (r *memoryProgressRepository) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	for i, p := range r.ranked() {
		if i >= limit {
			break
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:      i + 1,
			DiscordID: p.DiscordID,
			XP:        p.XP,
			Level:     p.Level,
		})
	}
	return entries, nil
}

func (r *memoryProgressRepository) GetTopUser(ctx context.Context) (*models.UserProgress, error) {
	rows := r.ranked()
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

type memoryGuildSettingsRepository struct {
	uow *memoryUnitOfWork
}

func (r *memoryGuildSettingsRepository) GetGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	if settings, ok := r.uow.settingsWrites[guildID]; ok {
		return &settings, nil
	}
	r.uow.store.mu.Lock()
	defer r.uow.store.mu.Unlock()
	settings, ok := r.uow.store.settings[guildID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (r *memoryGuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*models.GuildSettings, error) {
	settings, err := r.GetGuildSettings(ctx, guildID)
	if err != nil || settings != nil {
		return settings, err
	}
	r.uow.settingsWrites[guildID] = models.GuildSettings{GuildID: guildID}
	return &models.GuildSettings{GuildID: guildID}, nil
}

func (r *memoryGuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *models.GuildSettings) error {
	r.uow.settingsWrites[settings.GuildID] = *settings
	return nil
}

// countingMetrics records how often each metric was hit
type countingMetrics struct {
	mu            sync.Mutex
	activities    int
	grants        int
	levelUps      int
	leaderChanges int
	roleFailures  []string
	checksDropped int
}

func (m *countingMetrics) RecordActivity(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities++
}

func (m *countingMetrics) RecordXPGrant(string, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants++
}

func (m *countingMetrics) RecordLevelUp(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levelUps++
}

func (m *countingMetrics) RecordLeaderChange() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaderChanges++
}

func (m *countingMetrics) RecordRoleFailure(operation, errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleFailures = append(m.roleFailures, operation+":"+errorType)
}

func (m *countingMetrics) RecordCheckDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checksDropped++
}

func (m *countingMetrics) dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checksDropped
}
