package repository

import (
	"context"
	"errors"
	"fmt"

	"leveler/database"
	"leveler/models"

	"github.com/jackc/pgx/v5"
)

const progressColumns = `discord_id, guild_id, xp, level, created_at, updated_at`

// ProgressRepository implements the ProgressRepository interface
type ProgressRepository struct {
	q       Queryable
	guildID int64
}

// NewProgressRepository creates a progress repository on the pool, scoped to a guild
func NewProgressRepository(db *database.DB, guildID int64) *ProgressRepository {
	return &ProgressRepository{q: db.Pool, guildID: guildID}
}

// newProgressRepository creates a guild-scoped progress repository on a transaction
func newProgressRepository(tx Queryable, guildID int64) *ProgressRepository {
	return &ProgressRepository{q: tx, guildID: guildID}
}

func scanProgress(row pgx.Row) (*models.UserProgress, error) {
	var p models.UserProgress
	err := row.Scan(&p.DiscordID, &p.GuildID, &p.XP, &p.Level, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByDiscordID retrieves a user's progress in the current guild
func (r *ProgressRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.UserProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE discord_id = $1 AND guild_id = $2
	`

	p, err := scanProgress(r.q.QueryRow(ctx, query, discordID, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for user %d in guild %d: %w", discordID, r.guildID, err)
	}
	return p, nil
}

// GetOrCreate retrieves a user's progress, inserting {xp: 0, level: 1} first if missing
func (r *ProgressRepository) GetOrCreate(ctx context.Context, discordID int64) (*models.UserProgress, error) {
	p, err := r.GetByDiscordID(ctx, discordID)
	if err != nil || p != nil {
		return p, err
	}

	insertQuery := `
		INSERT INTO user_progress (discord_id, guild_id, xp, level)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (discord_id, guild_id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insertQuery, discordID, r.guildID, models.DefaultLevel); err != nil {
		return nil, fmt.Errorf("failed to create progress for user %d in guild %d: %w", discordID, r.guildID, err)
	}

	p, err = r.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("progress for user %d in guild %d missing after insert", discordID, r.guildID)
	}
	return p, nil
}

// Save upserts the progress record and refreshes its timestamps
func (r *ProgressRepository) Save(ctx context.Context, progress *models.UserProgress) error {
	query := `
		INSERT INTO user_progress (discord_id, guild_id, xp, level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (discord_id, guild_id)
		DO UPDATE SET xp = EXCLUDED.xp, level = EXCLUDED.level, updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, progress.DiscordID, r.guildID, progress.XP, progress.Level).
		Scan(&progress.CreatedAt, &progress.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save progress for user %d in guild %d: %w", progress.DiscordID, r.guildID, err)
	}

	progress.GuildID = r.guildID
	return nil
}

// Delete removes the user's progress in the current guild
func (r *ProgressRepository) Delete(ctx context.Context, discordID int64) (bool, error) {
	query := `DELETE FROM user_progress WHERE discord_id = $1 AND guild_id = $2`

	result, err := r.q.Exec(ctx, query, discordID, r.guildID)
	if err != nil {
		return false, fmt.Errorf("failed to delete progress for user %d in guild %d: %w", discordID, r.guildID, err)
	}

	return result.RowsAffected() > 0, nil
}

// GetLeaderboard returns ranked rows for the current guild
func (r *ProgressRepository) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT discord_id, xp, level
		FROM user_progress
		WHERE guild_id = $1
		ORDER BY level DESC, xp DESC, discord_id ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, r.guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard for guild %d: %w", r.guildID, err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		entry := models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&entry.DiscordID, &entry.XP, &entry.Level); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	return entries, nil
}

// GetTopUser returns the first leaderboard row or nil when the guild has no progress
func (r *ProgressRepository) GetTopUser(ctx context.Context) (*models.UserProgress, error) {
	query := `
		SELECT ` + progressColumns + `
		FROM user_progress
		WHERE guild_id = $1
		ORDER BY level DESC, xp DESC, discord_id ASC
		LIMIT 1
	`

	p, err := scanProgress(r.q.QueryRow(ctx, query, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get top user for guild %d: %w", r.guildID, err)
	}
	return p, nil
}
