package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pugpool/internal/domain"
	"pugpool/pkg/database"
)

// cooldownRepository handles re-admission lockouts with PostgreSQL
type cooldownRepository struct {
	db *database.PostgresDB
}

// NewCooldownRepository creates a new cooldown repository
func NewCooldownRepository(db *database.PostgresDB) CooldownRepository {
	return &cooldownRepository{
		db: db,
	}
}

// Upsert installs or replaces the player's cooldown. The primary key on
// player_id keeps it to one row per player.
func (r *cooldownRepository) Upsert(ctx context.Context, playerID int64, expiresAt time.Time, reason string) error {
	query := `
		INSERT INTO cooldowns (player_id, expires_at, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id) DO UPDATE SET
			expires_at = EXCLUDED.expires_at,
			reason = EXCLUDED.reason,
			created_at = NOW()
	`

	if _, err := r.db.Pool.Exec(ctx, query, playerID, expiresAt, reason); err != nil {
		return fmt.Errorf("failed to upsert cooldown: %w", err)
	}

	return nil
}

// Active returns the player's unexpired cooldown. Expired rows are treated
// as absent here; deleting them is the sweeper's job, not a correctness
// requirement.
func (r *cooldownRepository) Active(ctx context.Context, playerID int64, now time.Time) (*domain.Cooldown, error) {
	var cooldown domain.Cooldown
	query := `
		SELECT player_id, expires_at, reason, created_at
		FROM cooldowns
		WHERE player_id = $1 AND expires_at > $2
	`

	err := r.db.Pool.QueryRow(ctx, query, playerID, now).Scan(
		&cooldown.PlayerID,
		&cooldown.ExpiresAt,
		&cooldown.Reason,
		&cooldown.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cooldown: %w", err)
	}

	return &cooldown, nil
}

// DeleteExpired removes expired rows and returns how many went away
func (r *cooldownRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM cooldowns WHERE expires_at <= $1`

	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cooldowns: %w", err)
	}

	return tag.RowsAffected(), nil
}
