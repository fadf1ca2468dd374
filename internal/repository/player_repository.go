package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pugpool/internal/domain"
	"pugpool/pkg/database"
)

// playerRepository handles player identity storage with PostgreSQL
type playerRepository struct {
	db *database.PostgresDB
}

// NewPlayerRepository creates a new player repository
func NewPlayerRepository(db *database.PostgresDB) PlayerRepository {
	return &playerRepository{
		db: db,
	}
}

// GetOrCreate upserts a player by external id. Handle and display name are
// refreshed on every call so the pool always renders current names.
func (r *playerRepository) GetOrCreate(ctx context.Context, ref domain.PlayerRef) (*domain.Player, error) {
	var player domain.Player
	query := `
		INSERT INTO players (external_id, handle, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE SET
			handle = EXCLUDED.handle,
			display_name = EXCLUDED.display_name,
			updated_at = NOW()
		RETURNING id, external_id, handle, display_name, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		ref.ExternalID,
		ref.Handle,
		ref.DisplayName,
	).Scan(
		&player.ID,
		&player.ExternalID,
		&player.Handle,
		&player.DisplayName,
		&player.CreatedAt,
		&player.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}

	return &player, nil
}

// GetByExternalID retrieves a player by the id the gateway uses
func (r *playerRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Player, error) {
	var player domain.Player
	query := `
		SELECT id, external_id, handle, display_name, created_at, updated_at
		FROM players
		WHERE external_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, externalID).Scan(
		&player.ID,
		&player.ExternalID,
		&player.Handle,
		&player.DisplayName,
		&player.CreatedAt,
		&player.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &player, nil
}

// List returns every registered player ordered by display name
func (r *playerRepository) List(ctx context.Context) ([]domain.Player, error) {
	query := `
		SELECT id, external_id, handle, display_name, created_at, updated_at
		FROM players
		ORDER BY display_name ASC, id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var player domain.Player
		err := rows.Scan(
			&player.ID,
			&player.ExternalID,
			&player.Handle,
			&player.DisplayName,
			&player.CreatedAt,
			&player.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}

	return players, nil
}
