package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pugpool/internal/domain"
	"pugpool/pkg/database"
)

// statsRepository handles performance history with PostgreSQL. It doubles
// as the skill provider for balancing.
type statsRepository struct {
	db *database.PostgresDB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.PostgresDB) StatsRepository {
	return &statsRepository{
		db: db,
	}
}

// InsertLine records one stat line
func (r *statsRepository) InsertLine(ctx context.Context, line *domain.StatLine) error {
	query := `
		INSERT INTO player_stats (player_id, kills, deaths, assists, adr, map_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, recorded_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		line.PlayerID,
		line.Kills,
		line.Deaths,
		line.Assists,
		line.ADR,
		line.MapName,
	).Scan(&line.ID, &line.RecordedAt)

	if err != nil {
		return fmt.Errorf("failed to insert stat line: %w", err)
	}

	return nil
}

// Aggregates returns a player's averages, nil when no lines exist
func (r *statsRepository) Aggregates(ctx context.Context, playerID int64) (*domain.StatAggregates, error) {
	var agg domain.StatAggregates
	query := `
		SELECT p.id, p.external_id, p.display_name,
		       COUNT(s.id), AVG(s.kills), AVG(s.deaths), AVG(s.assists), AVG(s.adr)
		FROM player_stats s
		JOIN players p ON p.id = s.player_id
		WHERE s.player_id = $1
		GROUP BY p.id, p.external_id, p.display_name
	`

	err := r.db.Pool.QueryRow(ctx, query, playerID).Scan(
		&agg.PlayerID,
		&agg.ExternalID,
		&agg.DisplayName,
		&agg.Matches,
		&agg.AvgKills,
		&agg.AvgDeaths,
		&agg.AvgAssists,
		&agg.AvgADR,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stat aggregates: %w", err)
	}

	return &agg, nil
}

// RecentLines returns the newest lines, most recent first
func (r *statsRepository) RecentLines(ctx context.Context, playerID int64, limit int) ([]domain.StatLine, error) {
	query := `
		SELECT id, player_id, kills, deaths, assists, adr, map_name, recorded_at
		FROM player_stats
		WHERE player_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.StatLine
	for rows.Next() {
		var line domain.StatLine
		err := rows.Scan(
			&line.ID,
			&line.PlayerID,
			&line.Kills,
			&line.Deaths,
			&line.Assists,
			&line.ADR,
			&line.MapName,
			&line.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stat line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// LeaderboardAggregates returns averages for every player with at least one
// recorded line. Rating math lives in the service layer.
func (r *statsRepository) LeaderboardAggregates(ctx context.Context) ([]domain.StatAggregates, error) {
	query := `
		SELECT p.id, p.external_id, p.display_name,
		       COUNT(s.id), AVG(s.kills), AVG(s.deaths), AVG(s.assists), AVG(s.adr)
		FROM player_stats s
		JOIN players p ON p.id = s.player_id
		GROUP BY p.id, p.external_id, p.display_name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []domain.StatAggregates
	for rows.Next() {
		var agg domain.StatAggregates
		err := rows.Scan(
			&agg.PlayerID,
			&agg.ExternalID,
			&agg.DisplayName,
			&agg.Matches,
			&agg.AvgKills,
			&agg.AvgDeaths,
			&agg.AvgAssists,
			&agg.AvgADR,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aggregates: %w", err)
		}
		aggs = append(aggs, agg)
	}

	return aggs, nil
}

// AverageSkill returns the player's average ADR for balancing; false when
// the player has no recorded history.
func (r *statsRepository) AverageSkill(ctx context.Context, playerID int64) (float64, bool, error) {
	var avg *float64
	query := `SELECT AVG(adr) FROM player_stats WHERE player_id = $1`

	err := r.db.Pool.QueryRow(ctx, query, playerID).Scan(&avg)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get average skill: %w", err)
	}
	if avg == nil {
		return 0, false, nil
	}

	return *avg, true, nil
}
