package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pugpool/internal/domain"
	"pugpool/pkg/database"
)

// matchRepository handles session and pool membership storage with PostgreSQL
type matchRepository struct {
	db *database.PostgresDB
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.PostgresDB) MatchRepository {
	return &matchRepository{
		db: db,
	}
}

// Create inserts a new open match. The partial unique index on open status
// makes a second concurrent open fail with a unique violation.
func (r *matchRepository) Create(ctx context.Context) (*domain.Match, error) {
	var match domain.Match
	query := `
		INSERT INTO matches (status)
		VALUES ('open')
		RETURNING id, status, announcement_ref, balanced_at, created_at, closed_at
	`

	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&match.ID,
		&match.Status,
		&match.AnnouncementRef,
		&match.BalancedAt,
		&match.CreatedAt,
		&match.ClosedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	return &match, nil
}

// GetOpen retrieves the single open match, nil when idle
func (r *matchRepository) GetOpen(ctx context.Context) (*domain.Match, error) {
	var match domain.Match
	query := `
		SELECT id, status, announcement_ref, balanced_at, created_at, closed_at
		FROM matches
		WHERE status = 'open'
	`

	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&match.ID,
		&match.Status,
		&match.AnnouncementRef,
		&match.BalancedAt,
		&match.CreatedAt,
		&match.ClosedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open match: %w", err)
	}

	return &match, nil
}

// Close marks an open match closed; memberships stay behind as history.
// Returns nil when the match was not open anymore.
func (r *matchRepository) Close(ctx context.Context, matchID int64) (*domain.Match, error) {
	var match domain.Match
	query := `
		UPDATE matches
		SET status = 'closed', closed_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING id, status, announcement_ref, balanced_at, created_at, closed_at
	`

	err := r.db.Pool.QueryRow(ctx, query, matchID).Scan(
		&match.ID,
		&match.Status,
		&match.AnnouncementRef,
		&match.BalancedAt,
		&match.CreatedAt,
		&match.ClosedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close match: %w", err)
	}

	return &match, nil
}

// AddMember inserts a pool membership and returns its join time
func (r *matchRepository) AddMember(ctx context.Context, matchID, playerID int64) (time.Time, error) {
	var joinedAt time.Time
	query := `
		INSERT INTO match_members (match_id, player_id)
		VALUES ($1, $2)
		RETURNING joined_at
	`

	err := r.db.Pool.QueryRow(ctx, query, matchID, playerID).Scan(&joinedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to add member: %w", err)
	}

	return joinedAt, nil
}

// RemoveMember deletes a membership; false when none existed
func (r *matchRepository) RemoveMember(ctx context.Context, matchID, playerID int64) (bool, error) {
	query := `
		DELETE FROM match_members
		WHERE match_id = $1 AND player_id = $2
	`

	tag, err := r.db.Pool.Exec(ctx, query, matchID, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}


// ListMembers returns the pool in join order with player fields
func (r *matchRepository) ListMembers(ctx context.Context, matchID int64) ([]domain.PoolMember, error) {
	query := `
		SELECT m.player_id, p.external_id, p.handle, p.display_name, m.joined_at
		FROM match_members m
		JOIN players p ON p.id = m.player_id
		WHERE m.match_id = $1
		ORDER BY m.joined_at ASC, m.player_id ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []domain.PoolMember
	for rows.Next() {
		var member domain.PoolMember
		err := rows.Scan(
			&member.PlayerID,
			&member.ExternalID,
			&member.Handle,
			&member.DisplayName,
			&member.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, nil
}

// CountMembers returns the current pool size
func (r *matchRepository) CountMembers(ctx context.Context, matchID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM match_members WHERE match_id = $1`

	err := r.db.Pool.QueryRow(ctx, query, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

// SetAnnouncementRef stores the gateway's pinned-message reference
func (r *matchRepository) SetAnnouncementRef(ctx context.Context, matchID int64, ref string) error {
	query := `
		UPDATE matches
		SET announcement_ref = $2
		WHERE id = $1
	`

	if _, err := r.db.Pool.Exec(ctx, query, matchID, ref); err != nil {
		return fmt.Errorf("failed to set announcement ref: %w", err)
	}

	return nil
}

// SaveAssignment records a balancing result and stamps the match with the
// balancing time
func (r *matchRepository) SaveAssignment(ctx context.Context, assignment *domain.TeamAssignment) error {
	teamA := make([]int64, 0, len(assignment.TeamA))
	for _, slot := range assignment.TeamA {
		teamA = append(teamA, slot.PlayerID)
	}
	teamB := make([]int64, 0, len(assignment.TeamB))
	for _, slot := range assignment.TeamB {
		teamB = append(teamB, slot.PlayerID)
	}

	query := `
		INSERT INTO team_assignments (match_id, team_a, team_b, sum_a, sum_b, diff)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		assignment.MatchID,
		teamA,
		teamB,
		assignment.SumA,
		assignment.SumB,
		assignment.Diff,
	).Scan(&assignment.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save assignment: %w", err)
	}

	stamp := `UPDATE matches SET balanced_at = $2 WHERE id = $1`
	if _, err := r.db.Pool.Exec(ctx, stamp, assignment.MatchID, assignment.CreatedAt); err != nil {
		return fmt.Errorf("failed to stamp balanced time: %w", err)
	}

	return nil
}
