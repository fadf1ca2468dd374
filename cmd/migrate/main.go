package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  up    - create all tables and indexes")
		fmt.Println("  drop  - drop all tables")
		fmt.Println("  seed  - insert sample players and stat lines")
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	command := os.Args[1]
	switch command {
	case "up":
		err = migrateUp(ctx, conn)
	case "drop":
		err = migrateDrop(ctx, conn)
	case "seed":
		err = seedData(ctx, conn)
	default:
		log.Fatalf("Unknown command: %s", command)
	}

	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	fmt.Printf("✅ Migration '%s' completed successfully\n", command)
}

func migrateUp(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			external_id VARCHAR(64) UNIQUE NOT NULL,
			handle VARCHAR(64) NOT NULL DEFAULT '',
			display_name VARCHAR(128) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			status VARCHAR(16) NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
			announcement_ref VARCHAR(128) NOT NULL DEFAULT '',
			balanced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMPTZ
		)`,

		// At most one open match at a time, enforced at the database level.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_single_open
			ON matches (status) WHERE status = 'open'`,

		`CREATE TABLE IF NOT EXISTS match_members (
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (match_id, player_id)
		)`,

		`CREATE TABLE IF NOT EXISTS cooldowns (
			player_id BIGINT PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			reason VARCHAR(32) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_cooldowns_expires_at ON cooldowns (expires_at)`,

		`CREATE TABLE IF NOT EXISTS player_stats (
			id BIGSERIAL PRIMARY KEY,
			player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			kills INTEGER NOT NULL DEFAULT 0 CHECK (kills >= 0),
			deaths INTEGER NOT NULL DEFAULT 0 CHECK (deaths >= 0),
			assists INTEGER NOT NULL DEFAULT 0 CHECK (assists >= 0),
			adr DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (adr >= 0 AND adr <= 150),
			map_name VARCHAR(64) NOT NULL DEFAULT '',
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_player_stats_player_recorded
			ON player_stats (player_id, recorded_at DESC)`,

		`CREATE TABLE IF NOT EXISTS team_assignments (
			id BIGSERIAL PRIMARY KEY,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			team_a BIGINT[] NOT NULL,
			team_b BIGINT[] NOT NULL,
			sum_a DOUBLE PRECISION NOT NULL,
			sum_b DOUBLE PRECISION NOT NULL,
			diff DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_team_assignments_match ON team_assignments (match_id)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("✅ Executed: %s\n", getTableName(query))
	}

	return nil
}

func migrateDrop(ctx context.Context, conn *pgx.Conn) error {
	queries := []string{
		`DROP TABLE IF EXISTS team_assignments CASCADE`,
		`DROP TABLE IF EXISTS player_stats CASCADE`,
		`DROP TABLE IF EXISTS cooldowns CASCADE`,
		`DROP TABLE IF EXISTS match_members CASCADE`,
		`DROP TABLE IF EXISTS matches CASCADE`,
		`DROP TABLE IF EXISTS players CASCADE`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
		fmt.Printf("✅ Executed: %s\n", query)
	}

	return nil
}

func seedData(ctx context.Context, conn *pgx.Conn) error {
	players := []struct {
		externalID  string
		handle      string
		displayName string
	}{
		{"tg:1001", "ace_main", "Ace"},
		{"tg:1002", "rifler_b", "Breeze"},
		{"tg:1003", "clutch_c", "Clutch"},
		{"tg:1004", "dash_pug", "Dash"},
		{"tg:1005", "entry_e", "Echo"},
	}

	for _, p := range players {
		query := `
			INSERT INTO players (external_id, handle, display_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (external_id) DO UPDATE SET
				handle = EXCLUDED.handle,
				display_name = EXCLUDED.display_name,
				updated_at = NOW()
		`
		if _, err := conn.Exec(ctx, query, p.externalID, p.handle, p.displayName); err != nil {
			return fmt.Errorf("failed to seed player %s: %w", p.externalID, err)
		}
		fmt.Printf("✅ Seeded player: %s\n", p.displayName)
	}

	lines := []struct {
		externalID string
		kills      int
		deaths     int
		assists    int
		adr        float64
		mapName    string
	}{
		{"tg:1001", 24, 12, 4, 96.5, "de_mirage"},
		{"tg:1001", 18, 16, 7, 81.0, "de_inferno"},
		{"tg:1002", 15, 14, 9, 74.2, "de_mirage"},
		{"tg:1003", 21, 18, 3, 88.7, "de_nuke"},
		{"tg:1004", 9, 17, 11, 58.3, "de_inferno"},
		{"tg:1005", 30, 10, 2, 112.4, "de_dust2"},
	}

	for _, l := range lines {
		query := `
			INSERT INTO player_stats (player_id, kills, deaths, assists, adr, map_name)
			SELECT id, $2, $3, $4, $5, $6 FROM players WHERE external_id = $1
		`
		if _, err := conn.Exec(ctx, query, l.externalID, l.kills, l.deaths, l.assists, l.adr, l.mapName); err != nil {
			return fmt.Errorf("failed to seed stat line for %s: %w", l.externalID, err)
		}
	}
	fmt.Printf("✅ Seeded %d stat lines\n", len(lines))

	return nil
}

func getTableName(query string) string {
	if len(query) > 60 {
		return query[:60] + "..."
	}
	return query
}
