package domain

import (
	"time"
)

// DefaultSkill is the balancing weight used for players with no recorded
// history, and for the whole pool when the stats store is unreachable at
// balancing time.
const DefaultSkill = 75.0

// ADR bounds accepted by stat ingestion.
const (
	MinADR = 0.0
	MaxADR = 150.0
)

// StatLine is one recorded performance line for a player, normally one per
// played map.
type StatLine struct {
	ID         int64     `json:"id"`
	PlayerID   int64     `json:"player_id"`
	Kills      int       `json:"kills"`
	Deaths     int       `json:"deaths"`
	Assists    int       `json:"assists"`
	ADR        float64   `json:"adr"`
	MapName    string    `json:"map_name,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StatLineRequest is the body of a stat ingestion call.
type StatLineRequest struct {
	Kills   int     `json:"kills"`
	Deaths  int     `json:"deaths"`
	Assists int     `json:"assists"`
	ADR     float64 `json:"adr"`
	MapName string  `json:"map_name,omitempty"`
}

// StatAggregates are the per-player averages the summary and leaderboard
// are built from. Matches is the number of recorded lines.
type StatAggregates struct {
	PlayerID    int64   `json:"player_id"`
	ExternalID  string  `json:"external_id"`
	DisplayName string  `json:"display_name"`
	Matches     int     `json:"matches"`
	AvgKills    float64 `json:"avg_kills"`
	AvgDeaths   float64 `json:"avg_deaths"`
	AvgAssists  float64 `json:"avg_assists"`
	AvgADR      float64 `json:"avg_adr"`
}

// PlayerStatsSummary is the per-player stats view: aggregates, the derived
// rating and the most recent lines.
type PlayerStatsSummary struct {
	StatAggregates
	Rating float64    `json:"rating"`
	Recent []StatLine `json:"recent"`
}

// LeaderboardEntry is one row of the rating leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	PlayerID    int64   `json:"player_id"`
	DisplayName string  `json:"display_name"`
	Matches     int     `json:"matches"`
	AvgADR      float64 `json:"avg_adr"`
	Rating      float64 `json:"rating"`
}
