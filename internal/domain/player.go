package domain

import (
	"time"
)

// Player is a pool participant. A player is created on first contact with
// the service and refreshed (handle, display name) on every interaction
// after that; players are never deleted.
type Player struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"external_id"`
	Handle      string    `json:"handle,omitempty"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlayerRef identifies a player the way the gateway knows them, before the
// service has resolved (or created) the internal record.
type PlayerRef struct {
	ExternalID  string `json:"external_id"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// RegisterPlayerRequest is the body of an explicit registration call. The
// same upsert runs implicitly on every join.
type RegisterPlayerRequest struct {
	ExternalID  string `json:"external_id"`
	Handle      string `json:"handle,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}
