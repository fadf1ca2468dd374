package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Pool key builders
func (kb *KeyBuilder) KeySessionView() string {
	return kb.BuildKey(KeySessionView)
}

func (kb *KeyBuilder) KeyJoinLock(matchID int64, externalID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyJoinLock, matchID, externalID))
}

// Stats key builders
func (kb *KeyBuilder) KeyPlayerSummary(externalID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPlayerSummary, externalID))
}

func (kb *KeyBuilder) KeyLeaderboard() string {
	return kb.BuildKey(KeyLeaderboard)
}

// PatternStats matches every cached stats view, for invalidation after a
// new stat line lands.
func (kb *KeyBuilder) PatternStats() string {
	return kb.BuildKey("stats:*")
}
