package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		environment string
		expectError bool
	}{
		{
			name:        "Invalid URL",
			url:         "invalid://url",
			environment: "test",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			environment: "test",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, tt.environment, zap.NewNop())

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			}
		})
	}

	t.Run("Valid URL against running server", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
		assert.NoError(t, err)
		assert.NotNil(t, client)
		assert.NotNil(t, client.KeyBuilder)
	})
}

func TestClient_GetSet(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()

	tests := []struct {
		name          string
		key           string
		setValue      string
		expectedValue string
		expectError   bool
	}{
		{
			name:          "Get existing key",
			key:           "pool:key1",
			setValue:      "value1",
			expectedValue: "value1",
			expectError:   false,
		},
		{
			name:        "Get non-existing key",
			key:         "pool:nonexistent",
			setValue:    "",
			expectError: true, // redis.Nil for a missing key
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setValue != "" {
				require.NoError(t, client.Set(ctx, tt.key, tt.setValue, time.Minute))
			}

			value, err := client.Get(ctx, tt.key)

			if tt.expectError {
				assert.Error(t, err)
				assert.True(t, IsNil(err))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedValue, value)
			}
		})
	}
}

func TestClient_SetNX(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	key := client.KeyBuilder.KeyJoinLock(1, "tg-1001")

	// First caller wins the lock
	ok, err := client.SetNX(ctx, key, "1", TTLJoinLock)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Second caller loses while the lock is held
	ok, err = client.SetNX(ctx, key, "1", TTLJoinLock)
	assert.NoError(t, err)
	assert.False(t, ok)

	// After the TTL the lock is free again
	mr.FastForward(TTLJoinLock + time.Second)
	ok, err = client.SetNX(ctx, key, "1", TTLJoinLock)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()

	mr.Set("pool:key1", "value1")
	mr.Set("pool:key2", "value2")
	mr.Set("pool:key3", "value3")

	tests := []struct {
		name        string
		keys        []string
		expectError bool
	}{
		{
			name:        "Delete single key",
			keys:        []string{"pool:key1"},
			expectError: false,
		},
		{
			name:        "Delete multiple keys",
			keys:        []string{"pool:key2", "pool:key3"},
			expectError: false,
		},
		{
			name:        "Delete non-existent key",
			keys:        []string{"pool:nonexistent"},
			expectError: false, // Delete of non-existent key is not an error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Delete(ctx, tt.keys...)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)

				for _, key := range tt.keys {
					val, _ := mr.Get(key)
					assert.Empty(t, val)
				}
			}
		})
	}
}

func TestClient_InvalidatePattern(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:stats:summary:a", "x", 0))
	require.NoError(t, client.Set(ctx, "test:stats:summary:b", "y", 0))
	require.NoError(t, client.Set(ctx, "test:stats:leaderboard", "z", 0))
	require.NoError(t, client.Set(ctx, "test:pool:session:view", "keep", 0))

	err := client.InvalidatePattern(ctx, "test:stats:*")
	assert.NoError(t, err)

	for _, gone := range []string{"test:stats:summary:a", "test:stats:summary:b", "test:stats:leaderboard"} {
		_, err := client.Get(ctx, gone)
		assert.True(t, IsNil(err), "expected %s to be invalidated", gone)
	}

	kept, err := client.Get(ctx, "test:pool:session:view")
	assert.NoError(t, err)
	assert.Equal(t, "keep", kept)
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()

	// Test healthy Redis
	err := client.Health(ctx)
	assert.NoError(t, err)

	// Test unhealthy Redis (close the miniredis)
	mr.Close()
	err = client.Health(ctx)
	assert.Error(t, err)
}

func TestClient_Close(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	// Close should not error
	err := client.Close()
	assert.NoError(t, err)

	// After close, operations should fail
	ctx := context.Background()
	_, err = client.Get(ctx, "pool:key")
	assert.Error(t, err)
}

func TestClient_KeyBuilderIntegration(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()

	ctx := context.Background()

	assert.NotNil(t, client.KeyBuilder)

	key := client.KeyBuilder.KeySessionView()

	err := client.Set(ctx, key, `{"count":3}`, TTLSessionView)
	assert.NoError(t, err)

	value, err := client.Get(ctx, key)
	assert.NoError(t, err)
	assert.Equal(t, `{"count":3}`, value)

	val, _ := mr.Get(key)
	assert.Equal(t, `{"count":3}`, val)
}
