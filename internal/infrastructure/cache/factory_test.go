package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrocredit/backend/internal/infrastructure/config"
)

func TestIdempotencyStoreFactory_RedisDisabled(t *testing.T) {
	f := NewIdempotencyStoreFactory(config.RedisConfig{Enabled: false})

	store, err := f.CreateStore(context.Background())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("falls back to memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(cfg).CreateStore(context.Background())
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore(context.Background())
		assert.ErrorContains(t, err, "redis required")
	})
}
