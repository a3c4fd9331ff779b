package cache

import (
	"testing"
	"time"

	"github.com/ordercore/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestIdempotencyStoreFactory_MemoryBackend(t *testing.T) {
	factory := NewIdempotencyStoreFactory(
		config.IdempotencyConfig{Enabled: true, Backend: "memory", TTL: time.Hour},
		config.RedisConfig{},
		WithLogger(zaptest.NewLogger(t)),
	)

	store, err := factory.CreateStore()
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_RedisBackendFallsBack(t *testing.T) {
	// Port 1 is never a Redis server, connection fails fast.
	factory := NewIdempotencyStoreFactory(
		config.IdempotencyConfig{Enabled: true, Backend: "redis", TTL: time.Hour},
		config.RedisConfig{Host: "127.0.0.1", Port: 1},
		WithLogger(zaptest.NewLogger(t)),
	)

	store, err := factory.CreateStore()
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestIdempotencyStoreFactory_RedisBackendNoFallback(t *testing.T) {
	factory := NewIdempotencyStoreFactory(
		config.IdempotencyConfig{Enabled: true, Backend: "redis", TTL: time.Hour},
		config.RedisConfig{Host: "127.0.0.1", Port: 1},
		WithInMemoryFallback(false),
	)

	_, err := factory.CreateStore()
	assert.Error(t, err)
}
