package kv_test

import (
	"context"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/kv"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "license_key", []byte("ABC-123")))

	value, err := store.Get(ctx, "license_key")
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC-123"), value)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore()

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore()

	require.NoError(t, store.Set(ctx, "trial_record", []byte("{}")))
	require.NoError(t, store.Delete(ctx, "trial_record"))

	_, err := store.Get(ctx, "trial_record")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)

	t.Run("deleting an absent key is not an error", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "never_existed"))
	})
}

func TestMemoryStoreEmptyKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, kv.ErrEmptyKey)
	assert.ErrorIs(t, store.Set(ctx, "", nil), kv.ErrEmptyKey)
	assert.ErrorIs(t, store.Delete(ctx, ""), kv.ErrEmptyKey)
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore()

	original := []byte(`{"count":1}`)
	require.NoError(t, store.Set(ctx, "usage_map", original))

	// Mutating the caller's slice must not leak into the store.
	original[0] = 'X'

	value, err := store.Get(ctx, "usage_map")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"count":1}`), value)

	// Mutating a returned slice must not leak either.
	value[0] = 'Y'
	again, err := store.Get(ctx, "usage_map")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"count":1}`), again)
}

func TestMemoryStoreClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Close(ctx))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, kv.ErrStoreClosed)
	assert.ErrorIs(t, store.Set(ctx, "k", nil), kv.ErrStoreClosed)
	assert.ErrorIs(t, store.Delete(ctx, "k"), kv.ErrStoreClosed)
}

func TestRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:secret@localhost:6380/1")
	t.Setenv("REDIS_RETRY_ATTEMPTS", "5")

	var cfg kv.RedisConfig
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, "redis://:secret@localhost:6380/1", cfg.ConnectionURL)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, "5s", cfg.RetryInterval.String())
}

func TestMongoConfigFromEnv(t *testing.T) {
	t.Setenv("MONGODB_URL", "mongodb://localhost:27017")

	var cfg kv.MongoConfig
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, "mongodb://localhost:27017", cfg.ConnectionURL)
	assert.Equal(t, "gatekit", cfg.Database)
	assert.Equal(t, "kv", cfg.Collection)
}
