package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *CheckpointStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewCheckpointStore(client)
}

func TestCheckpointStore_MissingKey(t *testing.T) {
	_, store := setupTestRedis(t)

	_, ok, err := store.Load(context.Background(), "inbox")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 30, 0, 123, time.UTC)

	require.NoError(t, store.Save(ctx, "inbox", at))

	got, ok, err := store.Load(ctx, "inbox")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
	assert.True(t, mr.Exists("bloodlink:checkpoint:inbox"))
}

func TestCheckpointStore_CorruptValue(t *testing.T) {
	mr, store := setupTestRedis(t)
	require.NoError(t, mr.Set("bloodlink:checkpoint:inbox", "yesterday"))

	_, _, err := store.Load(context.Background(), "inbox")

	assert.Error(t, err)
}
