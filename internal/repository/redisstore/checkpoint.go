package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/bloodlink-api/internal/repository"
)

const keyPrefix = "bloodlink:checkpoint:"

// CheckpointStore persists poll checkpoints as RFC3339Nano strings so a
// restarted worker resumes where the previous one stopped.
type CheckpointStore struct {
	client *redis.Client
}

func NewCheckpointStore(client *redis.Client) *CheckpointStore {
	return &CheckpointStore{client: client}
}

func (s *CheckpointStore) Load(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt checkpoint %q: %w", raw, err)
	}
	return t, true, nil
}

func (s *CheckpointStore) Save(ctx context.Context, key string, at time.Time) error {
	if err := s.client.Set(ctx, keyPrefix+key, at.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

var _ repository.CheckpointStore = (*CheckpointStore)(nil)
