package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storyweave/adventure/pkg/state"
)

// saveKeyPrefix namespaces the save slot. The full key is the one fixed
// string the session is saved under.
const saveKeyPrefix = "adventure:save:"

// saveTTL bounds how long an untouched save survives.
const saveTTL = 30 * 24 * time.Hour

// RedisSaveStore implements SaveStore on Redis, one JSON blob per slot.
type RedisSaveStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ SaveStore = (*RedisSaveStore)(nil)

// NewRedisSaveStore creates a Redis-backed save store.
func NewRedisSaveStore(redisURL string, logger *slog.Logger) *RedisSaveStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisSaveStore{
		client: rdb,
		logger: logger,
	}
}

func (r *RedisSaveStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisSaveStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisSaveStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisSaveStore) SaveSnapshot(ctx context.Context, id uuid.UUID, snap *state.Snapshot) error {
	snap.SavedAt = time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error("Failed to marshal snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := saveKeyPrefix + id.String()
	if err := r.client.Set(ctx, key, string(data), saveTTL).Err(); err != nil {
		r.logger.Error("Failed to save snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (r *RedisSaveStore) LoadSnapshot(ctx context.Context, id uuid.UUID) (*state.Snapshot, error) {
	key := saveKeyPrefix + id.String()
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // no save exists
		}
		r.logger.Error("Failed to load snapshot", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		// A corrupt save is treated as absent and the slot is cleared.
		r.logger.Warn("Corrupt snapshot cleared", "uuid", id, "error", err)
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			r.logger.Error("Failed to clear corrupt snapshot", "uuid", id, "error", delErr)
		}
		return nil, nil
	}

	return &snap, nil
}

func (r *RedisSaveStore) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	key := saveKeyPrefix + id.String()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
