package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/sairanjith101/acme-importer/models"
)

// RedisStore implements Store on a Redis client. Snapshots are plain JSON
// strings; delivery logs are Redis lists maintained with LPUSH + LTRIM.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) SetProgress(ctx context.Context, key string, p models.JobProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

func (s *RedisStore) GetProgress(ctx context.Context, key string) (*models.JobProgress, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	var p models.JobProgress
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("failed to parse progress: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) PushLog(ctx context.Context, key string, entry models.DeliveryLogEntry, max int64) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentLog(ctx context.Context, key string, limit int64) ([]models.DeliveryLogEntry, error) {
	vals, err := s.rdb.LRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log entries: %w", err)
	}
	entries := make([]models.DeliveryLogEntry, 0, len(vals))
	for _, v := range vals {
		var e models.DeliveryLogEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			// Skip entries written by older builds rather than failing the read.
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
