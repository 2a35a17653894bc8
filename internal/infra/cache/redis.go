package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

const keyPrefix = "audit:tasks:"

// RedisStore keeps one JSON payload per auditor level with a TTL, so
// stale partitions age out on their own. Loads fail open: a missing or
// unparseable payload is an empty partition.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, level domain.Stage) (domain.CacheEntry, error) {
	raw, err := s.client.Get(ctx, levelKey(level)).Bytes()
	if err == redis.Nil {
		return domain.CacheEntry{}, nil
	}
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("loading task cache for level %d: %w", level, err)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.WithError(err).WithField("level", level).Warn("dropping corrupt task cache payload")
		return domain.CacheEntry{}, nil
	}
	return entry, nil
}

func (s *RedisStore) Save(ctx context.Context, level domain.Stage, entry domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling task cache for level %d: %w", level, err)
	}
	if err := s.client.Set(ctx, levelKey(level), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing task cache for level %d: %w", level, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, level domain.Stage) error {
	if err := s.client.Del(ctx, levelKey(level)).Err(); err != nil {
		return fmt.Errorf("clearing task cache for level %d: %w", level, err)
	}
	return nil
}

func levelKey(level domain.Stage) string {
	return fmt.Sprintf("%s%d", keyPrefix, level)
}
