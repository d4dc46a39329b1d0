package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

const (
	stateKeyPrefix = "convstate:"
	defaultTTL     = 24 * time.Hour
)

// RedisStore keeps flow contexts in Redis so multiple engine instances can
// share conversation state. Keys expire after the TTL; an expired entry
// reads as idle, which simply abandons a stale flow.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (domain.FlowContext, error) {
	val, err := s.client.Get(ctx, stateKeyPrefix+conversationID).Result()
	if err == redis.Nil {
		return domain.FlowContext{State: domain.StateIdle}, nil
	}
	if err != nil {
		return domain.FlowContext{}, err
	}

	var fc domain.FlowContext
	if err := json.Unmarshal([]byte(val), &fc); err != nil {
		return domain.FlowContext{}, err
	}
	return fc, nil
}

func (s *RedisStore) Set(ctx context.Context, conversationID string, fc domain.FlowContext) error {
	key := stateKeyPrefix + conversationID
	if fc.Idle() && fc.RecordID == "" {
		return s.client.Del(ctx, key).Err()
	}

	val, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, val, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, stateKeyPrefix+conversationID).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
