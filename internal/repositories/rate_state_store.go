package repositories

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisRateStateStore keeps fail counters and suspensions in Redis. Both
// live under per-key TTLs so nothing needs sweeping.
//
//	{prefix}:fail:{channel}:{email}     INCR counter
//	{prefix}:suspend:{channel}:{email}  suspended-until, unix millis
type RedisRateStateStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRateStateStore(client *redis.Client, realm models.Realm) *RedisRateStateStore {
	return &RedisRateStateStore{client: client, prefix: string(realm), now: time.Now}
}

func (s *RedisRateStateStore) failKey(key string) string {
	return s.prefix + ":fail:" + key
}

func (s *RedisRateStateStore) suspendKey(key string) string {
	return s.prefix + ":suspend:" + key
}

// SuspendedUntil returns nil when the key is not suspended
func (s *RedisRateStateStore) SuspendedUntil(ctx context.Context, key string) (*time.Time, error) {
	raw, err := s.client.Get(ctx, s.suspendKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, nil
	}
	until := time.UnixMilli(ms).UTC()
	return &until, nil
}

// Suspend locks the key until the given time and drops its fail counter
func (s *RedisRateStateStore) Suspend(ctx context.Context, key string, until time.Time) error {
	ttl := until.Sub(s.now())
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if ttl > 0 {
			p.Set(ctx, s.suspendKey(key), until.UnixMilli(), ttl)
		}
		p.Del(ctx, s.failKey(key))
		return nil
	})
	return err
}

// IncrementFailures atomically bumps the counter. The TTL is set on the first
// failure only, so the window runs from the first miss.
func (s *RedisRateStateStore) IncrementFailures(ctx context.Context, key string, ttl time.Duration) (int, error) {
	k := s.failKey(key)
	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, k, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return int(count), nil
}

func (s *RedisRateStateStore) ClearFailures(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.failKey(key)).Err()
}

// State reads both halves of the key's rate state
func (s *RedisRateStateStore) State(ctx context.Context, key string) (*models.RateState, error) {
	until, err := s.SuspendedUntil(ctx, key)
	if err != nil {
		return nil, err
	}

	state := &models.RateState{SuspendedUntil: until}
	raw, err := s.client.Get(ctx, s.failKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, err
	default:
		state.Failures, _ = strconv.Atoi(raw)
	}
	return state, nil
}
