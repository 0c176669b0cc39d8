package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockHeld is returned when another holder owns the requested lock.
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the lock only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// invalidatedMarker stands in for a dropped value. GetJSON reports it as a
// miss and SetJSONNX cannot overwrite it until it expires.
const invalidatedMarker = "\x00invalidated"

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// SetJSONNX stores value only if key is absent.
func (r *RedisRepository) SetJSONNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return r.client.SetNX(ctx, key, data, expiration).Result()
}

// Invalidate replaces key with a marker held for hold, so a fill that read
// the old value before the write cannot put it back.
func (r *RedisRepository) Invalidate(ctx context.Context, key string, hold time.Duration) error {
	return r.client.Set(ctx, key, invalidatedMarker, hold).Err()
}

// GetJSON decodes the value at key into dest. found is false on a cache miss.
func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) (found bool, err error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if string(data) == invalidatedMarker {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Lock takes a short-lived exclusive lock on key. The returned release func
// only deletes the key if the lock was not lost to expiry in the meantime.
func (r *RedisRepository) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		ttl = r.config.LockTTL
	}
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{lockKey(key)}, token).Err()
	}, nil
}

func lockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

func orderKey(id int64) string {
	return fmt.Sprintf("order:%d", id)
}
