package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when a lease could not be taken in time.
var ErrLockTimeout = errors.New("lock: timed out waiting for lease")

// RedisConfig tunes the lease.
type RedisConfig struct {
	Prefix   string
	TTL      time.Duration // lease lifetime; must exceed the longest transaction
	Wait     time.Duration // how long Lock retries before giving up
	Interval time.Duration // retry pause
}

// Redis is a lease-based lock shared by every replica.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
}

func NewRedis(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "loand:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 25 * time.Millisecond
	}
	return &Redis{client: client, cfg: cfg}
}

// Lock polls SET NX until the lease is taken, cfg.Wait elapses or ctx ends.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.cfg.Prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.cfg.Wait)

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.cfg.Interval):
		}
	}

	return func() {
		// Release must run even if the caller's ctx is already cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err()
	}, nil
}
