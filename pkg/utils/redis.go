package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trio-driver/pkg/logger"
)

// RedisConfig controls redis client behavior.
// Keep it config-driven; defaults should be safe and conservative.
type RedisConfig struct {
	Addr string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	// one lock holder per phone; a small pool is plenty
	if out.PoolSize <= 0 {
		out.PoolSize = 4
	}
	if out.MinIdleConns < 0 {
		out.MinIdleConns = 0
	}
	if out.PoolTimeout <= 0 {
		out.PoolTimeout = 4 * time.Second
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// OpenRedis initializes a Redis client and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

var lockReleaseScript = redis.NewScript(`
-- KEYS[1] = lock key
-- ARGV[1] = owner token
--
-- Deletes the key only if this owner still holds it.
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

const (
	deviceLockPrefix = "trio:device-lock:"
	lockRetry        = 25 * time.Millisecond
	releaseTimeout   = 2 * time.Second
)

// DeviceLock is a cross-process mutex for one phone, so several driver
// replicas never talk to the same device at once.
//
// Safety properties:
// - Acquire is a single SET NX PX.
// - Release is a compare-and-delete in Lua, so an expired holder cannot free
//   someone else's lock.
// - The TTL frees locks leaked by a crashed process.
type DeviceLock struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

func NewDeviceLock(rdb redis.UniversalClient, deviceHost string, ttl time.Duration) (*DeviceLock, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if deviceHost == "" {
		return nil, fmt.Errorf("device host is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be > 0")
	}
	return &DeviceLock{rdb: rdb, key: DeviceLockKey(deviceHost), ttl: ttl}, nil
}

func DeviceLockKey(deviceHost string) string { return deviceLockPrefix + deviceHost }

// Lock blocks until the lock is held or ctx is done.
func (l *DeviceLock) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	t := time.NewTicker(lockRetry)
	defer t.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("device lock %s: %w", l.key, err)
		}
		if ok {
			return l.unlocker(ctx, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// unlocker releases token, logging failures with the logger carried by ctx.
// The lock then lingers until its TTL expires.
func (l *DeviceLock) unlocker(ctx context.Context, token string) func() {
	log := logger.From(ctx)
	return func() {
		if err := l.release(token); err != nil {
			log.Warn("device lock release failed", "key", l.key, "err", err)
		}
	}
}

func (l *DeviceLock) release(token string) error {
	// the request context may already be canceled; release anyway
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := lockReleaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
