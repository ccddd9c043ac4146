package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Remote = (*Redis)(nil)

// RedisOptions configures a [Redis] tier.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key, so several deployments can share a
	// database.
	Prefix string

	// Logger receives debug entries for swallowed errors. Optional.
	Logger *zap.Logger
}

// Redis is a shared cache tier. All operations fail soft: if Redis is
// unavailable, reads return a miss and writes are discarded, so a broken
// Redis never fails a lookup.
type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedis creates a Redis tier. It does not dial until first use.
func NewRedis(opts RedisOptions) *Redis {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Redis{rdb: rdb, prefix: opts.Prefix, log: log.Named("redis")}
}

// Get returns the stored bytes and the remaining TTL of key. Misses, connection
// errors and timeouts all report ok=false.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	pipe := r.rdb.Pipeline()
	get := pipe.Get(ctx, r.prefix+key)
	pttl := pipe.PTTL(ctx, r.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Debug("get failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
		return nil, 0, false
	}

	val, err := get.Bytes()
	if err != nil {
		return nil, 0, false
	}
	remaining := pttl.Val()
	if remaining < 0 {
		// -1: no expiration.
		remaining = 0
	}
	return val, remaining, true
}

// Set stores val under key with the given TTL. Errors are logged and dropped.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, r.prefix+key, val, ttl).Err(); err != nil {
		r.log.Debug("set failed, dropping write", zap.String("key", key), zap.Error(err))
	}
}

// Del removes keys. Errors are logged and dropped.
func (r *Redis) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	if err := r.rdb.Del(ctx, full...).Err(); err != nil {
		r.log.Debug("del failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
