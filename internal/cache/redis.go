package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"fleetdocs/internal/config"
)

// Redis is a thin, logged wrapper over go-redis used as the read-query cache.
type Redis struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedis(cfg config.RedisConfig, log zerolog.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &Redis{rdb: rdb, log: log.With().Str("component", "redis").Logger()}
}

func (c *Redis) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.log.Error().Err(err).Msg("PING failed")
	}
	return err
}

func (c *Redis) Close() {
	if err := c.rdb.Close(); err != nil {
		c.log.Error().Err(err).Msg("error while closing")
	}
}

// Get returns nil, nil when the key does not exist.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug().Str("key", key).Msg("GET miss")
		return nil, nil
	}
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("GET failed")
		return nil, err
	}
	c.log.Debug().Str("key", key).Int("bytes", len(b)).Msg("GET hit")
	return b, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("SET failed")
	}
	return err
}

func (c *Redis) Del(ctx context.Context, keys ...string) error {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.log.Error().Err(err).Strs("keys", keys).Msg("DEL failed")
		return err
	}
	c.log.Debug().Strs("keys", keys).Int64("deleted", n).Msg("DEL ok")
	return nil
}
