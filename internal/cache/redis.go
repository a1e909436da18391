package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/content-collections/internal/config"
)

const redisKeyPrefix = "content:result:"

// Redis shares results between server replicas
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to the configured Redis server
func NewRedis(ctx context.Context, cfg config.CacheConfig, log zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Redis result cache connected")
	return NewRedisWithClient(client, cfg.TTL, log), nil
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

// Get returns a live entry
func (r *Redis) Get(ctx context.Context, key string) (*Result, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cache entry")
		return nil, false, nil
	}
	return &res, true, nil
}

// Put stores res with the configured TTL
func (r *Redis) Put(ctx context.Context, key string, res *Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Close closes the client
func (r *Redis) Close() error {
	return r.client.Close()
}
