// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/qrattend/internal/domain/session/model"
)

const defaultRedisKeyPrefix = "qrattend:session:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string // Redis server address (host:port)
	Password  string // Redis password (optional)
	DB        int    // Redis database number
	KeyPrefix string // optional key namespace, defaults to "qrattend:session:"
}

// RedisStore shares sessions between service instances through Redis.
// Entries carry a native TTL of session lifetime plus retention.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	logger    zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, retention time.Duration, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis session store")

	return newRedisStore(client, cfg.KeyPrefix, retention, logger), nil
}

func newRedisStore(client *redis.Client, prefix string, retention time.Duration, logger zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisStore{
		client:    client,
		prefix:    prefix,
		retention: retention,
		logger:    logger,
	}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) Insert(ctx context.Context, s *model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("redis store: encode session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(s.SessionID), data, entryTTL(s, r.retention)).Result()
	if err != nil {
		return fmt.Errorf("redis store: insert: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Take uses GETDEL so the read and the delete happen in one server-side step.
func (r *RedisStore) Take(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.GetDel(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: take: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Warn().Err(err).Str("key", r.key(id)).Msg("dropping undecodable session entry")
		return nil, ErrNotFound
	}
	return &s, nil
}

// Sweep is a no-op: Redis expires entries on its own.
func (r *RedisStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
