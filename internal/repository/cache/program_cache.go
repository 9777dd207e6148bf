// Package cache holds redis-backed decorators for read-mostly repositories.
package cache

import (
	"coachline/fitness-api/internal/config"
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultTTL = 10 * time.Minute

// NewRedisClient connects to redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// programCache serves WeekStructure lookups from redis and falls back to
// the wrapped repository. Programs are immutable once created, so entries
// only expire by TTL.
type programCache struct {
	repository.ProgramRepository
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewProgramCache wraps next with a read-through WeekStructure cache.
func NewProgramCache(next repository.ProgramRepository, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) repository.ProgramRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &programCache{
		ProgramRepository: next,
		rdb:               rdb,
		ttl:               ttl,
		logger:            logger,
	}
}

func weekStructureKey(programID primitive.ObjectID) string {
	return "program:week_structure:" + programID.Hex()
}

// GetWeekStructure never fails because of redis: cache errors are logged and
// the database answers instead.
func (c *programCache) GetWeekStructure(ctx context.Context, programID primitive.ObjectID) (*domain.WeekStructure, error) {
	key := weekStructureKey(programID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ws domain.WeekStructure
		if jsonErr := json.Unmarshal(raw, &ws); jsonErr == nil {
			return &ws, nil
		}
		c.logger.Warn("discarding corrupt week structure cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("week structure cache read failed", zap.String("key", key), zap.Error(err))
	}

	ws, err := c.ProgramRepository.GetWeekStructure(ctx, programID)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(ws); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("week structure cache write failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return ws, nil
}
